// Command stockdash-devserver serves a local fake of the auth, stock and
// news services for trying the dashboard without a backend.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/existflow/stockdash/internal/apitest"
	"github.com/existflow/stockdash/internal/logger"
	"github.com/existflow/stockdash/internal/model"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8004"
	}

	cfg := logger.DefaultConfig()
	cfg.Console = true
	cfg.FilePath = ""
	cfg.Level = logger.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err := logger.Init(cfg); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Close()

	srv := apitest.New()
	defer srv.Close()

	if ttl, err := time.ParseDuration(os.Getenv("TOKEN_TTL")); err == nil && ttl > 0 {
		srv.SetTokenTTL(ttl)
	}
	if user, pass := os.Getenv("DEV_USER"), os.Getenv("DEV_PASSWORD"); user != "" && pass != "" {
		srv.AddUser(user, pass, model.User{FullName: user, Role: "user"})
	}

	go func() {
		log.Printf("stockdash dev backend listening on :%s (admin / abc123)", port)
		if err := srv.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down: %v", err)
	}
}
