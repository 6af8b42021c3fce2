// Package apitest runs an in-process fake of the auth, stock and news
// services speaking the canonical {success, message, data} envelope.
package apitest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/existflow/stockdash/internal/logger"
	"github.com/existflow/stockdash/internal/model"
)

type account struct {
	user         model.User
	passwordHash []byte
}

// Server is the fake backend. One instance serves all three services.
type Server struct {
	*httptest.Server

	echo   *echo.Echo
	secret []byte

	mu            sync.Mutex
	now           func() time.Time
	accounts      map[string]*account // by username
	tokenTTL      time.Duration
	omitExpiresIn bool
	loginOverride func(c echo.Context) error
	loginGate     chan struct{}
	loginCalls    int
	marketStatus  int
	routeStatus   map[string]int // by route path, e.g. /api/news
	stocks        []map[string]any
	news          []map[string]any
	sentiment     map[string]any
	resetTokens   map[string]string // token -> username
}

// New starts a fake backend with one seeded account, admin / abc123
func New() *Server {
	s := &Server{
		secret:      []byte(uuid.NewString()),
		now:         time.Now,
		accounts:    make(map[string]*account),
		tokenTTL:    time.Hour,
		stocks:      defaultStocks(),
		news:        defaultNews(),
		sentiment:   map[string]any{"sentiment": "Bullish", "positive_percentage": 62.5, "negative_percentage": 17.5, "neutral_percentage": 20},
		resetTokens: make(map[string]string),
		routeStatus: make(map[string]int),
	}
	s.AddUser("admin", "abc123", model.User{ID: "1", Email: "admin@example.com", FullName: "Admin User", Role: "admin"})
	s.setupEcho()
	s.Server = httptest.NewServer(s.echo)
	return s
}

func (s *Server) setupEcho() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			logger.Debug("fake backend",
				logger.F("method", c.Request().Method),
				logger.F("uri", c.Request().RequestURI),
				logger.F("status", c.Response().Status))
			return err
		}
	})
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	auth := e.Group("/api/auth")
	auth.POST("/login", s.handleLogin)
	auth.POST("/register", s.handleRegister)
	auth.POST("/forgot-password", s.handleForgotPassword)
	auth.POST("/reset-password", s.handleResetPassword)

	protected := auth.Group("")
	protected.Use(s.authMiddleware)
	protected.GET("/verify", s.handleVerify)
	protected.PUT("/profile", s.handleProfile)
	protected.PUT("/change-password", s.handleChangePassword)

	market := e.Group("/api")
	market.Use(s.authMiddleware, s.marketFailure)
	market.GET("/stocks", s.handleStocks)
	market.GET("/stocks/:symbol", s.handleStock)
	market.GET("/news", s.handleNews)
	market.GET("/sentiment", s.handleSentiment)

	s.echo = e
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	return s.echo
}

// Start also serves the fake backend on addr until Shutdown
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown stops the listener opened by Start
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// AddUser registers an account. Username and Email of u are filled in
// from username when empty.
func (s *Server) AddUser(username, password string, u model.User) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	u.Username = username
	if u.ID == "" {
		u.ID = model.ID(uuid.NewString())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[username] = &account{user: u, passwordHash: hash}
}

// SetClock replaces the time source used for minting and checking tokens
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetTokenTTL sets the lifetime of newly minted tokens
func (s *Server) SetTokenTTL(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenTTL = d
}

// OmitExpiresIn drops expires_in from login responses
func (s *Server) OmitExpiresIn(omit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitExpiresIn = omit
}

// OverrideLogin replaces the login handler; nil restores it
func (s *Server) OverrideLogin(h func(c echo.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginOverride = h
}

// HoldLogins makes login requests wait until the returned func is called
func (s *Server) HoldLogins() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.loginGate = gate
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.loginGate = nil
			s.mu.Unlock()
			close(gate)
		})
	}
}

// LoginCalls counts login requests received
func (s *Server) LoginCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginCalls
}

// FailMarket answers every market request with status; 0 turns it off
func (s *Server) FailMarket(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marketStatus = status
}

// FailRoute answers one market route, such as /api/news, with status;
// 0 turns it off
func (s *Server) FailRoute(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.routeStatus, path)
		return
	}
	s.routeStatus[path] = status
}

// SetStocks replaces the raw stock rows served by /api/stocks
func (s *Server) SetStocks(rows []map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stocks = rows
}

// SetNews replaces the raw news rows served by /api/news
func (s *Server) SetNews(rows []map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.news = rows
}

// SetSentiment replaces the sentiment payload; nil serves no data
func (s *Server) SetSentiment(data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentiment = data
}

// ResetToken issues a password reset token for username, as the
// emailed link would carry
func (s *Server) ResetToken(username string) string {
	tok := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetTokens[tok] = username
	return tok
}

func ok(c echo.Context, message string, data any) error {
	body := map[string]any{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	return c.JSON(http.StatusOK, body)
}

func fail(c echo.Context, status int, detail any) error {
	return c.JSON(status, map[string]any{"detail": detail})
}
