// Package app wires configuration, storage, service clients and the
// session manager together.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/existflow/stockdash/internal/api"
	"github.com/existflow/stockdash/internal/auth"
	"github.com/existflow/stockdash/internal/config"
	"github.com/existflow/stockdash/internal/logger"
	"github.com/existflow/stockdash/internal/market"
	"github.com/existflow/stockdash/internal/session"
	"github.com/existflow/stockdash/internal/storage"
)

// Version of the client, sent in the User-Agent header
const Version = "0.1.0"

// UserAgent identifies this client to the services
const UserAgent = "stockdash/" + Version

const defaultHTTPTimeout = 15 * time.Second

// App holds the long-lived components of one process
type App struct {
	Config  *config.Config
	Store   storage.Store
	Auth    *auth.Client
	Session *session.Manager
	Market  *market.Service
}

// Option adjusts how an App is built
type Option func(*options)

type options struct {
	store       storage.Store
	sessionOpts []session.Option
}

// WithStore uses store instead of opening the configured one
func WithStore(store storage.Store) Option {
	return func(o *options) { o.store = store }
}

// WithSessionOptions passes options to the session manager
func WithSessionOptions(opts ...session.Option) Option {
	return func(o *options) { o.sessionOpts = append(o.sessionOpts, opts...) }
}

// New builds the app. Every service transport reads its token from the
// session manager and reports 401/403 back to it.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	store := o.store
	if store == nil {
		var err error
		store, err = storage.Open(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
		}
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	hc := &http.Client{Timeout: timeout}

	// the auth client exists before the manager, so its hooks are set after
	authAPI := api.New(cfg.AuthURL, api.WithHTTPClient(hc), api.WithUserAgent(UserAgent))
	authClient := auth.New(authAPI)
	sessionOpts := append([]session.Option{session.WithSweepInterval(cfg.SweepInterval)}, o.sessionOpts...)
	mgr := session.New(store, authClient, sessionOpts...)
	authAPI.SetTokenSource(mgr)
	authAPI.SetUnauthorizedHandler(mgr.HandleUnauthorized)

	serviceAPI := func(baseURL string) *api.Client {
		return api.New(baseURL,
			api.WithHTTPClient(hc),
			api.WithUserAgent(UserAgent),
			api.WithTokenSource(mgr),
			api.WithUnauthorizedHandler(mgr.HandleUnauthorized))
	}
	stockAPI := serviceAPI(cfg.StockURL)
	newsAPI := serviceAPI(cfg.NewsURL)

	logger.Debug("App wired",
		logger.F("auth_url", authAPI.BaseURL()),
		logger.F("stock_url", stockAPI.BaseURL()),
		logger.F("news_url", newsAPI.BaseURL()),
		logger.F("storage", cfg.Storage.Driver))

	return &App{
		Config:  cfg,
		Store:   store,
		Auth:    authClient,
		Session: mgr,
		Market:  market.NewService(stockAPI, newsAPI),
	}, nil
}

// Context attaches the session manager to ctx
func (a *App) Context(ctx context.Context) context.Context {
	return session.NewContext(ctx, a.Session)
}

// Close stops the session sweep and closes storage
func (a *App) Close() error {
	return errors.Join(a.Session.Close(), a.Store.Close())
}
