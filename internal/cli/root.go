package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/existflow/stockdash/internal/app"
	"github.com/existflow/stockdash/internal/config"
	"github.com/existflow/stockdash/internal/logger"
	"github.com/existflow/stockdash/internal/session"
	"github.com/existflow/stockdash/internal/tui"
)

var (
	logLevel   string
	logFile    string
	logConsole bool

	authURL  string
	stockURL string
	newsURL  string
	storage  string

	// cfg is loaded once per invocation
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "stockdash",
	Short: "stockdash - Terminal stock market dashboard",
	Long: `stockdash shows live quotes, market news and sentiment in your terminal.

Run 'stockdash' without arguments to launch the interactive dashboard.`,
	Version:      app.Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config from file (or defaults if not exists)
		loaded, err := config.Load()
		if err != nil {
			logger.Warn("Failed to load config, using defaults", logger.F("error", err))
			loaded = config.DefaultConfig()
		}
		cfg = loaded

		// Override with CLI flags if provided
		configChanged := false
		flags := cmd.Flags()
		for name, apply := range map[string]func(){
			"log-level":   func() { cfg.LogLevel = logLevel },
			"log-file":    func() { cfg.LogFile = logFile },
			"log-console": func() { cfg.LogConsole = logConsole },
			"auth-url":    func() { cfg.AuthURL = authURL },
			"stock-url":   func() { cfg.StockURL = stockURL },
			"news-url":    func() { cfg.NewsURL = newsURL },
			"storage":     func() { cfg.Storage.Driver = storage },
		} {
			if flags.Changed(name) {
				apply()
				configChanged = true
			}
		}

		// Save config if changed via CLI flags
		if configChanged {
			if err := cfg.Save(); err != nil {
				logger.Warn("Failed to save config", logger.F("error", err))
			}
		}

		logConfig := logger.Config{
			Level:      logger.ParseLevel(cfg.LogLevel),
			FilePath:   cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxAge:     7,
			MaxBackups: 5,
			Console:    cfg.LogConsole,
		}

		if err := logger.Init(logConfig); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		logger.Info("stockdash started", logger.F("command", cmd.Name()))
		return nil
	},

	RunE: func(cmd *cobra.Command, args []string) error {
		a, ctx, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer closeApp(a)

		logger.Info("Launching TUI")
		m, err := tui.NewModel(ctx, a.Market)
		if err != nil {
			return err
		}
		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

		if _, err := p.Run(); err != nil {
			logger.Error("TUI error", logger.F("error", err))
			return fmt.Errorf("failed to run TUI: %w", err)
		}

		logger.Info("TUI exited normally")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Info("stockdash exiting", logger.F("command", cmd.Name()))
		logger.Close()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// openApp builds the app for this invocation; the returned context
// carries the session manager
func openApp(cmd *cobra.Command) (*app.App, context.Context, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to build app", logger.F("error", err))
		return nil, nil, err
	}
	return a, a.Context(ctx), nil
}

func closeApp(a *app.App) {
	if err := a.Close(); err != nil {
		logger.Warn("Failed to close app", logger.F("error", err))
	}
}

// sessionFor returns the manager openApp attached to ctx
func sessionFor(ctx context.Context) (*session.Manager, error) {
	mgr, ok := session.FromContext(ctx)
	if !ok {
		return nil, errors.New("no session manager in context")
	}
	return mgr, nil
}

// requireSession restores the stored session and refuses to continue
// without a valid one
func requireSession(ctx context.Context) (*session.Manager, error) {
	mgr, err := sessionFor(ctx)
	if err != nil {
		return nil, err
	}
	if mgr.Initialize(ctx) != session.StateAuthenticated {
		return nil, fmt.Errorf("not logged in: run 'stockdash auth login' first")
	}
	return mgr, nil
}

func init() {
	// Logging flags
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file")
	rootCmd.PersistentFlags().BoolVar(&logConsole, "log-console", false, "Enable console logging")

	// Service flags, saved to the config file when given
	rootCmd.PersistentFlags().StringVar(&authURL, "auth-url", "", "Auth service base URL")
	rootCmd.PersistentFlags().StringVar(&stockURL, "stock-url", "", "Stock service base URL")
	rootCmd.PersistentFlags().StringVar(&newsURL, "news-url", "", "News service base URL")
	rootCmd.PersistentFlags().StringVar(&storage, "storage", "", "Session storage (memory, file, sqlite, postgres, redis)")

	// Add subcommands
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(stocksCmd)
	rootCmd.AddCommand(stockCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(sentimentCmd)
	rootCmd.AddCommand(configCmd)
}
