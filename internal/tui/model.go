package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"

	"github.com/existflow/stockdash/internal/logger"
	"github.com/existflow/stockdash/internal/market"
	"github.com/existflow/stockdash/internal/model"
	"github.com/existflow/stockdash/internal/session"
)

// Screen is the view being shown
type Screen int

const (
	ScreenLoading Screen = iota
	ScreenLogin
	ScreenDashboard
)

// Mode represents the current dashboard mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeSearch
	ModeHelp
)

const (
	fieldUsername = iota
	fieldPassword
)

// Model is the main TUI model
type Model struct {
	ctx     context.Context
	session *session.Manager
	market  *market.Service

	events       <-chan session.Event
	cancelEvents func()

	// UI state
	width   int
	height  int
	mode    Mode
	spinner spinner.Model
	now     time.Time

	// Login form
	username  textinput.Model
	password  textinput.Model
	field     int
	loggingIn bool

	// Dashboard
	search      textinput.Model
	stocks      []model.Stock
	news        []model.NewsItem
	sentiment   model.Sentiment
	query       market.Query
	cursor      int
	loading     bool
	lastUpdated time.Time

	message  string
	errorMsg string
}

// NewModel creates a new TUI model bound to the session manager in ctx
func NewModel(ctx context.Context, svc *market.Service) (Model, error) {
	mgr, ok := session.FromContext(ctx)
	if !ok {
		return Model{}, errors.New("tui: context has no session manager")
	}
	logger.Info("Initializing TUI model")

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = HeaderStyle

	user := textinput.New()
	user.Placeholder = "username"
	user.CharLimit = 64
	user.Width = 30
	user.Focus()

	pass := textinput.New()
	pass.Placeholder = "password"
	pass.CharLimit = 128
	pass.Width = 30
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '•'

	search := textinput.New()
	search.Placeholder = "symbol or name"
	search.CharLimit = 32
	search.Width = 30

	events, cancel := mgr.Subscribe()

	return Model{
		ctx:          ctx,
		session:      mgr,
		market:       svc,
		events:       events,
		cancelEvents: cancel,
		spinner:      sp,
		now:          time.Now(),
		username:     user,
		password:     pass,
		search:       search,
		sentiment:    model.DefaultSentiment(),
		query:        market.Query{SortBy: market.SortSymbol, Page: 1, PageSize: market.DefaultPageSize},
	}, nil
}

// screen derives the view from the session; the dashboard is only ever
// shown for a valid session
func (m Model) screen() Screen {
	switch {
	case m.session.State() == session.StateInitializing:
		return ScreenLoading
	case m.session.IsAuthenticated():
		return ScreenDashboard
	default:
		return ScreenLogin
	}
}

func (m Model) page() market.Page {
	return market.Apply(m.stocks, m.query)
}

func (m *Model) currentStock() *model.Stock {
	p := m.page()
	if m.cursor < len(p.Stocks) {
		return &p.Stocks[m.cursor]
	}
	return nil
}

func (m *Model) resetLogin() {
	m.username.SetValue("")
	m.password.SetValue("")
	m.field = fieldUsername
	m.username.Focus()
	m.password.Blur()
}

func (m *Model) clearData() {
	m.stocks = nil
	m.news = nil
	m.sentiment = model.DefaultSentiment()
	m.cursor = 0
	m.query.Page = 1
}
