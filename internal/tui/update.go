package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/existflow/stockdash/internal/api"
	"github.com/existflow/stockdash/internal/logger"
	"github.com/existflow/stockdash/internal/model"
	"github.com/existflow/stockdash/internal/session"
	"github.com/existflow/stockdash/internal/validate"
)

const newsLimit = 5

// tickMsg is sent every second for time updates
type tickMsg time.Time

// initializedMsg is sent when the stored session has been checked
type initializedMsg struct {
	state session.State
}

// sessionEventMsg wraps a manager notification
type sessionEventMsg struct {
	event session.Event
}

// loginResultMsg carries the outcome of a login attempt
type loginResultMsg struct {
	result session.Result
}

// dataMsg carries a dashboard refresh. Parts that loaded are kept even
// when another part failed.
type dataMsg struct {
	stocks      []model.Stock
	news        []model.NewsItem
	sentiment   model.Sentiment
	stocksOK    bool
	newsOK      bool
	sentimentOK bool
	err         error
}

// Init checks the stored session and starts listening for changes
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.initializeCmd(), m.waitForEvent(), tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Every(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) initializeCmd() tea.Cmd {
	mgr, ctx := m.session, m.ctx
	return func() tea.Msg {
		state := mgr.State()
		if state == session.StateInitializing {
			state = mgr.Initialize(ctx)
		}
		mgr.StartSweep(ctx)
		return initializedMsg{state: state}
	}
}

// waitForEvent listens for session changes
func (m Model) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	events := m.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return sessionEventMsg{event: ev}
	}
}

func (m Model) loginCmd(username, password string) tea.Cmd {
	mgr, ctx := m.session, m.ctx
	return func() tea.Msg {
		return loginResultMsg{result: mgr.Login(ctx, username, password)}
	}
}

func (m Model) refreshCmd() tea.Cmd {
	svc, ctx := m.market, m.ctx
	return func() tea.Msg {
		var (
			msg dataMsg
			g   errgroup.Group
		)
		g.Go(func() error {
			stocks, err := svc.ListStocks(ctx)
			msg.stocks, msg.stocksOK = stocks, err == nil
			return err
		})
		g.Go(func() error {
			news, err := svc.ListNews(ctx, newsLimit)
			msg.news, msg.newsOK = news, err == nil
			return err
		})
		g.Go(func() error {
			sentiment, err := svc.Sentiment(ctx)
			msg.sentiment, msg.sentimentOK = sentiment, err == nil
			return err
		})
		msg.err = g.Wait()
		return msg
	}
}

func (m *Model) startRefresh() tea.Cmd {
	if m.market == nil || m.loading {
		return nil
	}
	m.loading = true
	return m.refreshCmd()
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.now = time.Time(msg)
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case initializedMsg:
		logger.Debug("TUI session resolved", logger.F("state", msg.state.String()))
		if msg.state == session.StateAuthenticated {
			return m, m.startRefresh()
		}
		return m, nil

	case sessionEventMsg:
		return m.handleSessionEvent(msg.event)

	case loginResultMsg:
		m.loggingIn = false
		if !msg.result.Success {
			m.errorMsg = msg.result.Error
			if hint := api.Guidance(msg.result.Kind); hint != "" && msg.result.Kind != api.KindNetwork {
				m.errorMsg += "\n" + hint
			}
			m.password.SetValue("")
			return m, nil
		}
		m.errorMsg = ""
		m.message = "Welcome, " + msg.result.User.DisplayName()
		m.resetLogin()
		return m, m.startRefresh()

	case dataMsg:
		m.loading = false
		// a 401 is handled by the session event; nothing is shown after it
		if api.IsUnauthorized(msg.err) || !m.session.IsAuthenticated() {
			return m, nil
		}
		if msg.stocksOK {
			m.stocks = msg.stocks
		}
		if msg.newsOK {
			m.news = msg.news
		}
		if msg.sentimentOK {
			m.sentiment = msg.sentiment
		}
		if msg.err != nil {
			m.errorMsg = api.MessageOf(msg.err)
		} else {
			m.errorMsg = ""
			m.lastUpdated = m.now
		}
		if p := m.page(); m.cursor >= len(p.Stocks) {
			m.cursor = 0
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) && msg.String() == "ctrl+c" {
			return m.quit()
		}
		switch m.screen() {
		case ScreenLoading:
			if key.Matches(msg, keys.Quit) {
				return m.quit()
			}
			return m, nil
		case ScreenLogin:
			return m.updateLogin(msg)
		}

		switch m.mode {
		case ModeSearch:
			return m.updateSearch(msg)
		case ModeHelp:
			m.mode = ModeNormal
			return m, nil
		}
		return m.handleNormalKeys(msg)
	}

	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.cancelEvents != nil {
		m.cancelEvents()
	}
	return m, tea.Quit
}

func (m Model) handleSessionEvent(ev session.Event) (tea.Model, tea.Cmd) {
	logger.Debug("TUI session event", logger.F("reason", string(ev.Reason)), logger.F("state", ev.State.String()))
	switch ev.Reason {
	case session.ReasonExpired:
		m.clearData()
		m.mode = ModeNormal
		m.errorMsg = "Your session has expired. Please log in again."
	case session.ReasonRejected:
		m.clearData()
		m.mode = ModeNormal
		m.errorMsg = "The server no longer accepts your session. Please log in again."
	case session.ReasonLogout:
		m.clearData()
		m.mode = ModeNormal
		m.message = "Logged out"
	}
	return m, m.waitForEvent()
}

// updateLogin handles the login form
func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		return m.quit()

	case key.Matches(msg, keys.Tab), msg.String() == "up", msg.String() == "down":
		m.toggleField()
		return m, nil

	case key.Matches(msg, keys.Enter):
		if m.field == fieldUsername {
			m.toggleField()
			return m, nil
		}
		if m.loggingIn {
			return m, nil
		}
		username, password := m.username.Value(), m.password.Value()
		if err := validate.Credentials(username, password); err != nil {
			m.errorMsg = err.Error()
			return m, nil
		}
		m.errorMsg = ""
		m.loggingIn = true
		return m, m.loginCmd(username, password)
	}

	var cmd tea.Cmd
	if m.field == fieldUsername {
		m.username, cmd = m.username.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m *Model) toggleField() {
	if m.field == fieldUsername {
		m.field = fieldPassword
		m.username.Blur()
		m.password.Focus()
	} else {
		m.field = fieldUsername
		m.password.Blur()
		m.username.Focus()
	}
}

// handleNormalKeys handles key presses on the dashboard
func (m Model) handleNormalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m.quit()

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.page().Stocks)-1 {
			m.cursor++
		}

	case key.Matches(msg, keys.PrevPage):
		if m.query.Page > 1 {
			m.query.Page--
			m.cursor = 0
		}

	case key.Matches(msg, keys.NextPage):
		if p := m.page(); p.Page < p.TotalPages {
			m.query.Page = p.Page + 1
			m.cursor = 0
		}

	case key.Matches(msg, keys.Sort):
		m.query.SortBy = m.query.SortBy.Next()
		m.query.Page = 1
		m.cursor = 0
		m.message = "Sorted by " + string(m.query.SortBy)

	case key.Matches(msg, keys.Reverse):
		m.query.Desc = !m.query.Desc

	case key.Matches(msg, keys.Search):
		m.mode = ModeSearch
		m.search.SetValue(m.query.Search)
		m.search.Focus()
		return m, nil

	case key.Matches(msg, keys.Escape):
		m.query.Search = ""
		m.query.Page = 1
		m.message = ""

	case key.Matches(msg, keys.Refresh):
		m.message = "Refreshing..."
		return m, m.startRefresh()

	case key.Matches(msg, keys.Logout):
		m.handleLogout()

	case key.Matches(msg, keys.Help):
		m.mode = ModeHelp
	}
	return m, nil
}

func (m *Model) handleLogout() {
	if err := m.session.Logout(m.ctx); err != nil {
		logger.Error("Logout failed", logger.F("error", err))
		m.errorMsg = "Logged out, but the stored session could not be removed"
	}
	m.clearData()
	m.resetLogin()
}

// updateSearch filters live while typing
func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		m.mode = ModeNormal
		m.search.Blur()
		m.query.Search = ""
		m.query.Page = 1
		m.cursor = 0
		return m, nil
	case key.Matches(msg, keys.Enter):
		m.mode = ModeNormal
		m.search.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.query.Search = m.search.Value()
	m.query.Page = 1
	m.cursor = 0
	return m, cmd
}
