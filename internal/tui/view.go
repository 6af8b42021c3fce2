package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/existflow/stockdash/internal/market"
	"github.com/existflow/stockdash/internal/model"
)

// View renders the UI
func (m Model) View() string {
	switch m.screen() {
	case ScreenLoading:
		return m.renderLoading()
	case ScreenLogin:
		return m.renderLogin()
	}

	if m.mode == ModeHelp {
		return lipgloss.JoinVertical(lipgloss.Left, m.renderHelp(), m.renderStatusBar())
	}

	table := m.renderTable()
	news := m.renderNews()
	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, table, news)

	if m.mode == ModeSearch {
		modal := ModalStyle.Render("Search\n\n" + m.search.View() + "\n\n" + HelpStyle.Render("enter: keep • esc: clear"))
		if m.width > 0 && m.height > 2 {
			mainContent = lipgloss.Place(
				m.width, m.height-2,
				lipgloss.Center, lipgloss.Center,
				modal,
				lipgloss.WithWhitespaceChars(" "),
			)
		} else {
			mainContent = lipgloss.JoinVertical(lipgloss.Left, mainContent, modal)
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), mainContent, m.renderStatusBar())
}

func (m Model) center(s string) string {
	if m.width == 0 || m.height == 0 {
		return s
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, s)
}

func (m Model) renderLoading() string {
	return m.center(fmt.Sprintf("%s Checking your session...\n\n%s",
		m.spinner.View(), HelpStyle.Render("Please wait a moment")))
}

func (m Model) renderLogin() string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render("stockdash") + "\n")
	b.WriteString(HelpStyle.Render("Sign in to view the market") + "\n\n")
	b.WriteString("Username\n" + m.username.View() + "\n\n")
	b.WriteString("Password\n" + m.password.View() + "\n\n")

	switch {
	case m.loggingIn:
		b.WriteString(m.spinner.View() + " Signing in...\n")
	case m.errorMsg != "":
		b.WriteString(ErrorStyle.Render(m.errorMsg) + "\n")
	case m.message != "":
		b.WriteString(HelpStyle.Render(m.message) + "\n")
	}
	b.WriteString("\n" + HelpStyle.Render("tab: switch field • enter: sign in • esc: quit"))

	return m.center(ModalStyle.Render(b.String()))
}

func (m Model) renderHeader() string {
	name := ""
	if u := m.session.User(); u != nil {
		name = u.DisplayName()
	}
	sum := market.Summarize(m.stocks)
	left := HeaderStyle.Render("stockdash") + HelpStyle.Render(m.now.Format("15:04:05"))
	stats := fmt.Sprintf("%d stocks  %s %d  %s %d  vol %s  sentiment %s (%.0f%%/%.0f%%/%.0f%%)",
		sum.Count,
		TrendStyle(model.TrendUp).Render("▲"), sum.Gainers,
		TrendStyle(model.TrendDown).Render("▼"), sum.Losers,
		formatVolume(sum.TotalVolume),
		m.sentiment.Label, m.sentiment.Positive, m.sentiment.Negative, m.sentiment.Neutral)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", HelpStyle.Render(stats), "  ", HeaderStyle.Render(name))
}

func (m Model) renderTable() string {
	p := m.page()
	var s string

	header := padRight("SYMBOL", 8) + padRight("PRICE", 10) + padRight("CHANGE", 10) + padRight("%", 9) + "VOLUME"
	s += TableHeaderStyle.Render(header) + "\n"
	s += lipgloss.NewStyle().Foreground(Border).Render(strings.Repeat("─", 45)) + "\n"

	if len(p.Stocks) == 0 {
		switch {
		case m.loading:
			s += HelpStyle.Render(m.spinner.View()+" Loading quotes...") + "\n"
		case m.query.Search != "":
			s += HelpStyle.Render("No stocks match \""+m.query.Search+"\"") + "\n"
		default:
			s += HelpStyle.Render("No stocks. Press r to refresh.") + "\n"
		}
	}

	for i, st := range p.Stocks {
		trend := TrendStyle(st.Trend)
		line := padRight(truncate(st.Symbol, 7), 8) +
			padRight(fmt.Sprintf("%.2f", st.Price), 10) +
			trend.Render(padRight(signed(st.Change, ""), 10)) +
			trend.Render(padRight(TrendArrow(st.Trend)+signed(st.ChangePercent, "%"), 9)) +
			formatVolume(st.Volume)
		if i == m.cursor {
			s += RowSelectedStyle.Render("▸ "+line) + "\n"
		} else {
			s += RowStyle.Render("  "+line) + "\n"
		}
	}

	s += "\n" + HelpStyle.Render(fmt.Sprintf("page %d/%d • %d matches • sort %s %s",
		p.Page, p.TotalPages, p.Total, m.query.SortBy, direction(m.query.Desc)))
	if m.query.Search != "" {
		s += HelpStyle.Render(" • search \"" + m.query.Search + "\"")
	}

	if st := m.currentStock(); st != nil {
		s += "\n\n" + HelpStyle.Render(fmt.Sprintf("%s  open %.2f  high %.2f  low %.2f  prev %.2f",
			st.Symbol, st.Open, st.High, st.Low, st.PrevClose))
	}
	return TableStyle.Render(s)
}

func direction(desc bool) string {
	if desc {
		return "↓"
	}
	return "↑"
}

func (m Model) renderNews() string {
	var s string
	s += lipgloss.NewStyle().Bold(true).Foreground(Primary).Render("News") + "\n\n"
	if len(m.news) == 0 {
		s += HelpStyle.Render("No news yet")
	}
	for _, n := range m.news {
		s += truncate(n.Title, 36) + "\n"
		s += HelpStyle.Render(truncate(n.Source+" • "+n.TimeAgo, 36)) + "\n\n"
	}
	return NewsStyle.Render(s)
}

func (m Model) renderStatusBar() string {
	var status string
	switch {
	case m.errorMsg != "":
		status = ErrorStyle.Render(m.errorMsg)
	case m.loading:
		status = m.spinner.View() + " Refreshing"
	case m.message != "":
		status = m.message
	case !m.lastUpdated.IsZero():
		status = "Updated " + m.lastUpdated.Format("15:04:05")
	}

	if exp := m.session.Snapshot().ExpiresAt; !exp.IsZero() {
		left := exp.Sub(m.now).Truncate(time.Second)
		if left > 0 {
			status += HelpStyle.Render(fmt.Sprintf("  • session %s left", left))
		}
	}
	return StatusBarStyle.Render(status + "  " + HelpStyle.Render("? help • q quit"))
}

func (m Model) renderHelp() string {
	bindings := []struct{ k, desc string }{
		{"↑/k ↓/j", "move"},
		{"←/h →/l", "previous / next page"},
		{"/", "search by symbol or name"},
		{"s", "cycle sort column"},
		{"d", "reverse sort order"},
		{"r", "refresh quotes and news"},
		{"esc", "clear search"},
		{"L", "logout"},
		{"q", "quit"},
	}
	var s string
	s += HeaderStyle.Render("Keys") + "\n\n"
	for _, b := range bindings {
		s += padRight(b.k, 12) + HelpStyle.Render(b.desc) + "\n"
	}
	s += "\n" + HelpStyle.Render("press any key to return")
	return ModalStyle.Render(s)
}
