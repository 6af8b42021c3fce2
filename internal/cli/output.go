package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/existflow/stockdash/internal/api"
	"github.com/existflow/stockdash/internal/model"
	"github.com/existflow/stockdash/internal/session"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	failColor    = color.New(color.FgRed)
	warnColor    = color.New(color.FgYellow)
	dimColor     = color.New(color.FgHiBlack)
)

// prompter reads answers from the command's input
type prompter struct {
	in  io.Reader
	out io.Writer
	r   *bufio.Reader
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: in, out: out, r: bufio.NewReader(in)}
}

func (p *prompter) line(label string) string {
	fmt.Fprintf(p.out, "%s: ", label)
	s, _ := p.r.ReadString('\n')
	return strings.TrimSpace(s)
}

// secret reads without echo on a terminal, and as a plain line otherwise
func (p *prompter) secret(label string) string {
	if f, ok := p.in.(*os.File); ok && f == os.Stdin && term.IsTerminal(int(syscall.Stdin)) {
		fmt.Fprintf(p.out, "%s: ", label)
		b, _ := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(p.out)
		return string(b)
	}
	fmt.Fprintf(p.out, "%s: ", label)
	s, _ := p.r.ReadString('\n')
	return strings.TrimRight(s, "\r\n")
}

// resultError prints a successful result or turns a failed one into an error
func resultError(w io.Writer, res session.Result) error {
	if res.Success {
		successColor.Fprintf(w, "✓ %s\n", res.Message)
		return nil
	}
	msg := res.Error
	if hint := api.Guidance(res.Kind); hint != "" && res.Kind != api.KindNetwork {
		msg += " (" + hint + ")"
	}
	return fmt.Errorf("%s", msg)
}

func printUser(w io.Writer, u *model.User) {
	if u == nil {
		return
	}
	headerColor.Fprintf(w, "%s\n", u.DisplayName())
	rows := [][2]string{
		{"Username", u.Username},
		{"Email", u.Email},
		{"Phone", u.Phone},
		{"Role", u.Role},
	}
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		fmt.Fprintf(w, "  %-9s ", r[0])
		dimColor.Fprintln(w, r[1])
	}
}

func trendColor(t model.Trend) *color.Color {
	switch t {
	case model.TrendUp:
		return successColor
	case model.TrendDown:
		return failColor
	default:
		return warnColor
	}
}
