package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/existflow/stockdash/internal/apitest"
)

// execute runs the root command once with stdin and returns all output
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func setupEnv(t *testing.T) *apitest.Server {
	t.Helper()
	srv := apitest.New()
	t.Cleanup(srv.Close)

	t.Setenv("HOME", t.TempDir())
	t.Setenv("STOCKDASH_AUTH_URL", srv.URL)
	t.Setenv("STOCKDASH_STOCK_URL", srv.URL)
	t.Setenv("STOCKDASH_NEWS_URL", srv.URL)
	t.Setenv("STOCKDASH_STORAGE", "file")
	t.Setenv("STOCKDASH_LOG_LEVEL", "ERROR")
	return srv
}

func TestSessionAcrossCommands(t *testing.T) {
	setupEnv(t)

	if _, err := execute(t, "", "stocks"); err == nil || !strings.Contains(err.Error(), "not logged in") {
		t.Fatalf("expected not logged in, got %v", err)
	}

	out, err := execute(t, "abc123\n", "auth", "login", "--username", "admin")
	if err != nil {
		t.Fatalf("login: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Login successful") || !strings.Contains(out, "Admin User") {
		t.Fatalf("unexpected login output:\n%s", out)
	}

	out, err = execute(t, "", "auth", "status")
	if err != nil || !strings.Contains(out, "authenticated") || !strings.Contains(out, "Admin User") {
		t.Fatalf("status: %v\n%s", err, out)
	}

	out, err = execute(t, "", "stocks", "--sort", "price", "--desc", "--size", "2")
	if err != nil {
		t.Fatalf("stocks: %v\n%s", err, out)
	}
	if !strings.Contains(out, "FPT") || !strings.Contains(out, "VCB") || strings.Contains(out, "MWG") {
		t.Fatalf("expected the two highest prices:\n%s", out)
	}
	if !strings.Contains(out, "page 1/3") {
		t.Fatalf("expected paging footer:\n%s", out)
	}

	out, err = execute(t, "", "news", "--limit", "2")
	if err != nil {
		t.Fatalf("news: %v\n%s", err, out)
	}
	if !strings.Contains(out, "FPT slips after earnings miss") || strings.Contains(out, "Steel demand") {
		t.Fatalf("unexpected news output:\n%s", out)
	}

	out, err = execute(t, "", "auth", "logout")
	if err != nil || !strings.Contains(out, "Logged out") {
		t.Fatalf("logout: %v\n%s", err, out)
	}
	if _, err := execute(t, "", "auth", "whoami"); err == nil {
		t.Fatal("expected whoami to fail after logout")
	}
}

func TestLoginRejectsEmptyPasswordWithoutRequest(t *testing.T) {
	srv := setupEnv(t)

	_, err := execute(t, "\n", "auth", "login", "--username", "admin")
	if err == nil || !strings.Contains(err.Error(), "password is required") {
		t.Fatalf("expected missing password error, got %v", err)
	}
	if srv.LoginCalls() != 0 {
		t.Fatalf("expected no login request, got %d", srv.LoginCalls())
	}
}

func TestLoginWrongPassword(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "wrong\n", "auth", "login", "--username", "admin")
	if err == nil || !strings.Contains(err.Error(), "Incorrect username or password") {
		t.Fatalf("expected rejection, got %v", err)
	}
}

func TestUnknownSortColumn(t *testing.T) {
	setupEnv(t)

	if _, err := execute(t, "", "stocks", "--sort", "colour"); err == nil || !strings.Contains(err.Error(), "unknown sort column") {
		t.Fatalf("expected sort error, got %v", err)
	}
	// reset sticky flag values for later tests
	stocksSort = "symbol"
}

func TestConfigHidesSecrets(t *testing.T) {
	setupEnv(t)
	t.Setenv("STOCKDASH_REDIS_PASSWORD", "s3cret-from-env")

	out, err := execute(t, "", "config")
	if err != nil {
		t.Fatalf("config: %v\n%s", err, out)
	}
	if strings.Contains(out, "s3cret-from-env") {
		t.Fatalf("secret printed:\n%s", out)
	}
	if !strings.Contains(out, "STOCKDASH_REDIS_PASSWORD is set (hidden)") {
		t.Fatalf("expected hidden secret note:\n%s", out)
	}
}
