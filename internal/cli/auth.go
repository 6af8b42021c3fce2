package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/existflow/stockdash/internal/model"
	"github.com/existflow/stockdash/internal/session"
	"github.com/existflow/stockdash/internal/validate"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage your account and session",
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login to the auth service",
	Long: `Login and keep the session for later commands and the dashboard.

Examples:
  stockdash auth login
  stockdash auth login --username admin
  echo "$PASS" | stockdash auth login --username admin`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE:  runLogout,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account",
	RunE:  runRegister,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a valid session is stored",
	RunE:  runStatus,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	RunE:  runWhoami,
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Update your profile",
	Long: `Update profile fields. Only the flags you pass are changed.

Examples:
  stockdash auth profile --name "Jane Doe"
  stockdash auth profile --email jane@example.com --phone "+84 90 000 0000"`,
	RunE: runProfile,
}

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change your password",
	RunE:  runPasswd,
}

var forgotCmd = &cobra.Command{
	Use:   "forgot <email>",
	Short: "Request a password reset",
	Args:  cobra.ExactArgs(1),
	RunE:  runForgot,
}

var resetCmd = &cobra.Command{
	Use:   "reset <token>",
	Short: "Set a new password with a reset token",
	Args:  cobra.ExactArgs(1),
	RunE:  runReset,
}

var (
	loginUsername string
	profileName   string
	profileEmail  string
	profilePhone  string
)

func init() {
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(registerCmd)
	authCmd.AddCommand(statusCmd)
	authCmd.AddCommand(whoamiCmd)
	authCmd.AddCommand(profileCmd)
	authCmd.AddCommand(passwdCmd)
	authCmd.AddCommand(forgotCmd)
	authCmd.AddCommand(resetCmd)

	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username (prompted when empty)")

	profileCmd.Flags().StringVar(&profileName, "name", "", "Full name")
	profileCmd.Flags().StringVar(&profileEmail, "email", "", "Email address")
	profileCmd.Flags().StringVar(&profilePhone, "phone", "", "Phone number")
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, ctx, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(a)

	mgr, err := sessionFor(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	p := newPrompter(cmd.InOrStdin(), out)

	username := loginUsername
	if username == "" {
		username = p.line("Username")
	}
	password := p.secret("Password")

	// Refuse before any request is made
	if err := validate.Credentials(username, password); err != nil {
		return err
	}

	mgr.Initialize(ctx)
	dimColor.Fprintln(out, "Logging in...")
	res := mgr.Login(ctx, username, password)
	if err := resultError(out, res); err != nil {
		return err
	}
	printUser(out, res.User)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, ctx, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(a)

	mgr, err := sessionFor(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if mgr.Initialize(ctx) != session.StateAuthenticated {
		fmt.Fprintln(out, "Not logged in.")
		return nil
	}
	if err := mgr.Logout(ctx); err != nil {
		return fmt.Errorf("failed to remove stored session: %w", err)
	}
	successColor.Fprintln(out, "✓ Logged out")
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	a, ctx, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(a)

	mgr, err := sessionFor(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	p := newPrompter(cmd.InOrStdin(), out)

	form := validate.Registration{
		Username: p.line("Username"),
		Email:    p.line("Email"),
		FullName: p.line("Full name (optional)"),
	}
	form.Password = p.secret("Password")
	form.ConfirmPassword = p.secret("Confirm password")

	if err := resultError(out, mgr.Register(ctx, form)); err != nil {
		return err
	}
	fmt.Fprintln(out, "You can now login with: stockdash auth login")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, ctx, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(a)

	mgr, err := sessionFor(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	state := mgr.Initialize(ctx)
	snap := mgr.Snapshot()

	fmt.Fprint(out, "Session: ")
	if state != session.StateAuthenticated {
		warnColor.Fprintln(out, state.String())
		return nil
	}
	successColor.Fprintln(out, state.String())
	fmt.Fprintf(out, "User:    %s\n", snap.User.DisplayName())
	if snap.ExpiresAt.IsZero() {
		fmt.Fprintln(out, "Expires: never")
	} else {
		left := time.Until(snap.ExpiresAt).Truncate(time.Second)
		fmt.Fprintf(out, "Expires: %s (in %s)\n", snap.ExpiresAt.Local().Format(time.DateTime), left)
	}
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	a, ctx, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(a)

	mgr, err := requireSession(ctx)
	if err != nil {
		return err
	}
	printUser(cmd.OutOrStdout(), mgr.User())
	return nil
}

func runProfile(cmd *cobra.Command, args []string) error {
	a, ctx, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(a)

	mgr, err := requireSession(ctx)
	if err != nil {
		return err
	}

	var patch model.ProfilePatch
	if cmd.Flags().Changed("name") {
		patch.FullName = &profileName
	}
	if cmd.Flags().Changed("email") {
		patch.Email = &profileEmail
	}
	if cmd.Flags().Changed("phone") {
		patch.Phone = &profilePhone
	}

	out := cmd.OutOrStdout()
	res := mgr.UpdateProfile(ctx, patch)
	if err := resultError(out, res); err != nil {
		return err
	}
	printUser(out, res.User)
	return nil
}

func runPasswd(cmd *cobra.Command, args []string) error {
	a, ctx, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(a)

	mgr, err := requireSession(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	p := newPrompter(cmd.InOrStdin(), out)
	current := p.secret("Current password")
	next := p.secret("New password")
	confirm := p.secret("Confirm new password")

	return resultError(out, mgr.ChangePassword(ctx, current, next, confirm))
}

func runForgot(cmd *cobra.Command, args []string) error {
	a, ctx, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(a)

	mgr, err := sessionFor(ctx)
	if err != nil {
		return err
	}

	return resultError(cmd.OutOrStdout(), mgr.ForgotPassword(ctx, args[0]))
}

func runReset(cmd *cobra.Command, args []string) error {
	a, ctx, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(a)

	mgr, err := sessionFor(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	p := newPrompter(cmd.InOrStdin(), out)
	password := p.secret("New password")
	confirm := p.secret("Confirm new password")

	return resultError(out, mgr.ResetPassword(ctx, args[0], password, confirm))
}
