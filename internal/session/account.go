package session

import (
	"context"
	"strings"

	"github.com/existflow/stockdash/internal/api"
	"github.com/existflow/stockdash/internal/auth"
	"github.com/existflow/stockdash/internal/logger"
	"github.com/existflow/stockdash/internal/model"
	"github.com/existflow/stockdash/internal/validate"
)

func invalid(err error) Result {
	return Result{Kind: api.KindValidation, Error: strings.Join(validate.Messages(err), "; ")}
}

func (m *Manager) accountService() (Accounts, *Result) {
	if m.accounts == nil {
		r := failure(api.Errorf(api.KindValidation, "account management is not available"))
		return nil, &r
	}
	return m.accounts, nil
}

// Register creates an account after local validation. It does not log in.
func (m *Manager) Register(ctx context.Context, form validate.Registration) Result {
	if err := form.Check(); err != nil {
		return invalid(err)
	}
	accounts, res := m.accountService()
	if res != nil {
		return *res
	}

	msg, err := accounts.Register(ctx, auth.RegisterRequest{
		Username: strings.TrimSpace(form.Username),
		Email:    strings.TrimSpace(form.Email),
		Password: form.Password,
		FullName: strings.TrimSpace(form.FullName),
	})
	if err != nil {
		logger.Warn("Registration failed", logger.F("username", form.Username), logger.F("error", err))
		return failure(err)
	}
	logger.Info("Registered", logger.F("username", form.Username))
	return success(msg)
}

// UpdateProfile sends patch and merges it into the cached and persisted user
func (m *Manager) UpdateProfile(ctx context.Context, patch model.ProfilePatch) Result {
	if patch.Empty() {
		return invalid(api.Errorf(api.KindValidation, "nothing to update"))
	}
	if patch.Email != nil {
		if err := validate.Email(*patch.Email); err != nil {
			return invalid(err)
		}
	}
	if !m.IsAuthenticated() {
		return failure(api.Errorf(api.KindRejected, "not logged in"))
	}
	accounts, res := m.accountService()
	if res != nil {
		return *res
	}

	updated, msg, err := accounts.UpdateProfile(ctx, patch)
	if err != nil {
		return failure(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		// the session ended while the request was in flight
		return failure(api.Errorf(api.KindRejected, "not logged in"))
	}
	user := m.user.Clone()
	patch.Apply(user)
	if updated != nil && updated.Valid() {
		user = updated.Clone()
	}
	if err := m.persistUser(ctx, user); err != nil {
		logger.Error("Failed to persist profile", logger.F("error", err))
		return failure(&api.Error{Kind: api.KindStorage, Message: "profile saved but could not be stored locally", Err: err})
	}
	m.user = user
	m.publish(Event{State: m.state, Reason: ReasonUpdated, User: user.Clone()})
	return Result{Success: true, User: user.Clone(), Message: msg}
}

// ChangePassword checks the new password locally, then changes it
func (m *Manager) ChangePassword(ctx context.Context, current, next, confirm string) Result {
	if current == "" {
		return invalid(validate.ErrEmptyPassword)
	}
	if err := validate.NewPassword(next, confirm); err != nil {
		return invalid(err)
	}
	if !m.IsAuthenticated() {
		return failure(api.Errorf(api.KindRejected, "not logged in"))
	}
	accounts, res := m.accountService()
	if res != nil {
		return *res
	}
	msg, err := accounts.ChangePassword(ctx, current, next)
	if err != nil {
		return failure(err)
	}
	return success(msg)
}

// ForgotPassword requests a reset link
func (m *Manager) ForgotPassword(ctx context.Context, email string) Result {
	if err := validate.Email(email); err != nil {
		return invalid(err)
	}
	accounts, res := m.accountService()
	if res != nil {
		return *res
	}
	msg, err := accounts.ForgotPassword(ctx, strings.TrimSpace(email))
	if err != nil {
		return failure(err)
	}
	return success(msg)
}

// ResetPassword sets a new password from a reset token
func (m *Manager) ResetPassword(ctx context.Context, resetToken, password, confirm string) Result {
	if strings.TrimSpace(resetToken) == "" {
		return invalid(api.Errorf(api.KindValidation, "reset token is required"))
	}
	if err := validate.NewPassword(password, confirm); err != nil {
		return invalid(err)
	}
	accounts, res := m.accountService()
	if res != nil {
		return *res
	}
	msg, err := accounts.ResetPassword(ctx, strings.TrimSpace(resetToken), password)
	if err != nil {
		return failure(err)
	}
	return success(msg)
}
