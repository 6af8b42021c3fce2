// Package auth is the client for the authentication service.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/existflow/stockdash/internal/api"
	"github.com/existflow/stockdash/internal/model"
)

const (
	pathLogin          = "/api/auth/login"
	pathVerify         = "/api/auth/verify"
	pathRegister       = "/api/auth/register"
	pathProfile        = "/api/auth/profile"
	pathChangePassword = "/api/auth/change-password"
	pathForgotPassword = "/api/auth/forgot-password"
	pathResetPassword  = "/api/auth/reset-password"
)

// LoginResponse is the payload of a successful login
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type,omitempty"`
	User        *model.User `json:"user"`
	ExpiresIn   int64       `json:"expires_in,omitempty"` // seconds, 0 when not supplied
}

// RegisterRequest is the account creation payload
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

// Client calls the auth service
type Client struct {
	api *api.Client
}

// New creates an auth client on top of the shared transport
func New(c *api.Client) *Client {
	return &Client{api: c}
}

// Login exchanges credentials for a token. A response that claims success
// without a token or user is reported as malformed.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var resp LoginResponse
	_, err := c.api.Do(ctx, api.Request{
		Method:         http.MethodPost,
		Path:           pathLogin,
		Body:           map[string]string{"username": username, "password": password},
		SkipAuthPolicy: true,
		Op:             "login",
	}, &resp)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(resp.AccessToken) == "" {
		return nil, api.Errorf(api.KindMalformed, "login response is missing the access token")
	}
	if resp.User == nil || !resp.User.Valid() {
		return nil, api.Errorf(api.KindMalformed, "login response is missing the user")
	}
	if resp.ExpiresIn < 0 {
		resp.ExpiresIn = 0
	}
	return &resp, nil
}

// CurrentUser fetches the user the token belongs to
func (c *Client) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	var raw json.RawMessage
	_, err := c.api.Do(ctx, api.Request{
		Path:           pathVerify,
		Token:          token,
		SkipAuthPolicy: true,
		Op:             "verify",
	}, &raw)
	if err != nil {
		return nil, err
	}
	return decodeUser(raw)
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (string, error) {
	meta, err := c.api.Do(ctx, api.Request{
		Method:         http.MethodPost,
		Path:           pathRegister,
		Body:           req,
		SkipAuthPolicy: true,
		Op:             "registration",
	}, nil)
	if err != nil {
		return "", err
	}
	return messageOr(meta.Message, "Account created"), nil
}

// UpdateProfile applies patch and returns the updated user when the
// service echoes it, or nil when it only acknowledges
func (c *Client) UpdateProfile(ctx context.Context, patch model.ProfilePatch) (*model.User, string, error) {
	var raw json.RawMessage
	meta, err := c.api.Do(ctx, api.Request{
		Method: http.MethodPut,
		Path:   pathProfile,
		Body:   patch,
		Op:     "profile update",
	}, &raw)
	if err != nil {
		// an acknowledgement without data is fine here
		if api.KindOf(err) != api.KindMalformed || meta.Status == 0 {
			return nil, "", err
		}
		return nil, messageOr(meta.Message, "Profile updated"), nil
	}
	user, err := decodeUser(raw)
	if err != nil {
		return nil, messageOr(meta.Message, "Profile updated"), nil
	}
	return user, messageOr(meta.Message, "Profile updated"), nil
}

// ChangePassword replaces the password of the logged-in user
func (c *Client) ChangePassword(ctx context.Context, current, next string) (string, error) {
	meta, err := c.api.Do(ctx, api.Request{
		Method: http.MethodPut,
		Path:   pathChangePassword,
		Body:   map[string]string{"current_password": current, "new_password": next},
		Op:     "password change",
	}, nil)
	if err != nil {
		return "", err
	}
	return messageOr(meta.Message, "Password changed"), nil
}

// ForgotPassword asks the service to send a reset link
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	meta, err := c.api.Do(ctx, api.Request{
		Method:         http.MethodPost,
		Path:           pathForgotPassword,
		Body:           map[string]string{"email": email},
		SkipAuthPolicy: true,
		Op:             "password reset request",
	}, nil)
	if err != nil {
		return "", err
	}
	return messageOr(meta.Message, "If the address is registered, a reset link has been sent"), nil
}

// ResetPassword sets a new password using a reset token
func (c *Client) ResetPassword(ctx context.Context, resetToken, password string) (string, error) {
	meta, err := c.api.Do(ctx, api.Request{
		Method:         http.MethodPost,
		Path:           pathResetPassword,
		Body:           map[string]string{"token": resetToken, "new_password": password},
		SkipAuthPolicy: true,
		Op:             "password reset",
	}, nil)
	if err != nil {
		return "", err
	}
	return messageOr(meta.Message, "Password has been reset"), nil
}

// decodeUser accepts both {user: {...}} and a bare user object
func decodeUser(raw json.RawMessage) (*model.User, error) {
	var wrapped struct {
		User *model.User `json:"user"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.User != nil && wrapped.User.Valid() {
		return wrapped.User, nil
	}
	var user model.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, &api.Error{Kind: api.KindMalformed, Message: "invalid user record from server", Err: err}
	}
	if !user.Valid() {
		return nil, api.Errorf(api.KindMalformed, "response is missing the user")
	}
	return &user, nil
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
