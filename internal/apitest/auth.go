package apitest

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/existflow/stockdash/internal/model"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type fieldError struct {
	Loc []string `json:"loc"`
	Msg string   `json:"msg"`
}

func (s *Server) handleLogin(c echo.Context) error {
	s.mu.Lock()
	s.loginCalls++
	override, gate := s.loginOverride, s.loginGate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		}
	}
	if override != nil {
		return override(c)
	}

	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request")
	}

	s.mu.Lock()
	acct, found := s.accounts[req.Username]
	omit := s.omitExpiresIn
	s.mu.Unlock()

	if !found || bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(req.Password)) != nil {
		return fail(c, http.StatusUnauthorized, "Incorrect username or password")
	}

	token, expiresIn, err := s.mintToken(acct.user.Username, string(acct.user.ID))
	if err != nil {
		c.Logger().Error("token error:", err)
		return fail(c, http.StatusInternalServerError, "Internal error")
	}

	data := map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"user":         acct.user,
	}
	if !omit {
		data["expires_in"] = expiresIn
	}
	return ok(c, "Login successful", data)
}

func (s *Server) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request")
	}

	var missing []fieldError
	for field, value := range map[string]string{"username": req.Username, "email": req.Email, "password": req.Password} {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, fieldError{Loc: []string{"body", field}, Msg: "field required"})
		}
	}
	if len(missing) > 0 {
		return fail(c, http.StatusUnprocessableEntity, missing)
	}

	s.mu.Lock()
	_, taken := s.accounts[req.Username]
	s.mu.Unlock()
	if taken {
		return fail(c, http.StatusConflict, "Username already registered")
	}

	s.AddUser(req.Username, req.Password, model.User{Email: req.Email, FullName: req.FullName, Role: "user"})
	return ok(c, "Registration successful", nil)
}

func (s *Server) current(c echo.Context) *account {
	username, _ := c.Get("username").(string)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[username]
}

func (s *Server) handleVerify(c echo.Context) error {
	acct := s.current(c)
	s.mu.Lock()
	u := acct.user
	s.mu.Unlock()
	return ok(c, "", map[string]any{"user": u})
}

func (s *Server) handleProfile(c echo.Context) error {
	var patch model.ProfilePatch
	if err := c.Bind(&patch); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request")
	}
	acct := s.current(c)
	s.mu.Lock()
	patch.Apply(&acct.user)
	u := acct.user
	s.mu.Unlock()
	return ok(c, "Profile updated", map[string]any{"user": u})
}

func (s *Server) handleChangePassword(c echo.Context) error {
	var req struct {
		Current string `json:"current_password"`
		New     string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request")
	}
	acct := s.current(c)
	if bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(req.Current)) != nil {
		return fail(c, http.StatusBadRequest, "Current password is incorrect")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.New), bcrypt.MinCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Internal error")
	}
	s.mu.Lock()
	acct.passwordHash = hash
	s.mu.Unlock()
	return ok(c, "Password changed successfully", nil)
}

func (s *Server) handleForgotPassword(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return fail(c, http.StatusBadRequest, "Email is required")
	}
	// same answer for unknown addresses
	return ok(c, "If that email is registered, a reset link has been sent", nil)
}

func (s *Server) handleResetPassword(c echo.Context) error {
	var req struct {
		Token string `json:"token"`
		New   string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request")
	}

	s.mu.Lock()
	username, found := s.resetTokens[req.Token]
	delete(s.resetTokens, req.Token)
	acct := s.accounts[username]
	s.mu.Unlock()
	if !found || acct == nil {
		return fail(c, http.StatusBadRequest, "Invalid or expired reset token")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.New), bcrypt.MinCost)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "Internal error")
	}
	s.mu.Lock()
	acct.passwordHash = hash
	s.mu.Unlock()
	return ok(c, "Password has been reset", nil)
}
