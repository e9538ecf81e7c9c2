package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/NordCoder/AuthGate/internal/domain/autherr"
	"github.com/NordCoder/AuthGate/internal/domain/identity"
	"github.com/NordCoder/AuthGate/internal/obs"
)

// Controller is the thin HTTP surface over the orchestrator. It owns no
// business logic: it decodes requests, calls the usecase, and maps the error
// taxonomy to status codes in one place.
type Controller struct {
	log *zap.Logger
	uc  *Usecase
}

func NewController(uc *Usecase, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{log: log, uc: uc}
}

// Register mounts the auth routes on mux.
func (c *Controller) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", c.handleRegister)
	mux.HandleFunc("POST /api/auth/login", c.handleLogin)
	mux.HandleFunc("POST /api/auth/refresh", c.handleRefresh)
	mux.HandleFunc("POST /api/auth/oauth", c.handleOAuth)
	mux.HandleFunc("GET /api/auth/verify", c.handleVerify)
	mux.HandleFunc("POST /api/auth/forgot-password", c.handleForgotPassword)
	mux.HandleFunc("POST /api/auth/change-password", c.handleChangePassword)

	mux.Handle("POST /api/auth/logout", c.requireAuth(c.handleLogout))
	mux.Handle("POST /api/auth/resend-verification", c.requireAuth(c.handleResendVerification))
	mux.Handle("GET /api/auth/status", c.requireAuth(c.handleStatus))
	mux.Handle("DELETE /api/auth/users/{id}", c.requireAuth(c.handleDeleteAccount))
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
	UserID       int64  `json:"userId"`
}

type oauthRequest struct {
	Email     string `json:"email"`
	SubjectID string `json:"subjectId"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type changePasswordRequest struct {
	NewPassword        string `json:"newPassword"`
	NewPasswordConfirm string `json:"newPasswordConfirm"`
}

func (c *Controller) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !c.decode(w, r, &req) {
		return
	}
	usr, err := c.uc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	c.json(w, http.StatusCreated, map[string]any{
		"userId":  usr.ID,
		"email":   usr.Email,
		"message": "User registered",
	})
}

func (c *Controller) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !c.decode(w, r, &req) {
		return
	}
	_, pair, err := c.uc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	c.json(w, http.StatusCreated, pair)
}

func (c *Controller) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !c.decode(w, r, &req) {
		return
	}
	access, err := c.uc.Refresh(r.Context(), req.RefreshToken, req.UserID)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	c.json(w, http.StatusOK, map[string]string{"accessToken": access})
}

func (c *Controller) handleOAuth(w http.ResponseWriter, r *http.Request) {
	var req oauthRequest
	if !c.decode(w, r, &req) {
		return
	}
	_, pair, err := c.uc.OAuthSignIn(r.Context(), identity.External{
		Email:     req.Email,
		SubjectID: req.SubjectID,
	})
	if err != nil {
		c.fail(w, r, err)
		return
	}
	c.json(w, http.StatusCreated, pair)
}

func (c *Controller) handleVerify(w http.ResponseWriter, r *http.Request) {
	tok := r.URL.Query().Get("token")
	uid, ok := parseUID(r.URL.Query().Get("uid"))
	if tok == "" || !ok {
		c.fail(w, r, autherr.New(autherr.Validation, "missing token or uid in query parameters"))
		return
	}
	already, err := c.uc.Verify(r.Context(), tok, uid)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	msg := "Email verified! You can now log in."
	if already {
		msg = "Account already activated"
	}
	c.json(w, http.StatusOK, map[string]string{"message": msg})
}

func (c *Controller) handleLogout(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	if err := c.uc.Logout(r.Context(), uid); err != nil {
		c.fail(w, r, err)
		return
	}
	c.json(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (c *Controller) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	already, err := c.uc.ResendVerification(r.Context(), uid)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	if already {
		c.json(w, http.StatusOK, map[string]string{"message": "Account already activated"})
		return
	}
	c.json(w, http.StatusCreated, map[string]string{"message": "Verification email sent"})
}

func (c *Controller) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !c.decode(w, r, &req) {
		return
	}
	if err := c.uc.ForgotPassword(r.Context(), req.Email); err != nil {
		c.fail(w, r, err)
		return
	}
	c.json(w, http.StatusCreated, map[string]string{"message": "Password reset email sent"})
}

func (c *Controller) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	tok := r.URL.Query().Get("token")
	uid, ok := parseUID(r.URL.Query().Get("uid"))
	if tok == "" || !ok {
		c.fail(w, r, autherr.New(autherr.Validation, "missing token or uid in query parameters"))
		return
	}
	var req changePasswordRequest
	if !c.decode(w, r, &req) {
		return
	}
	if err := c.uc.ChangePassword(r.Context(), tok, uid, req.NewPassword, req.NewPasswordConfirm); err != nil {
		c.fail(w, r, err)
		return
	}
	c.json(w, http.StatusOK, map[string]string{"message": "Password updated successfully."})
}

func (c *Controller) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	targetID, ok := parseUID(r.PathValue("id"))
	if !ok {
		c.fail(w, r, autherr.New(autherr.Validation, "invalid user id"))
		return
	}
	requesterID, _ := UserIDFromCtx(r.Context())

	requester, err := c.uc.Whoami(r.Context(), bearer(r))
	if err != nil {
		c.fail(w, r, err)
		return
	}
	if err := c.uc.DeleteAccount(r.Context(), targetID, requesterID, requester.Role); err != nil {
		c.fail(w, r, err)
		return
	}
	c.json(w, http.StatusOK, map[string]string{"message": "Your account has been successfully deleted."})
}

func (c *Controller) handleStatus(w http.ResponseWriter, r *http.Request) {
	usr, err := c.uc.Whoami(r.Context(), bearer(r))
	if err != nil {
		c.fail(w, r, err)
		return
	}
	c.json(w, http.StatusOK, usr)
}

func (c *Controller) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		c.fail(w, r, autherr.New(autherr.Validation, "malformed request body"))
		return false
	}
	return true
}

func (c *Controller) json(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// fail maps the error taxonomy to a status code and writes an opaque body.
// Wrapped upstream causes go to the log only.
func (c *Controller) fail(w http.ResponseWriter, r *http.Request, err error) {
	var e *autherr.Error
	if !errors.As(err, &e) {
		e = autherr.New(autherr.Upstream, "internal error")
	}

	log := obs.WithTrace(r.Context(), c.log)
	status := http.StatusInternalServerError
	switch e.Kind {
	case autherr.Validation:
		status = http.StatusBadRequest
	case autherr.Authentication:
		status = http.StatusUnauthorized
	case autherr.Authorization:
		status = http.StatusForbidden
	case autherr.NotFound:
		status = http.StatusNotFound
	case autherr.Conflict:
		status = http.StatusConflict
	case autherr.Upstream:
		status = http.StatusBadGateway
		log.Error("upstream failure",
			zap.String("path", r.URL.Path),
			zap.Error(errors.Unwrap(e)),
		)
	}

	body := map[string]string{"message": e.Message}
	if e.Field != "" {
		body["field"] = e.Field
	}
	if e.Kind == autherr.Upstream {
		// Opaque to the caller; detail stays in the log.
		body["message"] = "upstream failure"
	}
	c.json(w, status, body)
}

func parseUID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
