package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avencourt/gatehouse/internal/models"
	"github.com/avencourt/gatehouse/internal/services"
	"github.com/avencourt/gatehouse/internal/session"
	pkghttp "github.com/avencourt/gatehouse/pkg/http"
)

// AuthServiceInterface defines the interface for login/logout business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, username, password, ipAddress string) (*services.LoginResult, error)
	Logout(ctx context.Context, sessionID string)
	CheckAuth(ctx context.Context, sess *session.Session) (*models.Account, bool)
}

// AuthHandler handles login, logout and session introspection requests
type AuthHandler struct {
	service  AuthServiceInterface
	cookies  session.CookieConfig
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, cookies session.CookieConfig, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		cookies:  cookies,
		ipConfig: ipConfig,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents a successful login
type LoginResponse struct {
	Message string                `json:"message"`
	Account *models.PublicAccount `json:"account"`
	Token   string                `json:"token,omitempty"`
}

// CheckAuthResponse tells the front end whether the caller holds a live
// session.
type CheckAuthResponse struct {
	LoggedIn bool                  `json:"loggedIn"`
	Account  *models.PublicAccount `json:"account,omitempty"`
}

// Login handles credential login. Missing accounts and wrong passwords
// produce the identical response.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)

	result, err := h.service.Login(r.Context(), req.Username, req.Password, ipAddress)
	if err != nil {
		var notVerified *services.NotVerifiedError
		switch {
		case errors.As(err, &notVerified):
			// The account's public view rides along so the front end can
			// offer a resend affordance.
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"error":   "email_not_verified",
				"message": "Please verify your email address before logging in",
				"account": notVerified.Account.Public(),
			})
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteError(w, http.StatusBadRequest, "invalid_credentials", "Username or password is wrong")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	session.SetCookie(w, result.Session, h.cookies)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(LoginResponse{
		Message: "Login successful",
		Account: result.Account.Public(),
		Token:   result.Token,
	})
}

// Logout destroys the caller's session and clears the cookie. It succeeds
// whether or not a session existed.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.service.Logout(r.Context(), session.CookieID(r, h.cookies))
	session.ClearCookie(w, h.cookies)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "Logged out"})
}

// CheckAuth reports session validity without mutating anything. There is no
// failure case; an absent or dangling session yields loggedIn=false.
func (h *AuthHandler) CheckAuth(w http.ResponseWriter, r *http.Request) {
	resp := CheckAuthResponse{}

	if account, ok := h.service.CheckAuth(r.Context(), session.FromContext(r)); ok {
		resp.LoggedIn = true
		resp.Account = account.Public()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
