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
	"github.com/go-chi/chi/v5"
)

// resetAcceptedMessage is returned by Forgot regardless of whether the
// email resolves to an account.
const resetAcceptedMessage = "If the email exists, a reset link has been sent."

// PasswordResetServiceInterface defines the interface for reset-token logic
type PasswordResetServiceInterface interface {
	Forgot(ctx context.Context, email string) error
	ValidateToken(ctx context.Context, token string) (*models.Account, error)
	Reset(ctx context.Context, token, newPassword, confirmPassword string) (*services.ResetResult, error)
}

// PasswordResetHandler handles the forgot/validate/reset flow
type PasswordResetHandler struct {
	service PasswordResetServiceInterface
	cookies session.CookieConfig
}

// NewPasswordResetHandler creates a new PasswordResetHandler
func NewPasswordResetHandler(service PasswordResetServiceInterface, cookies session.CookieConfig) *PasswordResetHandler {
	return &PasswordResetHandler{
		service: service,
		cookies: cookies,
	}
}

// ForgotRequest represents the request body for requesting a reset link
type ForgotRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetRequest represents the request body for setting a new password
type ResetRequest struct {
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// Forgot accepts a reset request. Existing and nonexistent emails produce
// the identical response.
func (h *PasswordResetHandler) Forgot(w http.ResponseWriter, r *http.Request) {
	var req ForgotRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.Forgot(r.Context(), req.Email); err != nil {
		if models.IsValidation(err) {
			pkghttp.WriteBadRequest(w, err.Error())
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": resetAcceptedMessage})
}

// CheckToken lets the front end test a reset link before showing the
// new-password form.
func (h *PasswordResetHandler) CheckToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	if _, err := h.service.ValidateToken(r.Context(), token); err != nil {
		if errors.Is(err, models.ErrTokenInvalidOrExpired) {
			pkghttp.WriteBadRequest(w, "Token is invalid or has expired")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "Token is valid"})
}

// Reset consumes the token and sets the new password. A consumed or expired
// token fails the same way an unknown one does.
func (h *PasswordResetHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	token := chi.URLParam(r, "token")

	result, err := h.service.Reset(r.Context(), token, req.Password, req.ConfirmPassword)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrPasswordMismatch):
			pkghttp.WriteBadRequest(w, "Passwords do not match")
		case errors.Is(err, models.ErrTokenInvalidOrExpired):
			pkghttp.WriteBadRequest(w, "Token is invalid or has expired")
		case models.IsValidation(err):
			pkghttp.WriteBadRequest(w, err.Error())
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	session.SetCookie(w, result.Session, h.cookies)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Password has been reset",
		"account": result.Account.Public(),
	})
}
