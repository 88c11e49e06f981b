package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avencourt/gatehouse/internal/models"
	"github.com/avencourt/gatehouse/internal/session"
	pkghttp "github.com/avencourt/gatehouse/pkg/http"
	"github.com/go-chi/chi/v5"
)

// AccountServiceInterface defines the interface for account lifecycle logic
type AccountServiceInterface interface {
	Register(ctx context.Context, email, username, password, provisioningCode string) (*models.Account, error)
	VerifyEmail(ctx context.Context, token string) (*models.Account, *session.Session, error)
	ResendVerification(ctx context.Context, email string) error
	Delete(ctx context.Context, id string) error
}

// AccountGetter resolves an account id to its record. ProfileService
// satisfies this.
type AccountGetter interface {
	Get(ctx context.Context, id string) (*models.Account, error)
}

// SessionDestroyer tears down a session. AuthService satisfies this.
type SessionDestroyer interface {
	Logout(ctx context.Context, sessionID string)
}

// AccountHandler handles registration, email verification and deletion
type AccountHandler struct {
	service     AccountServiceInterface
	accounts    AccountGetter
	sessions    SessionDestroyer
	cookies     session.CookieConfig
	frontendURL string
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(
	service AccountServiceInterface,
	accounts AccountGetter,
	sessions SessionDestroyer,
	cookies session.CookieConfig,
	frontendURL string,
) *AccountHandler {
	return &AccountHandler{
		service:     service,
		accounts:    accounts,
		sessions:    sessions,
		cookies:     cookies,
		frontendURL: frontendURL,
	}
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=1,max=64"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	AdminCode string `json:"adminCode"`
}

// ResendVerificationRequest represents the request body for resending the
// verification email
type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Register handles account creation. The response names which identifier is
// taken on conflict but never reveals the owning account.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	account, err := h.service.Register(r.Context(), req.Email, req.Username, req.Password, req.AdminCode)
	if err != nil {
		switch {
		case models.IsValidation(err), errors.Is(err, models.ErrConflict):
			pkghttp.WriteBadRequest(w, err.Error())
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Registration successful. Please check your email to verify your account.",
		"account": account.Public(),
	})
}

// VerifyEmail consumes the emailed verification link. The browser lands on
// the front end either way: the welcome page with a fresh session on
// success, the login page on an invalid or already-used token.
func (h *AccountHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	_, sess, err := h.service.VerifyEmail(r.Context(), token)
	if err != nil {
		http.Redirect(w, r, h.frontendURL+"/login", http.StatusFound)
		return
	}

	session.SetCookie(w, sess, h.cookies)
	http.Redirect(w, r, h.frontendURL+"/welcome", http.StatusFound)
}

// ResendVerification re-sends the verification email for a pending account
func (h *AccountHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req ResendVerificationRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.ResendVerification(r.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Account not found")
		case errors.Is(err, models.ErrAlreadyVerified):
			pkghttp.WriteBadRequest(w, "Email address is already verified")
		case models.IsValidation(err):
			pkghttp.WriteBadRequest(w, err.Error())
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "Verification email sent"})
}

// Delete removes an account. The caller must hold a session and be either
// the target account or an admin.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r)
	if sess == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	caller, err := h.accounts.Get(r.Context(), sess.AccountID)
	if err != nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	targetID := chi.URLParam(r, "id")
	if targetID != caller.ID && !caller.IsAdmin {
		pkghttp.WriteForbidden(w, "Not allowed to delete this account")
		return
	}

	if err := h.service.Delete(r.Context(), targetID); err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Account not found")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	// Self-deletion also ends the session.
	if targetID == caller.ID {
		h.sessions.Logout(r.Context(), sess.ID)
		session.ClearCookie(w, h.cookies)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "Account deleted"})
}
