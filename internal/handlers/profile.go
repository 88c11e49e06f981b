package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avencourt/gatehouse/internal/models"
	"github.com/avencourt/gatehouse/internal/session"
	pkghttp "github.com/avencourt/gatehouse/pkg/http"
)

// ProfileServiceInterface defines the interface for profile logic
type ProfileServiceInterface interface {
	Get(ctx context.Context, id string) (*models.Account, error)
	Edit(ctx context.Context, id, username, email string) (*models.Account, error)
}

// ProfileHandler handles reads and edits of the caller's own account. The
// target id always comes from the session, never from the request.
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// EditRequest represents the request body for a profile edit
type EditRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
	Email    string `json:"email" validate:"required,email"`
}

// Me returns the caller's own account
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r)
	if sess == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	account, err := h.service.Get(r.Context(), sess.AccountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Account not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(account.Public())
}

// Edit updates the caller's username and email
func (h *ProfileHandler) Edit(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r)
	if sess == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	account, err := h.service.Edit(r.Context(), sess.AccountID, req.Username, req.Email)
	if err != nil {
		switch {
		case models.IsValidation(err):
			pkghttp.WriteBadRequest(w, err.Error())
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Account not found")
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "Username or email is already in use")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(account.Public())
}
