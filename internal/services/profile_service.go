package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/avencourt/gatehouse/internal/models"
	pkglogger "github.com/avencourt/gatehouse/pkg/logger"
)

// ProfileService reads and edits account profile fields. Credentials and
// verification state are out of its hands.
type ProfileService struct {
	repo        AccountRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewProfileService creates a new ProfileService
func NewProfileService(repo AccountRepository, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *ProfileService {
	return &ProfileService{
		repo:        repo,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Get returns the account for id, or ErrNotFound.
func (s *ProfileService) Get(ctx context.Context, id string) (*models.Account, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get account", slog.String("account_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return account, nil
}

// Edit updates the username and email for id. Both fields are required;
// uniqueness collisions with other accounts surface as ErrConflict.
func (s *ProfileService) Edit(ctx context.Context, id, username, email string) (*models.Account, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if username == "" {
		return nil, models.NewValidationError("username", "is required")
	}
	if email == "" {
		return nil, models.NewValidationError("email", "is required")
	}

	updated, err := s.repo.UpdateProfile(ctx, id, username, email)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			return nil, models.ErrNotFound
		case errors.Is(err, models.ErrConflict):
			return nil, models.ErrConflict
		default:
			s.logger.Error("failed to update profile",
				slog.String("account_id", id), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
	}

	s.logger.Info("profile updated", slog.String("account_id", updated.ID))
	s.auditLogger.LogAccountAction("profile_updated", updated.ID)

	return updated, nil
}
