package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avencourt/gatehouse/internal/auth"
	"github.com/avencourt/gatehouse/internal/models"
	"github.com/avencourt/gatehouse/internal/notify"
	"github.com/avencourt/gatehouse/internal/session"
	pkgauth "github.com/avencourt/gatehouse/pkg/auth"
	pkglogger "github.com/avencourt/gatehouse/pkg/logger"
)

// ResetResult carries the outcome of a successful password reset.
type ResetResult struct {
	Account *models.Account
	Session *session.Session
}

// PasswordResetService issues, validates and consumes password reset
// tokens. Only a bcrypt hash of a token is ever persisted; resolution is a
// scan over the non-expired pending set.
type PasswordResetService struct {
	repo        AccountRepository
	notifier    notify.Notifier
	sessions    session.Store
	timingDelay *auth.TimingDelay
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	frontendURL string
	tokenTTL    time.Duration
}

// NewPasswordResetService creates a new PasswordResetService
func NewPasswordResetService(
	repo AccountRepository,
	notifier notify.Notifier,
	sessions session.Store,
	timingDelay *auth.TimingDelay,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
	frontendURL string,
	tokenTTL time.Duration,
) *PasswordResetService {
	return &PasswordResetService{
		repo:        repo,
		notifier:    notifier,
		sessions:    sessions,
		timingDelay: timingDelay,
		logger:      logger,
		auditLogger: auditLogger,
		frontendURL: frontendURL,
		tokenTTL:    tokenTTL,
	}
}

// Forgot issues a reset token for the email if an account holds it. It
// returns nil either way: callers send the same generic acceptance message
// whether or not the email exists, and both paths do comparable hashing
// work so timing reveals nothing.
func (s *PasswordResetService) Forgot(ctx context.Context, email string) error {
	start := time.Now()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return models.NewValidationError("email", "is required")
	}

	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Do the same token + hash work as the hit path.
			if token, genErr := pkgauth.GenerateToken(pkgauth.ResetTokenBytes); genErr == nil {
				_, _ = pkgauth.HashResetToken(token)
			}
			s.logger.Info("password reset requested for unknown email",
				slog.String("email", pkglogger.SanitizedEmail(email)))
			s.waitFrom(start)
			return nil
		}
		s.logger.Error("failed to look up account for reset", slog.Any("error", err))
		return models.ErrInternalServer
	}

	token, err := pkgauth.GenerateToken(pkgauth.ResetTokenBytes)
	if err != nil {
		s.logger.Error("failed to generate reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	tokenHash, err := pkgauth.HashResetToken(token)
	if err != nil {
		s.logger.Error("failed to hash reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	expiresAt := time.Now().Add(s.tokenTTL)
	if err := s.repo.SetResetToken(ctx, account.ID, tokenHash, expiresAt); err != nil {
		s.logger.Error("failed to store reset token",
			slog.String("account_id", account.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("password reset issued", slog.String("account_id", account.ID))
	s.auditLogger.LogAccountAction("password_reset_requested", account.ID)

	// Reset issuance is complete once the hash is persisted; the email is
	// fire-and-forget.
	link := fmt.Sprintf("%s/reset/%s", s.frontendURL, token)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := s.notifier.SendPasswordReset(ctx, account, link); err != nil {
			s.logger.Error("failed to send reset email",
				slog.String("account_id", account.ID),
				slog.String("email", pkglogger.SanitizedEmail(account.Email)),
				slog.Any("error", err))
		}
	}()

	s.waitFrom(start)
	return nil
}

// ValidateToken resolves a plaintext reset token against the non-expired
// pending set. Not found, hash mismatch and expiry all collapse into
// ErrTokenInvalidOrExpired.
func (s *PasswordResetService) ValidateToken(ctx context.Context, token string) (*models.Account, error) {
	if token == "" {
		return nil, models.ErrTokenInvalidOrExpired
	}

	// The candidates are fetched first so no store-level lock is held
	// across the slow comparisons.
	candidates, err := s.repo.ListPendingResets(ctx, time.Now())
	if err != nil {
		s.logger.Error("failed to list pending resets", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	for _, account := range candidates {
		if account.ResetPasswordTokenHash == nil {
			continue
		}
		if pkgauth.CompareResetToken(*account.ResetPasswordTokenHash, token) {
			return account, nil
		}
	}

	return nil, models.ErrTokenInvalidOrExpired
}

// Reset consumes a token and replaces the password. Single use is enforced
// by the store's conditional update: of two racing calls with the same
// token, exactly one succeeds and the other observes InvalidOrExpired.
func (s *PasswordResetService) Reset(ctx context.Context, token, newPassword, confirmPassword string) (*ResetResult, error) {
	newPassword = strings.TrimSpace(newPassword)
	confirmPassword = strings.TrimSpace(confirmPassword)

	if newPassword == "" || confirmPassword == "" {
		return nil, models.NewValidationError("password", "password and confirmation are required")
	}
	if newPassword != confirmPassword {
		return nil, models.ErrPasswordMismatch
	}
	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return nil, err
	}

	account, err := s.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}

	newHash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash new password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	updated, err := s.repo.ConsumeResetToken(ctx, account.ID, *account.ResetPasswordTokenHash, newHash)
	if err != nil {
		if errors.Is(err, models.ErrTokenInvalidOrExpired) {
			// Lost the race: the token was consumed or superseded after
			// validation.
			return nil, models.ErrTokenInvalidOrExpired
		}
		s.logger.Error("failed to consume reset token",
			slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	sess, err := s.sessions.Create(ctx, updated.ID)
	if err != nil {
		s.logger.Error("failed to create session after reset",
			slog.String("account_id", updated.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("password reset completed", slog.String("account_id", updated.ID))
	s.auditLogger.LogPasswordChange(updated.ID, true)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := s.notifier.SendPasswordChanged(ctx, updated); err != nil {
			s.logger.Error("failed to send password changed email",
				slog.String("account_id", updated.ID), slog.Any("error", err))
		}
	}()

	return &ResetResult{Account: updated, Session: sess}, nil
}

func (s *PasswordResetService) waitFrom(start time.Time) {
	if s.timingDelay != nil {
		s.timingDelay.WaitFrom(start)
	}
}
