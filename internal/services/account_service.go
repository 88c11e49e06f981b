package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avencourt/gatehouse/internal/models"
	"github.com/avencourt/gatehouse/internal/notify"
	"github.com/avencourt/gatehouse/internal/session"
	pkgauth "github.com/avencourt/gatehouse/pkg/auth"
	pkglogger "github.com/avencourt/gatehouse/pkg/logger"
)

// AccountRepository defines the credential-store operations the services
// need. The pgx implementation lives in internal/repositories.
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	GetByUsernameOrEmail(ctx context.Context, username, email string) ([]*models.Account, error)
	VerifyEmailByToken(ctx context.Context, token string) (*models.Account, error)
	SetVerificationToken(ctx context.Context, id, token string) error
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	ListPendingResets(ctx context.Context, now time.Time) ([]*models.Account, error)
	ConsumeResetToken(ctx context.Context, id, tokenHash, newPasswordHash string) (*models.Account, error)
	UpdateProfile(ctx context.Context, id, username, email string) (*models.Account, error)
	Delete(ctx context.Context, id string) error
	ClearExpiredResetTokens(ctx context.Context) (int64, error)
}

// notifyTimeout bounds the detached context used for fire-and-forget email.
const notifyTimeout = 30 * time.Second

// AccountService governs the account lifecycle: registration, email
// verification, resend and deletion.
type AccountService struct {
	repo             AccountRepository
	notifier         notify.Notifier
	sessions         session.Store
	logger           *slog.Logger
	auditLogger      *pkglogger.AuditLogger
	baseURL          string
	provisioningCode string
}

// NewAccountService creates a new AccountService. provisioningCode may be
// empty, which disables admin provisioning.
func NewAccountService(
	repo AccountRepository,
	notifier notify.Notifier,
	sessions session.Store,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
	baseURL string,
	provisioningCode string,
) *AccountService {
	return &AccountService{
		repo:             repo,
		notifier:         notifier,
		sessions:         sessions,
		logger:           logger,
		auditLogger:      auditLogger,
		baseURL:          baseURL,
		provisioningCode: provisioningCode,
	}
}

// Register creates an unverified account and dispatches the verification
// email. The email send is fire-and-forget: registration has already
// succeeded by the time it runs, and its failure is only logged.
func (s *AccountService) Register(ctx context.Context, email, username, password, provisioningCode string) (*models.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	if email == "" {
		return nil, models.NewValidationError("email", "is required")
	}
	if username == "" {
		return nil, models.NewValidationError("username", "is required")
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByUsernameOrEmail(ctx, username, email)
	if err != nil {
		s.logger.Error("failed to check for existing accounts", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if len(existing) > 0 {
		return nil, conflictError(existing, username, email)
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	token, err := pkgauth.GenerateToken(pkgauth.VerificationTokenBytes)
	if err != nil {
		s.logger.Error("failed to generate verification token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	account := &models.Account{
		Username:               username,
		Email:                  email,
		PasswordHash:           hashedPassword,
		IsVerified:             false,
		IsAdmin:                s.provisioningCode != "" && provisioningCode == s.provisioningCode,
		EmailVerificationToken: &token,
	}

	created, err := s.repo.Create(ctx, account)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			// Another registration won the race on the unique index.
			return nil, &models.ConflictError{Message: "Username or email is already taken."}
		}
		s.logger.Error("failed to create account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("account registered", slog.String("account_id", created.ID))
	s.auditLogger.LogAccountAction("account_registered", created.ID)

	link := fmt.Sprintf("%s/verify-email/%s", s.baseURL, token)
	s.dispatchVerification(created, link)

	return created, nil
}

// VerifyEmail consumes a verification token. The flip to verified and the
// token clear happen in one store operation; a reused token fails NotFound.
// A fresh session is established for the verified account.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) (*models.Account, *session.Session, error) {
	if token == "" {
		return nil, nil, models.ErrNotFound
	}

	account, err := s.repo.VerifyEmailByToken(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("verification token not found")
			return nil, nil, models.ErrNotFound
		}
		s.logger.Error("failed to verify email", slog.Any("error", err))
		return nil, nil, models.ErrInternalServer
	}

	sess, err := s.sessions.Create(ctx, account.ID)
	if err != nil {
		s.logger.Error("failed to create session after verification",
			slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, nil, models.ErrInternalServer
	}

	s.logger.Info("email verified", slog.String("account_id", account.ID))
	s.auditLogger.LogAccountAction("email_verified", account.ID)

	return account, sess, nil
}

// ResendVerification re-sends the verification email for a pending account.
// If the stored token was cleared through some other path, a fresh one is
// generated first. Repeated calls while verification is pending are
// idempotent.
func (s *AccountService) ResendVerification(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return models.NewValidationError("email", "is required")
	}

	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to look up account for resend", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if account.IsVerified {
		return models.ErrAlreadyVerified
	}

	token := ""
	if account.EmailVerificationToken != nil {
		token = *account.EmailVerificationToken
	}
	if token == "" {
		token, err = pkgauth.GenerateToken(pkgauth.VerificationTokenBytes)
		if err != nil {
			s.logger.Error("failed to generate verification token", slog.Any("error", err))
			return models.ErrInternalServer
		}
		if err := s.repo.SetVerificationToken(ctx, account.ID, token); err != nil {
			s.logger.Error("failed to store verification token",
				slog.String("account_id", account.ID), slog.Any("error", err))
			return models.ErrInternalServer
		}
	}

	s.logger.Info("verification email resent",
		slog.String("email", pkglogger.SanitizedEmail(email)))

	link := fmt.Sprintf("%s/verify-email/%s", s.baseURL, token)
	s.dispatchVerification(account, link)

	return nil
}

// Delete irreversibly removes an account.
func (s *AccountService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete account", slog.String("account_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("account deleted", slog.String("account_id", id))
	s.auditLogger.LogAccountAction("account_deleted", id)
	return nil
}

// dispatchVerification sends the verification email on a detached context
// so the caller's response does not wait on the mail provider.
func (s *AccountService) dispatchVerification(account *models.Account, link string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := s.notifier.SendVerification(ctx, account, link); err != nil {
			s.logger.Error("failed to send verification email",
				slog.String("account_id", account.ID),
				slog.String("email", pkglogger.SanitizedEmail(account.Email)),
				slog.Any("error", err))
		}
	}()
}

// conflictError builds the registration conflict message, naming which of
// the two identifiers is taken without revealing the owning account.
func conflictError(existing []*models.Account, username, email string) *models.ConflictError {
	usernameTaken := false
	emailTaken := false
	for _, account := range existing {
		if account.Username == username {
			usernameTaken = true
		}
		if account.Email == email {
			emailTaken = true
		}
	}

	switch {
	case usernameTaken && emailTaken:
		return &models.ConflictError{Message: "Username and email are already taken."}
	case usernameTaken:
		return &models.ConflictError{Message: "Username is already taken."}
	default:
		return &models.ConflictError{Message: "Email is already registered."}
	}
}
