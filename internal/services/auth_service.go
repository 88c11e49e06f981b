package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/avencourt/gatehouse/internal/auth"
	"github.com/avencourt/gatehouse/internal/models"
	"github.com/avencourt/gatehouse/internal/session"
	pkgauth "github.com/avencourt/gatehouse/pkg/auth"
	pkglogger "github.com/avencourt/gatehouse/pkg/logger"
)

// dummyPasswordHash is compared against when the username does not resolve,
// so that path costs a real bcrypt comparison like the wrong-password path.
var dummyPasswordHash = func() string {
	hash, err := pkgauth.HashPassword("gatehouse-timing-equalizer")
	if err != nil {
		panic(err)
	}
	return hash
}()

// LoginResult carries everything a successful authentication produces. The
// session is authoritative; Token is a supplementary short-lived bearer
// token that never grants access without the session.
type LoginResult struct {
	Account *models.Account
	Session *session.Session
	Token   string
}

// NotVerifiedError is returned when credentials check out but the email is
// unverified. It carries the account so the caller can offer a resend
// affordance. errors.Is(err, models.ErrEmailNotVerified) matches.
type NotVerifiedError struct {
	Account *models.Account
}

func (e *NotVerifiedError) Error() string {
	return models.ErrEmailNotVerified.Error()
}

func (e *NotVerifiedError) Is(target error) bool {
	return target == models.ErrEmailNotVerified
}

// AuthService handles login, logout and session introspection.
type AuthService struct {
	repo        AccountRepository
	sessions    session.Store
	tm          *auth.TokenManager
	timingDelay *auth.TimingDelay
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	repo AccountRepository,
	sessions session.Store,
	tm *auth.TokenManager,
	timingDelay *auth.TimingDelay,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		repo:        repo,
		sessions:    sessions,
		tm:          tm,
		timingDelay: timingDelay,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Login verifies credentials and establishes a session. A missing account
// and a wrong password fail identically, in content and in time.
func (s *AuthService) Login(ctx context.Context, username, password, ipAddress string) (*LoginResult, error) {
	start := time.Now()

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		s.failLogin("", "missing_credentials", ipAddress, start)
		return nil, models.ErrInvalidCredentials
	}

	account, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Burn a comparison so this path matches the wrong-password path.
			_ = pkgauth.ComparePassword(dummyPasswordHash, password)
			s.failLogin("", "invalid_credentials", ipAddress, start)
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to get account by username", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(account.PasswordHash, password); err != nil {
		s.failLogin(account.ID, "invalid_credentials", ipAddress, start)
		return nil, models.ErrInvalidCredentials
	}

	if !account.IsVerified {
		s.failLogin(account.ID, "email_not_verified", ipAddress, start)
		return nil, &NotVerifiedError{Account: account}
	}

	sess, err := s.sessions.Create(ctx, account.ID)
	if err != nil {
		s.logger.Error("failed to create session", slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	token, err := s.tm.Generate(account.ID, account.Username)
	if err != nil {
		s.logger.Error("failed to generate token", slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("account logged in", slog.String("account_id", account.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		AccountID: account.ID,
		IPAddress: ipAddress,
		Success:   true,
	})

	return &LoginResult{
		Account: account,
		Session: sess,
		Token:   token,
	}, nil
}

// Logout destroys the session. It always succeeds from the caller's
// perspective; teardown errors are logged only.
func (s *AuthService) Logout(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		s.logger.Error("failed to destroy session", slog.Any("error", err))
		return
	}

	s.logger.Info("session destroyed")
}

// CheckAuth is a pure read of session validity. It never fails: an absent
// or dangling session yields (nil, false).
func (s *AuthService) CheckAuth(ctx context.Context, sess *session.Session) (*models.Account, bool) {
	if sess == nil {
		return nil, false
	}

	account, err := s.repo.GetByID(ctx, sess.AccountID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to load account for session",
				slog.String("account_id", sess.AccountID), slog.Any("error", err))
		}
		return nil, false
	}

	return account, true
}

func (s *AuthService) failLogin(accountID, reason, ipAddress string, start time.Time) {
	s.logger.Info("login failed: " + reason)
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "login_failed",
		AccountID:     accountID,
		IPAddress:     ipAddress,
		FailureReason: reason,
		Success:       false,
	})
	if s.timingDelay != nil {
		s.timingDelay.WaitFrom(start)
	}
}
