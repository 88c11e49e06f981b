package services

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/avencourt/gatehouse/internal/models"
	"github.com/avencourt/gatehouse/internal/session"
	pkglogger "github.com/avencourt/gatehouse/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccountService(repo *MockAccountRepository, notifier *MockNotifier, provisioningCode string) (*AccountService, session.Store) {
	logger := slog.Default()
	sessions := session.NewMemoryStore(time.Hour)
	svc := NewAccountService(
		repo,
		notifier,
		sessions,
		logger,
		pkglogger.NewAuditLogger(logger),
		"http://localhost:8080",
		provisioningCode,
	)
	return svc, sessions
}

// ============================================================================
// Register Tests
// ============================================================================

func TestAccountService_Register_Success(t *testing.T) {
	var createdToken *string
	repo := &MockAccountRepository{
		GetByUsernameOrEmailFunc: func(ctx context.Context, username, email string) ([]*models.Account, error) {
			return []*models.Account{}, nil
		},
		CreateFunc: func(ctx context.Context, account *models.Account) (*models.Account, error) {
			account.ID = "acct_123"
			account.CreatedAt = time.Now()
			account.UpdatedAt = time.Now()
			createdToken = account.EmailVerificationToken
			return account, nil
		},
	}
	notifier := &MockNotifier{}
	svc, _ := newAccountService(repo, notifier, "")

	account, err := svc.Register(context.Background(), "User@Example.com", "alice", "SecurePass123", "")

	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, "acct_123", account.ID)
	assert.Equal(t, "user@example.com", account.Email)
	assert.False(t, account.IsVerified)
	assert.False(t, account.IsAdmin)

	require.NotNil(t, createdToken)
	// 64 random bytes hex-encoded
	assert.Len(t, *createdToken, 128)

	// The verification email is dispatched off the request path.
	assert.Eventually(t, func() bool {
		links := notifier.SentVerificationLinks()
		return len(links) == 1 && strings.HasSuffix(links[0], "/verify-email/"+*createdToken)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAccountService_Register_ConflictMessages(t *testing.T) {
	existing := NewTestAccount("acct_1", "alice", "alice@example.com")

	tests := []struct {
		name     string
		username string
		email    string
		want     string
	}{
		{"both taken", "alice", "alice@example.com", "Username and email are already taken."},
		{"username taken", "alice", "new@example.com", "Username is already taken."},
		{"email taken", "bob", "alice@example.com", "Email is already registered."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockAccountRepository{
				GetByUsernameOrEmailFunc: func(ctx context.Context, username, email string) ([]*models.Account, error) {
					return []*models.Account{existing}, nil
				},
			}
			svc, _ := newAccountService(repo, &MockNotifier{}, "")

			_, err := svc.Register(context.Background(), tt.email, tt.username, "SecurePass123", "")

			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrConflict)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestAccountService_Register_CreateRaceConflict(t *testing.T) {
	repo := &MockAccountRepository{
		GetByUsernameOrEmailFunc: func(ctx context.Context, username, email string) ([]*models.Account, error) {
			return []*models.Account{}, nil
		},
		CreateFunc: func(ctx context.Context, account *models.Account) (*models.Account, error) {
			return nil, models.ErrConflict
		},
	}
	svc, _ := newAccountService(repo, &MockNotifier{}, "")

	_, err := svc.Register(context.Background(), "alice@example.com", "alice", "SecurePass123", "")

	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestAccountService_Register_WeakPassword(t *testing.T) {
	svc, _ := newAccountService(&MockAccountRepository{}, &MockNotifier{}, "")

	_, err := svc.Register(context.Background(), "alice@example.com", "alice", "short", "")

	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
}

func TestAccountService_Register_MissingFields(t *testing.T) {
	svc, _ := newAccountService(&MockAccountRepository{}, &MockNotifier{}, "")

	_, err := svc.Register(context.Background(), "", "alice", "SecurePass123", "")
	assert.True(t, models.IsValidation(err))

	_, err = svc.Register(context.Background(), "alice@example.com", "   ", "SecurePass123", "")
	assert.True(t, models.IsValidation(err))
}

func TestAccountService_Register_AdminProvisioning(t *testing.T) {
	newRepo := func() *MockAccountRepository {
		return &MockAccountRepository{
			GetByUsernameOrEmailFunc: func(ctx context.Context, username, email string) ([]*models.Account, error) {
				return []*models.Account{}, nil
			},
			CreateFunc: func(ctx context.Context, account *models.Account) (*models.Account, error) {
				account.ID = "acct_123"
				return account, nil
			},
		}
	}

	t.Run("matching code grants admin", func(t *testing.T) {
		svc, _ := newAccountService(newRepo(), &MockNotifier{}, "provision-ok")
		account, err := svc.Register(context.Background(), "a@example.com", "a", "SecurePass123", "provision-ok")
		require.NoError(t, err)
		assert.True(t, account.IsAdmin)
	})

	t.Run("wrong code does not", func(t *testing.T) {
		svc, _ := newAccountService(newRepo(), &MockNotifier{}, "provision-ok")
		account, err := svc.Register(context.Background(), "a@example.com", "a", "SecurePass123", "nope")
		require.NoError(t, err)
		assert.False(t, account.IsAdmin)
	})

	t.Run("disabled provisioning never grants admin", func(t *testing.T) {
		svc, _ := newAccountService(newRepo(), &MockNotifier{}, "")
		account, err := svc.Register(context.Background(), "a@example.com", "a", "SecurePass123", "")
		require.NoError(t, err)
		assert.False(t, account.IsAdmin)
	})
}

// ============================================================================
// VerifyEmail Tests
// ============================================================================

func TestAccountService_VerifyEmail_Success(t *testing.T) {
	verified := NewTestAccount("acct_123", "alice", "alice@example.com")
	repo := &MockAccountRepository{
		VerifyEmailByTokenFunc: func(ctx context.Context, token string) (*models.Account, error) {
			assert.Equal(t, "tok_abc", token)
			return verified, nil
		},
	}
	svc, sessions := newAccountService(repo, &MockNotifier{}, "")

	account, sess, err := svc.VerifyEmail(context.Background(), "tok_abc")

	require.NoError(t, err)
	assert.Equal(t, "acct_123", account.ID)
	require.NotNil(t, sess)
	assert.Equal(t, "acct_123", sess.AccountID)

	stored, err := sessions.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "acct_123", stored.AccountID)
}

func TestAccountService_VerifyEmail_UnknownOrReusedToken(t *testing.T) {
	repo := &MockAccountRepository{
		VerifyEmailByTokenFunc: func(ctx context.Context, token string) (*models.Account, error) {
			return nil, models.ErrNotFound
		},
	}
	svc, _ := newAccountService(repo, &MockNotifier{}, "")

	_, _, err := svc.VerifyEmail(context.Background(), "tok_used")

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAccountService_VerifyEmail_EmptyToken(t *testing.T) {
	svc, _ := newAccountService(&MockAccountRepository{}, &MockNotifier{}, "")

	_, _, err := svc.VerifyEmail(context.Background(), "")

	assert.ErrorIs(t, err, models.ErrNotFound)
}

// ============================================================================
// ResendVerification Tests
// ============================================================================

func TestAccountService_ResendVerification_ReusesPendingToken(t *testing.T) {
	account := NewTestAccountUnverified("acct_123", "alice", "alice@example.com", "pending_token")
	setCalled := false
	repo := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return account, nil
		},
		SetVerificationTokenFunc: func(ctx context.Context, id, token string) error {
			setCalled = true
			return nil
		},
	}
	notifier := &MockNotifier{}
	svc, _ := newAccountService(repo, notifier, "")

	err := svc.ResendVerification(context.Background(), "Alice@Example.com")

	require.NoError(t, err)
	assert.False(t, setCalled, "existing pending token should be reused")

	assert.Eventually(t, func() bool {
		links := notifier.SentVerificationLinks()
		return len(links) == 1 && strings.HasSuffix(links[0], "/verify-email/pending_token")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAccountService_ResendVerification_RegeneratesMissingToken(t *testing.T) {
	account := NewTestAccount("acct_123", "alice", "alice@example.com")
	account.IsVerified = false
	var newToken string
	repo := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return account, nil
		},
		SetVerificationTokenFunc: func(ctx context.Context, id, token string) error {
			assert.Equal(t, "acct_123", id)
			newToken = token
			return nil
		},
	}
	notifier := &MockNotifier{}
	svc, _ := newAccountService(repo, notifier, "")

	err := svc.ResendVerification(context.Background(), "alice@example.com")

	require.NoError(t, err)
	assert.Len(t, newToken, 128)

	assert.Eventually(t, func() bool {
		return len(notifier.SentVerificationLinks()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAccountService_ResendVerification_UnknownEmail(t *testing.T) {
	svc, _ := newAccountService(&MockAccountRepository{}, &MockNotifier{}, "")

	err := svc.ResendVerification(context.Background(), "ghost@example.com")

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAccountService_ResendVerification_AlreadyVerified(t *testing.T) {
	account := NewTestAccount("acct_123", "alice", "alice@example.com")
	repo := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return account, nil
		},
	}
	svc, _ := newAccountService(repo, &MockNotifier{}, "")

	err := svc.ResendVerification(context.Background(), "alice@example.com")

	assert.ErrorIs(t, err, models.ErrAlreadyVerified)
}

// ============================================================================
// Delete Tests
// ============================================================================

func TestAccountService_Delete_Success(t *testing.T) {
	deleted := false
	repo := &MockAccountRepository{
		DeleteFunc: func(ctx context.Context, id string) error {
			assert.Equal(t, "acct_123", id)
			deleted = true
			return nil
		},
	}
	svc, _ := newAccountService(repo, &MockNotifier{}, "")

	err := svc.Delete(context.Background(), "acct_123")

	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestAccountService_Delete_NotFound(t *testing.T) {
	repo := &MockAccountRepository{
		DeleteFunc: func(ctx context.Context, id string) error {
			return models.ErrNotFound
		},
	}
	svc, _ := newAccountService(repo, &MockNotifier{}, "")

	err := svc.Delete(context.Background(), "ghost")

	assert.ErrorIs(t, err, models.ErrNotFound)
}
