package services

import (
	"context"
	"sync"
	"time"

	"github.com/avencourt/gatehouse/internal/models"
	pkgauth "github.com/avencourt/gatehouse/pkg/auth"
)

// MockAccountRepository implements AccountRepository for testing
type MockAccountRepository struct {
	CreateFunc                  func(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByIDFunc                 func(ctx context.Context, id string) (*models.Account, error)
	GetByEmailFunc              func(ctx context.Context, email string) (*models.Account, error)
	GetByUsernameFunc           func(ctx context.Context, username string) (*models.Account, error)
	GetByUsernameOrEmailFunc    func(ctx context.Context, username, email string) ([]*models.Account, error)
	VerifyEmailByTokenFunc      func(ctx context.Context, token string) (*models.Account, error)
	SetVerificationTokenFunc    func(ctx context.Context, id, token string) error
	SetResetTokenFunc           func(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	ListPendingResetsFunc       func(ctx context.Context, now time.Time) ([]*models.Account, error)
	ConsumeResetTokenFunc       func(ctx context.Context, id, tokenHash, newPasswordHash string) (*models.Account, error)
	UpdateProfileFunc           func(ctx context.Context, id, username, email string) (*models.Account, error)
	DeleteFunc                  func(ctx context.Context, id string) error
	ClearExpiredResetTokensFunc func(ctx context.Context) (int64, error)
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByUsernameOrEmail(ctx context.Context, username, email string) ([]*models.Account, error) {
	if m.GetByUsernameOrEmailFunc != nil {
		return m.GetByUsernameOrEmailFunc(ctx, username, email)
	}
	return []*models.Account{}, nil
}

func (m *MockAccountRepository) VerifyEmailByToken(ctx context.Context, token string) (*models.Account, error) {
	if m.VerifyEmailByTokenFunc != nil {
		return m.VerifyEmailByTokenFunc(ctx, token)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) SetVerificationToken(ctx context.Context, id, token string) error {
	if m.SetVerificationTokenFunc != nil {
		return m.SetVerificationTokenFunc(ctx, id, token)
	}
	return nil
}

func (m *MockAccountRepository) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	if m.SetResetTokenFunc != nil {
		return m.SetResetTokenFunc(ctx, id, tokenHash, expiresAt)
	}
	return nil
}

func (m *MockAccountRepository) ListPendingResets(ctx context.Context, now time.Time) ([]*models.Account, error) {
	if m.ListPendingResetsFunc != nil {
		return m.ListPendingResetsFunc(ctx, now)
	}
	return []*models.Account{}, nil
}

func (m *MockAccountRepository) ConsumeResetToken(ctx context.Context, id, tokenHash, newPasswordHash string) (*models.Account, error) {
	if m.ConsumeResetTokenFunc != nil {
		return m.ConsumeResetTokenFunc(ctx, id, tokenHash, newPasswordHash)
	}
	return nil, models.ErrTokenInvalidOrExpired
}

func (m *MockAccountRepository) UpdateProfile(ctx context.Context, id, username, email string) (*models.Account, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, id, username, email)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAccountRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockAccountRepository) ClearExpiredResetTokens(ctx context.Context) (int64, error) {
	if m.ClearExpiredResetTokensFunc != nil {
		return m.ClearExpiredResetTokensFunc(ctx)
	}
	return 0, nil
}

// MockNotifier implements notify.Notifier for testing, recording what was
// sent so tests can assert on dispatched mail.
type MockNotifier struct {
	mu sync.Mutex

	SendVerificationFunc    func(ctx context.Context, account *models.Account, link string) error
	SendPasswordResetFunc   func(ctx context.Context, account *models.Account, link string) error
	SendPasswordChangedFunc func(ctx context.Context, account *models.Account) error

	verificationLinks []string
	resetLinks        []string
	changedRecipients []string
}

func (m *MockNotifier) SendVerification(ctx context.Context, account *models.Account, link string) error {
	m.mu.Lock()
	m.verificationLinks = append(m.verificationLinks, link)
	m.mu.Unlock()
	if m.SendVerificationFunc != nil {
		return m.SendVerificationFunc(ctx, account, link)
	}
	return nil
}

func (m *MockNotifier) SendPasswordReset(ctx context.Context, account *models.Account, link string) error {
	m.mu.Lock()
	m.resetLinks = append(m.resetLinks, link)
	m.mu.Unlock()
	if m.SendPasswordResetFunc != nil {
		return m.SendPasswordResetFunc(ctx, account, link)
	}
	return nil
}

func (m *MockNotifier) SendPasswordChanged(ctx context.Context, account *models.Account) error {
	m.mu.Lock()
	m.changedRecipients = append(m.changedRecipients, account.Email)
	m.mu.Unlock()
	if m.SendPasswordChangedFunc != nil {
		return m.SendPasswordChangedFunc(ctx, account)
	}
	return nil
}

// SentVerificationLinks returns a copy of the recorded verification links.
func (m *MockNotifier) SentVerificationLinks() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.verificationLinks...)
}

// SentResetLinks returns a copy of the recorded reset links.
func (m *MockNotifier) SentResetLinks() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.resetLinks...)
}

// SentChangedRecipients returns a copy of the password-changed recipients.
func (m *MockNotifier) SentChangedRecipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.changedRecipients...)
}

// NewTestAccount constructs a verified account for tests
func NewTestAccount(id, username, email string) *models.Account {
	now := time.Now()
	return &models.Account{
		ID:         id,
		Username:   username,
		Email:      email,
		IsVerified: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// NewTestAccountWithPassword creates an account with the given plaintext
// password hashed in
func NewTestAccountWithPassword(id, username, email, password string) *models.Account {
	account := NewTestAccount(id, username, email)
	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		panic(err)
	}
	account.PasswordHash = hash
	return account
}

// NewTestAccountUnverified creates an account pending email verification
func NewTestAccountUnverified(id, username, email, token string) *models.Account {
	account := NewTestAccount(id, username, email)
	account.IsVerified = false
	account.EmailVerificationToken = &token
	return account
}

// NewTestAccountWithReset creates an account holding a pending reset for
// the given plaintext token
func NewTestAccountWithReset(id, username, email, token string, expiresAt time.Time) *models.Account {
	account := NewTestAccount(id, username, email)
	hash, err := pkgauth.HashResetToken(token)
	if err != nil {
		panic(err)
	}
	account.ResetPasswordTokenHash = &hash
	account.ResetPasswordExpiresAt = &expiresAt
	return account
}
