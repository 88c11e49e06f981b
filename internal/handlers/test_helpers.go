package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avencourt/gatehouse/internal/models"
	"github.com/avencourt/gatehouse/internal/services"
	"github.com/avencourt/gatehouse/internal/session"
	pkghttp "github.com/avencourt/gatehouse/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithSessionContext attaches a session to the request context for testing
// authenticated endpoints
func WithSessionContext(req *http.Request, accountID string) *http.Request {
	sess := &session.Session{
		ID:        "sess_test",
		AccountID: accountID,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	return req.WithContext(session.NewContext(req.Context(), sess))
}

// WithURLParam injects a chi route parameter for handlers read off the URL
func WithURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// SessionCookie returns the session cookie set on the response, or nil.
func SessionCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc     func(ctx context.Context, username, password, ipAddress string) (*services.LoginResult, error)
	LogoutFunc    func(ctx context.Context, sessionID string)
	CheckAuthFunc func(ctx context.Context, sess *session.Session) (*models.Account, bool)
}

func (m *MockAuthService) Login(ctx context.Context, username, password, ipAddress string) (*services.LoginResult, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrInvalidCredentials
	}
	return m.LoginFunc(ctx, username, password, ipAddress)
}

func (m *MockAuthService) Logout(ctx context.Context, sessionID string) {
	if m.LogoutFunc != nil {
		m.LogoutFunc(ctx, sessionID)
	}
}

func (m *MockAuthService) CheckAuth(ctx context.Context, sess *session.Session) (*models.Account, bool) {
	if m.CheckAuthFunc == nil {
		return nil, false
	}
	return m.CheckAuthFunc(ctx, sess)
}

// MockAccountService implements AccountServiceInterface for testing
type MockAccountService struct {
	RegisterFunc           func(ctx context.Context, email, username, password, provisioningCode string) (*models.Account, error)
	VerifyEmailFunc        func(ctx context.Context, token string) (*models.Account, *session.Session, error)
	ResendVerificationFunc func(ctx context.Context, email string) error
	DeleteFunc             func(ctx context.Context, id string) error
}

func (m *MockAccountService) Register(ctx context.Context, email, username, password, provisioningCode string) (*models.Account, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.RegisterFunc(ctx, email, username, password, provisioningCode)
}

func (m *MockAccountService) VerifyEmail(ctx context.Context, token string) (*models.Account, *session.Session, error) {
	if m.VerifyEmailFunc == nil {
		return nil, nil, models.ErrNotFound
	}
	return m.VerifyEmailFunc(ctx, token)
}

func (m *MockAccountService) ResendVerification(ctx context.Context, email string) error {
	if m.ResendVerificationFunc == nil {
		return models.ErrNotFound
	}
	return m.ResendVerificationFunc(ctx, email)
}

func (m *MockAccountService) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc == nil {
		return models.ErrNotFound
	}
	return m.DeleteFunc(ctx, id)
}

// MockAccountGetter implements AccountGetter for testing
type MockAccountGetter struct {
	GetFunc func(ctx context.Context, id string) (*models.Account, error)
}

func (m *MockAccountGetter) Get(ctx context.Context, id string) (*models.Account, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, id)
}

// MockPasswordResetService implements PasswordResetServiceInterface for testing
type MockPasswordResetService struct {
	ForgotFunc        func(ctx context.Context, email string) error
	ValidateTokenFunc func(ctx context.Context, token string) (*models.Account, error)
	ResetFunc         func(ctx context.Context, token, newPassword, confirmPassword string) (*services.ResetResult, error)
}

func (m *MockPasswordResetService) Forgot(ctx context.Context, email string) error {
	if m.ForgotFunc == nil {
		return nil
	}
	return m.ForgotFunc(ctx, email)
}

func (m *MockPasswordResetService) ValidateToken(ctx context.Context, token string) (*models.Account, error) {
	if m.ValidateTokenFunc == nil {
		return nil, models.ErrTokenInvalidOrExpired
	}
	return m.ValidateTokenFunc(ctx, token)
}

func (m *MockPasswordResetService) Reset(ctx context.Context, token, newPassword, confirmPassword string) (*services.ResetResult, error) {
	if m.ResetFunc == nil {
		return nil, models.ErrTokenInvalidOrExpired
	}
	return m.ResetFunc(ctx, token, newPassword, confirmPassword)
}

// MockProfileService implements ProfileServiceInterface for testing
type MockProfileService struct {
	GetFunc  func(ctx context.Context, id string) (*models.Account, error)
	EditFunc func(ctx context.Context, id, username, email string) (*models.Account, error)
}

func (m *MockProfileService) Get(ctx context.Context, id string) (*models.Account, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, id)
}

func (m *MockProfileService) Edit(ctx context.Context, id, username, email string) (*models.Account, error) {
	if m.EditFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.EditFunc(ctx, id, username, email)
}

// NewHandlerTestAccount constructs a verified account for handler tests
func NewHandlerTestAccount(id, username, email string) *models.Account {
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

// NewTestSession constructs a live session for handler tests
func NewTestSession(accountID string) *session.Session {
	return &session.Session{
		ID:        "sess_test",
		AccountID: accountID,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
}
