package handlers_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/avencourt/gatehouse/internal/handlers"
	"github.com/avencourt/gatehouse/internal/models"
	"github.com/avencourt/gatehouse/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFrontendURL = "http://localhost:5173"

func newAccountHandler(svc *handlers.MockAccountService, getter *handlers.MockAccountGetter, destroyer *handlers.MockAuthService) *handlers.AccountHandler {
	if getter == nil {
		getter = &handlers.MockAccountGetter{}
	}
	if destroyer == nil {
		destroyer = &handlers.MockAuthService{}
	}
	return handlers.NewAccountHandler(svc, getter, destroyer, testCookies, testFrontendURL)
}

// ============================================================================
// Register Tests
// ============================================================================

func TestRegister_Success(t *testing.T) {
	mockSvc := &handlers.MockAccountService{
		RegisterFunc: func(ctx context.Context, email, username, password, provisioningCode string) (*models.Account, error) {
			account := handlers.NewHandlerTestAccount("acct_123", username, email)
			account.IsVerified = false
			return account, nil
		},
	}

	handler := newAccountHandler(mockSvc, nil, nil)
	req := handlers.NewTestRequest(t, "POST", "/register", handlers.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "SecurePass123",
	})

	w := httptest.NewRecorder()
	handler.Register(w, req)

	var resp struct {
		Message string                `json:"message"`
		Account *models.PublicAccount `json:"account"`
	}
	handlers.AssertJSONResponse(t, w, 201, &resp)
	assert.NotEmpty(t, resp.Message)
	require.NotNil(t, resp.Account)
	assert.Equal(t, "acct_123", resp.Account.ID)
	assert.False(t, resp.Account.IsVerified)
}

func TestRegister_Conflict(t *testing.T) {
	mockSvc := &handlers.MockAccountService{
		RegisterFunc: func(ctx context.Context, email, username, password, provisioningCode string) (*models.Account, error) {
			return nil, &models.ConflictError{Message: "Username is already taken."}
		},
	}

	handler := newAccountHandler(mockSvc, nil, nil)
	req := handlers.NewTestRequest(t, "POST", "/register", handlers.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "SecurePass123",
	})

	w := httptest.NewRecorder()
	handler.Register(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
	assert.Contains(t, w.Body.String(), "Username is already taken.")
}

func TestRegister_WeakPassword(t *testing.T) {
	mockSvc := &handlers.MockAccountService{
		RegisterFunc: func(ctx context.Context, email, username, password, provisioningCode string) (*models.Account, error) {
			return nil, models.NewValidationError("password", "must be at least 8 characters")
		},
	}

	handler := newAccountHandler(mockSvc, nil, nil)
	req := handlers.NewTestRequest(t, "POST", "/register", handlers.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "short",
	})

	w := httptest.NewRecorder()
	handler.Register(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestRegister_InvalidEmail(t *testing.T) {
	handler := newAccountHandler(&handlers.MockAccountService{}, nil, nil)
	req := handlers.NewTestRequest(t, "POST", "/register", handlers.RegisterRequest{
		Username: "alice",
		Email:    "not-an-email",
		Password: "SecurePass123",
	})

	w := httptest.NewRecorder()
	handler.Register(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

// ============================================================================
// VerifyEmail Tests
// ============================================================================

func TestVerifyEmail_RedirectsToWelcomeWithSession(t *testing.T) {
	mockSvc := &handlers.MockAccountService{
		VerifyEmailFunc: func(ctx context.Context, token string) (*models.Account, *session.Session, error) {
			assert.Equal(t, "tok_abc", token)
			return handlers.NewHandlerTestAccount("acct_123", "alice", "alice@example.com"),
				handlers.NewTestSession("acct_123"), nil
		},
	}

	handler := newAccountHandler(mockSvc, nil, nil)
	req := handlers.WithURLParam(handlers.NewTestRequest(t, "GET", "/verify-email/tok_abc", nil), "token", "tok_abc")

	w := httptest.NewRecorder()
	handler.VerifyEmail(w, req)

	assert.Equal(t, 302, w.Code)
	assert.Equal(t, testFrontendURL+"/welcome", w.Header().Get("Location"))

	cookie := handlers.SessionCookie(w, "session")
	require.NotNil(t, cookie, "verification must establish a session")
	assert.Equal(t, "sess_test", cookie.Value)
}

func TestVerifyEmail_UnknownTokenRedirectsToLogin(t *testing.T) {
	mockSvc := &handlers.MockAccountService{
		VerifyEmailFunc: func(ctx context.Context, token string) (*models.Account, *session.Session, error) {
			return nil, nil, models.ErrNotFound
		},
	}

	handler := newAccountHandler(mockSvc, nil, nil)
	req := handlers.WithURLParam(handlers.NewTestRequest(t, "GET", "/verify-email/tok_used", nil), "token", "tok_used")

	w := httptest.NewRecorder()
	handler.VerifyEmail(w, req)

	assert.Equal(t, 302, w.Code)
	assert.Equal(t, testFrontendURL+"/login", w.Header().Get("Location"))
	assert.Nil(t, handlers.SessionCookie(w, "session"))
}

// ============================================================================
// ResendVerification Tests
// ============================================================================

func TestResendVerification_Success(t *testing.T) {
	mockSvc := &handlers.MockAccountService{
		ResendVerificationFunc: func(ctx context.Context, email string) error {
			return nil
		},
	}

	handler := newAccountHandler(mockSvc, nil, nil)
	req := handlers.NewTestRequest(t, "POST", "/resend-verification", handlers.ResendVerificationRequest{
		Email: "alice@example.com",
	})

	w := httptest.NewRecorder()
	handler.ResendVerification(w, req)

	assert.Equal(t, 200, w.Code)
}

func TestResendVerification_UnknownEmail(t *testing.T) {
	handler := newAccountHandler(&handlers.MockAccountService{}, nil, nil)
	req := handlers.NewTestRequest(t, "POST", "/resend-verification", handlers.ResendVerificationRequest{
		Email: "ghost@example.com",
	})

	w := httptest.NewRecorder()
	handler.ResendVerification(w, req)

	handlers.AssertErrorResponse(t, w, 404, "not_found")
}

func TestResendVerification_AlreadyVerified(t *testing.T) {
	mockSvc := &handlers.MockAccountService{
		ResendVerificationFunc: func(ctx context.Context, email string) error {
			return models.ErrAlreadyVerified
		},
	}

	handler := newAccountHandler(mockSvc, nil, nil)
	req := handlers.NewTestRequest(t, "POST", "/resend-verification", handlers.ResendVerificationRequest{
		Email: "alice@example.com",
	})

	w := httptest.NewRecorder()
	handler.ResendVerification(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

// ============================================================================
// Delete Tests
// ============================================================================

func TestDelete_SelfSucceedsAndEndsSession(t *testing.T) {
	deleted := ""
	loggedOut := ""
	mockSvc := &handlers.MockAccountService{
		DeleteFunc: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	getter := &handlers.MockAccountGetter{
		GetFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return handlers.NewHandlerTestAccount(id, "alice", "alice@example.com"), nil
		},
	}
	destroyer := &handlers.MockAuthService{
		LogoutFunc: func(ctx context.Context, sessionID string) {
			loggedOut = sessionID
		},
	}

	handler := newAccountHandler(mockSvc, getter, destroyer)
	req := handlers.NewTestRequest(t, "DELETE", "/delete/acct_123", nil)
	req = handlers.WithSessionContext(req, "acct_123")
	req = handlers.WithURLParam(req, "id", "acct_123")

	w := httptest.NewRecorder()
	handler.Delete(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "acct_123", deleted)
	assert.Equal(t, "sess_test", loggedOut)

	cookie := handlers.SessionCookie(w, "session")
	require.NotNil(t, cookie)
	assert.Less(t, cookie.MaxAge, 0)
}

func TestDelete_OtherAccountRequiresAdmin(t *testing.T) {
	getter := &handlers.MockAccountGetter{
		GetFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return handlers.NewHandlerTestAccount(id, "alice", "alice@example.com"), nil
		},
	}

	handler := newAccountHandler(&handlers.MockAccountService{}, getter, nil)
	req := handlers.NewTestRequest(t, "DELETE", "/delete/acct_999", nil)
	req = handlers.WithSessionContext(req, "acct_123")
	req = handlers.WithURLParam(req, "id", "acct_999")

	w := httptest.NewRecorder()
	handler.Delete(w, req)

	handlers.AssertErrorResponse(t, w, 403, "forbidden")
}

func TestDelete_AdminCanDeleteOthers(t *testing.T) {
	deleted := ""
	mockSvc := &handlers.MockAccountService{
		DeleteFunc: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	getter := &handlers.MockAccountGetter{
		GetFunc: func(ctx context.Context, id string) (*models.Account, error) {
			admin := handlers.NewHandlerTestAccount(id, "root", "root@example.com")
			admin.IsAdmin = true
			return admin, nil
		},
	}

	handler := newAccountHandler(mockSvc, getter, nil)
	req := handlers.NewTestRequest(t, "DELETE", "/delete/acct_999", nil)
	req = handlers.WithSessionContext(req, "acct_admin")
	req = handlers.WithURLParam(req, "id", "acct_999")

	w := httptest.NewRecorder()
	handler.Delete(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "acct_999", deleted)
	assert.Nil(t, handlers.SessionCookie(w, "session"), "deleting another account keeps the caller's session")
}

func TestDelete_NoSession(t *testing.T) {
	handler := newAccountHandler(&handlers.MockAccountService{}, nil, nil)
	req := handlers.WithURLParam(handlers.NewTestRequest(t, "DELETE", "/delete/acct_123", nil), "id", "acct_123")

	w := httptest.NewRecorder()
	handler.Delete(w, req)

	handlers.AssertErrorResponse(t, w, 401, "unauthorized")
}

func TestDelete_NotFound(t *testing.T) {
	getter := &handlers.MockAccountGetter{
		GetFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return handlers.NewHandlerTestAccount(id, "alice", "alice@example.com"), nil
		},
	}

	handler := newAccountHandler(&handlers.MockAccountService{}, getter, nil)
	req := handlers.NewTestRequest(t, "DELETE", "/delete/acct_123", nil)
	req = handlers.WithSessionContext(req, "acct_123")
	req = handlers.WithURLParam(req, "id", "acct_123")

	w := httptest.NewRecorder()
	handler.Delete(w, req)

	handlers.AssertErrorResponse(t, w, 404, "not_found")
}
