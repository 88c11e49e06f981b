package handlers_test

import (
	"context"
	"testing"

	"net/http/httptest"

	"github.com/avencourt/gatehouse/internal/handlers"
	"github.com/avencourt/gatehouse/internal/models"
	"github.com/avencourt/gatehouse/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Forgot Tests
// ============================================================================

func TestForgot_KnownAndUnknownEmailsAreIdentical(t *testing.T) {
	known := &handlers.MockPasswordResetService{
		ForgotFunc: func(ctx context.Context, email string) error { return nil },
	}
	// The mock's zero Forgot also returns nil: the service contract is that
	// a miss is indistinguishable from a hit.
	unknown := &handlers.MockPasswordResetService{}

	var bodies []string
	for _, svc := range []*handlers.MockPasswordResetService{known, unknown} {
		handler := handlers.NewPasswordResetHandler(svc, testCookies)
		req := handlers.NewTestRequest(t, "POST", "/forgot", handlers.ForgotRequest{Email: "a@x.com"})

		w := httptest.NewRecorder()
		handler.Forgot(w, req)

		assert.Equal(t, 200, w.Code)
		bodies = append(bodies, w.Body.String())
	}

	assert.Equal(t, bodies[0], bodies[1])
	assert.Contains(t, bodies[0], "If the email exists, a reset link has been sent.")
}

func TestForgot_MissingEmail(t *testing.T) {
	handler := handlers.NewPasswordResetHandler(&handlers.MockPasswordResetService{}, testCookies)
	req := handlers.NewTestRequest(t, "POST", "/forgot", handlers.ForgotRequest{})

	w := httptest.NewRecorder()
	handler.Forgot(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

// ============================================================================
// CheckToken Tests
// ============================================================================

func TestCheckToken_Valid(t *testing.T) {
	mockSvc := &handlers.MockPasswordResetService{
		ValidateTokenFunc: func(ctx context.Context, token string) (*models.Account, error) {
			assert.Equal(t, "tok_abc", token)
			return handlers.NewHandlerTestAccount("acct_123", "alice", "alice@example.com"), nil
		},
	}

	handler := handlers.NewPasswordResetHandler(mockSvc, testCookies)
	req := handlers.WithURLParam(handlers.NewTestRequest(t, "GET", "/tok_abc", nil), "token", "tok_abc")

	w := httptest.NewRecorder()
	handler.CheckToken(w, req)

	assert.Equal(t, 200, w.Code)
}

func TestCheckToken_InvalidOrExpired(t *testing.T) {
	handler := handlers.NewPasswordResetHandler(&handlers.MockPasswordResetService{}, testCookies)
	req := handlers.WithURLParam(handlers.NewTestRequest(t, "GET", "/tok_stale", nil), "token", "tok_stale")

	w := httptest.NewRecorder()
	handler.CheckToken(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
	// The body never distinguishes unknown, consumed and expired tokens.
	assert.Contains(t, w.Body.String(), "invalid or has expired")
}

// ============================================================================
// Reset Tests
// ============================================================================

func TestReset_SuccessSetsSessionCookie(t *testing.T) {
	mockSvc := &handlers.MockPasswordResetService{
		ResetFunc: func(ctx context.Context, token, newPassword, confirmPassword string) (*services.ResetResult, error) {
			assert.Equal(t, "tok_abc", token)
			return &services.ResetResult{
				Account: handlers.NewHandlerTestAccount("acct_123", "alice", "alice@example.com"),
				Session: handlers.NewTestSession("acct_123"),
			}, nil
		},
	}

	handler := handlers.NewPasswordResetHandler(mockSvc, testCookies)
	req := handlers.NewTestRequest(t, "POST", "/reset/tok_abc", handlers.ResetRequest{
		Password:        "NewSecure123",
		ConfirmPassword: "NewSecure123",
	})
	req = handlers.WithURLParam(req, "token", "tok_abc")

	w := httptest.NewRecorder()
	handler.Reset(w, req)

	assert.Equal(t, 200, w.Code)

	cookie := handlers.SessionCookie(w, "session")
	require.NotNil(t, cookie, "reset must establish a session")
	assert.Equal(t, "sess_test", cookie.Value)
}

func TestReset_PasswordMismatch(t *testing.T) {
	mockSvc := &handlers.MockPasswordResetService{
		ResetFunc: func(ctx context.Context, token, newPassword, confirmPassword string) (*services.ResetResult, error) {
			return nil, models.ErrPasswordMismatch
		},
	}

	handler := handlers.NewPasswordResetHandler(mockSvc, testCookies)
	req := handlers.NewTestRequest(t, "POST", "/reset/tok_abc", handlers.ResetRequest{
		Password:        "NewSecure123",
		ConfirmPassword: "Different123",
	})
	req = handlers.WithURLParam(req, "token", "tok_abc")

	w := httptest.NewRecorder()
	handler.Reset(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
	assert.Contains(t, w.Body.String(), "Passwords do not match")
}

func TestReset_ConsumedToken(t *testing.T) {
	handler := handlers.NewPasswordResetHandler(&handlers.MockPasswordResetService{}, testCookies)
	req := handlers.NewTestRequest(t, "POST", "/reset/tok_used", handlers.ResetRequest{
		Password:        "NewSecure123",
		ConfirmPassword: "NewSecure123",
	})
	req = handlers.WithURLParam(req, "token", "tok_used")

	w := httptest.NewRecorder()
	handler.Reset(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
	assert.Nil(t, handlers.SessionCookie(w, "session"))
}

func TestReset_MissingFields(t *testing.T) {
	handler := handlers.NewPasswordResetHandler(&handlers.MockPasswordResetService{}, testCookies)
	req := handlers.NewTestRequest(t, "POST", "/reset/tok_abc", handlers.ResetRequest{
		Password: "NewSecure123",
	})
	req = handlers.WithURLParam(req, "token", "tok_abc")

	w := httptest.NewRecorder()
	handler.Reset(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}
