package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/avencourt/gatehouse/internal/handlers"
	"github.com/avencourt/gatehouse/internal/models"
	"github.com/avencourt/gatehouse/internal/services"
	"github.com/avencourt/gatehouse/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCookies = session.CookieConfig{Name: "session"}

func TestLogin_Success(t *testing.T) {
	account := handlers.NewHandlerTestAccount("acct_123", "alice", "alice@example.com")
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, username, password, ipAddress string) (*services.LoginResult, error) {
			return &services.LoginResult{
				Account: account,
				Session: handlers.NewTestSession("acct_123"),
				Token:   "jwt_123",
			}, nil
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, testCookies, nil)
	req := handlers.NewTestRequest(t, "POST", "/login", handlers.LoginRequest{
		Username: "alice",
		Password: "SecurePass123",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	var resp handlers.LoginResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "acct_123", resp.Account.ID)
	assert.Equal(t, "jwt_123", resp.Token)

	cookie := handlers.SessionCookie(w, "session")
	require.NotNil(t, cookie, "login must set the session cookie")
	assert.Equal(t, "sess_test", cookie.Value)
	assert.True(t, cookie.HttpOnly)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, username, password, ipAddress string) (*services.LoginResult, error) {
			return nil, models.ErrInvalidCredentials
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, testCookies, nil)
	req := handlers.NewTestRequest(t, "POST", "/login", handlers.LoginRequest{
		Username: "alice",
		Password: "wrongpassword",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, 400, "invalid_credentials")
	assert.Nil(t, handlers.SessionCookie(w, "session"))
}

func TestLogin_Unverified_IncludesAccountView(t *testing.T) {
	account := handlers.NewHandlerTestAccount("acct_123", "alice", "alice@example.com")
	account.IsVerified = false
	mockAuth := &handlers.MockAuthService{
		LoginFunc: func(ctx context.Context, username, password, ipAddress string) (*services.LoginResult, error) {
			return nil, &services.NotVerifiedError{Account: account}
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, testCookies, nil)
	req := handlers.NewTestRequest(t, "POST", "/login", handlers.LoginRequest{
		Username: "alice",
		Password: "SecurePass123",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	assert.Equal(t, 400, w.Code)

	var resp struct {
		Error   string                `json:"error"`
		Account *models.PublicAccount `json:"account"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "email_not_verified", resp.Error)
	require.NotNil(t, resp.Account)
	assert.Equal(t, "acct_123", resp.Account.ID)
	assert.Nil(t, handlers.SessionCookie(w, "session"))
}

func TestLogin_MissingFields(t *testing.T) {
	handler := handlers.NewAuthHandler(&handlers.MockAuthService{}, testCookies, nil)
	req := handlers.NewTestRequest(t, "POST", "/login", handlers.LoginRequest{
		Username: "alice",
	})

	w := httptest.NewRecorder()
	handler.Login(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestLogout_ClearsCookieAndDestroysSession(t *testing.T) {
	var destroyedID string
	mockAuth := &handlers.MockAuthService{
		LogoutFunc: func(ctx context.Context, sessionID string) {
			destroyedID = sessionID
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, testCookies, nil)
	req := handlers.NewTestRequest(t, "DELETE", "/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "sess_abc"})

	w := httptest.NewRecorder()
	handler.Logout(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "sess_abc", destroyedID)

	cookie := handlers.SessionCookie(w, "session")
	require.NotNil(t, cookie)
	assert.Less(t, cookie.MaxAge, 0, "logout must expire the cookie")
}

func TestLogout_NoCookieStillSucceeds(t *testing.T) {
	handler := handlers.NewAuthHandler(&handlers.MockAuthService{}, testCookies, nil)
	req := handlers.NewTestRequest(t, "DELETE", "/logout", nil)

	w := httptest.NewRecorder()
	handler.Logout(w, req)

	assert.Equal(t, 200, w.Code)
}

func TestCheckAuth_LoggedIn(t *testing.T) {
	account := handlers.NewHandlerTestAccount("acct_123", "alice", "alice@example.com")
	mockAuth := &handlers.MockAuthService{
		CheckAuthFunc: func(ctx context.Context, sess *session.Session) (*models.Account, bool) {
			require.NotNil(t, sess)
			return account, true
		},
	}

	handler := handlers.NewAuthHandler(mockAuth, testCookies, nil)
	req := handlers.WithSessionContext(handlers.NewTestRequest(t, "GET", "/check-auth", nil), "acct_123")

	w := httptest.NewRecorder()
	handler.CheckAuth(w, req)

	var resp handlers.CheckAuthResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.True(t, resp.LoggedIn)
	require.NotNil(t, resp.Account)
	assert.Equal(t, "alice", resp.Account.Username)
}

func TestCheckAuth_LoggedOut(t *testing.T) {
	handler := handlers.NewAuthHandler(&handlers.MockAuthService{}, testCookies, nil)
	req := handlers.NewTestRequest(t, "GET", "/check-auth", nil)

	w := httptest.NewRecorder()
	handler.CheckAuth(w, req)

	var resp handlers.CheckAuthResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.False(t, resp.LoggedIn)
	assert.Nil(t, resp.Account)
}
