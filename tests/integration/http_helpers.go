package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/avencourt/gatehouse/internal/auth"
	"github.com/avencourt/gatehouse/internal/database"
	"github.com/avencourt/gatehouse/internal/handlers"
	"github.com/avencourt/gatehouse/internal/models"
	"github.com/avencourt/gatehouse/internal/routes"
	"github.com/avencourt/gatehouse/internal/services"
	"github.com/avencourt/gatehouse/internal/session"
	pkghttp "github.com/avencourt/gatehouse/pkg/http"
	pkglogger "github.com/avencourt/gatehouse/pkg/logger"
)

// SentMail is a captured outbound email
type SentMail struct {
	To   string
	Kind string // "verification", "reset", "changed"
	Link string
}

// CapturingNotifier records outbound mail for test assertions instead of
// sending it.
type CapturingNotifier struct {
	mu   sync.Mutex
	sent []SentMail
}

func (n *CapturingNotifier) SendVerification(ctx context.Context, account *models.Account, link string) error {
	n.record(SentMail{To: account.Email, Kind: "verification", Link: link})
	return nil
}

func (n *CapturingNotifier) SendPasswordReset(ctx context.Context, account *models.Account, link string) error {
	n.record(SentMail{To: account.Email, Kind: "reset", Link: link})
	return nil
}

func (n *CapturingNotifier) SendPasswordChanged(ctx context.Context, account *models.Account) error {
	n.record(SentMail{To: account.Email, Kind: "changed"})
	return nil
}

func (n *CapturingNotifier) record(m SentMail) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, m)
}

// LastMail returns the most recent captured mail of the given kind, or nil.
func (n *CapturingNotifier) LastMail(kind string) *SentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].Kind == kind {
			m := n.sent[i]
			return &m
		}
	}
	return nil
}

// TokenFromLink extracts the trailing path segment of an emailed link.
func TokenFromLink(link string) string {
	idx := strings.LastIndex(link, "/")
	if idx < 0 {
		return ""
	}
	return link[idx+1:]
}

const (
	testBaseURL     = "http://gatehouse.test"
	testFrontendURL = "http://frontend.test"
)

// TestServer wraps httptest.Server with a real database and a capturing notifier
type TestServer struct {
	Server   *httptest.Server
	DB       *database.DB
	Notifier *CapturingNotifier
	Sessions session.Store
}

// NewTestServer wires the full HTTP stack over the given database: real
// repositories and services, in-memory sessions, captured email.
func NewTestServer(db *TestDB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	accountRepo := db.NewAccountRepository()
	notifier := &CapturingNotifier{}
	store := session.NewMemoryStore(time.Hour)
	cookieConfig := session.CookieConfig{Name: "session"}

	tokenManager := auth.NewTokenManager("test-secret-at-least-32-characters!!", 15*time.Minute)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{})
	auditLogger := pkglogger.NewAuditLogger(logger)

	accountService := services.NewAccountService(accountRepo, notifier, store, logger, auditLogger, testBaseURL, "")
	authService := services.NewAuthService(accountRepo, store, tokenManager, timingDelay, logger, auditLogger)
	resetService := services.NewPasswordResetService(accountRepo, notifier, store, timingDelay, logger, auditLogger, testFrontendURL, time.Hour)
	profileService := services.NewProfileService(accountRepo, logger, auditLogger)

	ipConfig := &pkghttp.IPConfig{}
	accountHandler := handlers.NewAccountHandler(accountService, profileService, authService, cookieConfig, testFrontendURL)
	authHandler := handlers.NewAuthHandler(authService, cookieConfig, ipConfig)
	resetHandler := handlers.NewPasswordResetHandler(resetService, cookieConfig)
	profileHandler := handlers.NewProfileHandler(profileService)
	healthHandler := handlers.NewHealthHandler(db.DB)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(session.Middleware(store, cookieConfig, logger))
	routes.RegisterRoutes(r, accountHandler, authHandler, resetHandler, profileHandler, healthHandler, session.RequireSession)

	return &TestServer{
		Server:   httptest.NewServer(r),
		DB:       db.DB,
		Notifier: notifier,
		Sessions: store,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Request makes an HTTP request to the test server. Redirects are not
// followed so verification redirects can be asserted directly.
func (ts *TestServer) Request(method, path string, body interface{}, cookies []*http.Cookie) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return client.Do(req)
}

// SessionCookie returns the session cookie set by a response, or nil.
func SessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	return nil
}

// ParseJSONResponse parses a JSON response body into target
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// GetErrorMessage extracts the error message from an error response
func GetErrorMessage(resp *http.Response) (string, error) {
	var errResp pkghttp.ErrorResponse
	if err := ParseJSONResponse(resp, &errResp); err != nil {
		return "", err
	}
	return errResp.Message, nil
}
