package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	pkghttp "github.com/avencourt/gatehouse/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const sessionContextKey contextKey = "session"

// Middleware resolves the session cookie into the request context. Requests
// without a valid session pass through unauthenticated; route guards decide
// whether that matters.
func Middleware(store Store, config CookieConfig, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := CookieID(r, config)
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := store.Get(r.Context(), id)
			if err != nil {
				if !errors.Is(err, ErrNotFound) {
					logger.Error("failed to load session", slog.Any("error", err))
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), sess)))
		})
	}
}

// RequireSession rejects requests whose context carries no session.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r) == nil {
			pkghttp.WriteUnauthorized(w, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewContext returns a context carrying the session.
func NewContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// FromContext returns the request's session, or nil when unauthenticated.
func FromContext(r *http.Request) *Session {
	sess, _ := r.Context().Value(sessionContextKey).(*Session)
	return sess
}
