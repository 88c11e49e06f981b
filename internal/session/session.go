// Package session provides server-side session storage and the HTTP glue
// that binds sessions to cookies. The session is the authoritative proof of
// authentication; any bearer token issued alongside it is supplementary.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a session id does not resolve to a live
// session, either because it never existed or because it expired.
var ErrNotFound = errors.New("session not found")

// Session is server-held proof of an authenticated request context.
type Session struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store persists sessions. Reads and writes are independent per request; no
// coordination beyond the store's own is required.
type Store interface {
	// Create issues a fresh session for the account.
	Create(ctx context.Context, accountID string) (*Session, error)

	// Get resolves a session id. Expired or unknown ids yield ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete destroys a session. Deleting an absent session is not an error.
	Delete(ctx context.Context, id string) error
}
