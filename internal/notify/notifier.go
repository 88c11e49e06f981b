// Package notify dispatches transactional email. Every send is
// fire-and-forget from the caller's perspective; delivery failures are
// logged, never propagated into the primary operation.
package notify

import (
	"context"

	"github.com/avencourt/gatehouse/internal/models"
)

// Notifier sends the three transactional messages the authentication flows
// need. Implementations must be safe for concurrent use.
type Notifier interface {
	// SendVerification emails a link embedding the account's verification token.
	SendVerification(ctx context.Context, account *models.Account, link string) error

	// SendPasswordReset emails a link embedding the plaintext reset token.
	SendPasswordReset(ctx context.Context, account *models.Account, link string) error

	// SendPasswordChanged confirms a completed password change.
	SendPasswordChanged(ctx context.Context, account *models.Account) error
}
