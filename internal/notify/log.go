package notify

import (
	"context"
	"log/slog"

	"github.com/avencourt/gatehouse/internal/models"
	pkglogger "github.com/avencourt/gatehouse/pkg/logger"
)

// LogNotifier writes would-be emails to the log. Default in development.
// Links carry live tokens, so they are never logged.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendVerification(_ context.Context, account *models.Account, _ string) error {
	n.logger.Info("verification email (log notifier)",
		slog.String("email", pkglogger.SanitizedEmail(account.Email)))
	return nil
}

func (n *LogNotifier) SendPasswordReset(_ context.Context, account *models.Account, _ string) error {
	n.logger.Info("password reset email (log notifier)",
		slog.String("email", pkglogger.SanitizedEmail(account.Email)))
	return nil
}

func (n *LogNotifier) SendPasswordChanged(_ context.Context, account *models.Account) error {
	n.logger.Info("password changed email (log notifier)",
		slog.String("email", pkglogger.SanitizedEmail(account.Email)))
	return nil
}
