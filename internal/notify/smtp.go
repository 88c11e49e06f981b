package notify

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"

	"github.com/avencourt/gatehouse/internal/models"
)

// SMTPNotifier sends email through a plain SMTP relay.
type SMTPNotifier struct {
	dialer      *gomail.Dialer
	fromAddress string
	logger      *slog.Logger
}

func NewSMTPNotifier(host string, port int, user, pass, fromAddress string, logger *slog.Logger) *SMTPNotifier {
	return &SMTPNotifier{
		dialer:      gomail.NewDialer(host, port, user, pass),
		fromAddress: fromAddress,
		logger:      logger,
	}
}

func (n *SMTPNotifier) SendVerification(_ context.Context, account *models.Account, link string) error {
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>Please verify your email address by opening this link:</p>
<p><a href="%s">%s</a></p>
<p>If you didn't sign up for this account, you can ignore this email.</p>`,
		account.Username, link, link)

	return n.send(account.Email, "Verify your email address", body)
}

func (n *SMTPNotifier) SendPasswordReset(_ context.Context, account *models.Account, link string) error {
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>Open this link to choose a new password. It expires in one hour and can be used once:</p>
<p><a href="%s">%s</a></p>
<p>If you didn't request this, you can ignore this email.</p>`,
		account.Username, link, link)

	return n.send(account.Email, "Reset your password", body)
}

func (n *SMTPNotifier) SendPasswordChanged(_ context.Context, account *models.Account) error {
	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>The password for your account was just changed. If this wasn't you, contact support immediately.</p>`,
		account.Username)

	return n.send(account.Email, "Your password was changed", body)
}

func (n *SMTPNotifier) send(to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", n.fromAddress)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("email sent", slog.String("subject", subject))
	return nil
}
