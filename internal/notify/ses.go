package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/avencourt/gatehouse/internal/models"
)

// SESNotifier sends email through AWS SES.
type SESNotifier struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewSESNotifier loads the default AWS config for the region and returns a
// ready notifier.
func NewSESNotifier(region, fromAddress string, logger *slog.Logger) (*SESNotifier, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESNotifier{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

func (n *SESNotifier) SendVerification(ctx context.Context, account *models.Account, link string) error {
	subject := "Verify your email address"
	htmlBody := fmt.Sprintf(`<p>Hi %s,</p>
<p>Thank you for creating an account. To complete your registration, please verify
your email address by clicking the link below:</p>
<p><a href="%s">Verify Email Address</a></p>
<p>Or copy and paste this link in your browser:<br><code>%s</code></p>
<p>If you didn't sign up for this account, you can ignore this email.</p>`,
		account.Username, link, link)
	textBody := fmt.Sprintf(`Hi %s,

Thank you for creating an account. To complete your registration, please verify
your email address by opening this link:

%s

If you didn't sign up for this account, you can ignore this email.`,
		account.Username, link)

	return n.send(ctx, account.Email, subject, htmlBody, textBody)
}

func (n *SESNotifier) SendPasswordReset(ctx context.Context, account *models.Account, link string) error {
	subject := "Reset your password"
	htmlBody := fmt.Sprintf(`<p>Hi %s,</p>
<p>We received a request to reset your password. Click the link below to choose
a new one. The link expires in one hour and can be used once.</p>
<p><a href="%s">Reset Password</a></p>
<p>Or copy and paste this link in your browser:<br><code>%s</code></p>
<p>If you didn't request this, you can ignore this email; your password will not change.</p>`,
		account.Username, link, link)
	textBody := fmt.Sprintf(`Hi %s,

We received a request to reset your password. Open this link to choose a new
one. The link expires in one hour and can be used once.

%s

If you didn't request this, you can ignore this email; your password will not change.`,
		account.Username, link)

	return n.send(ctx, account.Email, subject, htmlBody, textBody)
}

func (n *SESNotifier) SendPasswordChanged(ctx context.Context, account *models.Account) error {
	subject := "Your password was changed"
	htmlBody := fmt.Sprintf(`<p>Hi %s,</p>
<p>The password for your account was just changed.</p>
<p>If this was you, no action is needed. If it wasn't, contact support immediately.</p>`,
		account.Username)
	textBody := fmt.Sprintf(`Hi %s,

The password for your account was just changed.

If this was you, no action is needed. If it wasn't, contact support immediately.`,
		account.Username)

	return n.send(ctx, account.Email, subject, htmlBody, textBody)
}

func (n *SESNotifier) send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := n.sesClient.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.Info("email sent",
		slog.String("subject", subject),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}
