package channels

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/lexure-intelligence/stripe-failure-relay/internal/models"
)

const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"

	defaultGmailSendURL = "https://gmail.googleapis.com/gmail/v1/users/me/messages/send"
)

// GmailConfig holds the OAuth credentials and addressing for the alert email.
type GmailConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Sender       string
	Recipient    string
}

// GmailChannel sends failed-payment alerts through the Gmail API. The
// refresh token seeds an oauth2 token source, so access tokens are renewed
// transparently by the underlying client.
type GmailChannel struct {
	httpClient *http.Client
	sendURL    string
	sender     string
	recipient  string
	logger     *zap.Logger
}

// NewGmailChannel creates a Gmail-backed notification channel.
func NewGmailChannel(cfg GmailConfig, logger *zap.Logger) *GmailChannel {
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  googleAuthURL,
			TokenURL: googleTokenURL,
		},
		Scopes: []string{"https://www.googleapis.com/auth/gmail.send"},
	}

	tokenSource := oauthConfig.TokenSource(context.Background(), &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	})

	client := oauth2.NewClient(context.Background(), tokenSource)
	client.Timeout = 30 * time.Second

	return &GmailChannel{
		httpClient: client,
		sendURL:    defaultGmailSendURL,
		sender:     cfg.Sender,
		recipient:  cfg.Recipient,
		logger:     logger,
	}
}

// Send delivers one alert email for the record. The attempt is made exactly
// once; any failure is returned to the dispatcher, which aborts the delivery.
func (g *GmailChannel) Send(ctx context.Context, record *models.FailedPayment) error {
	subject := fmt.Sprintf("Payment Failed - %s", record.PaymentID)
	body := g.buildAlertBody(record)

	message := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s",
		g.sender, g.recipient, subject, body)

	payload, err := json.Marshal(map[string]string{
		"raw": base64.URLEncoding.EncodeToString([]byte(message)),
	})
	if err != nil {
		return fmt.Errorf("failed to encode gmail message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.sendURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create gmail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gmail API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var sent struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &sent); err == nil && sent.ID != "" {
		g.logger.Info("alert email sent",
			zap.String("message_id", sent.ID),
			zap.String("payment_id", record.PaymentID),
			zap.String("recipient", g.recipient))
	}

	return nil
}

// buildAlertBody formats the canonical record for a human reader. Amount is
// converted to major units and the currency upper-cased here only; the record
// itself keeps the upstream representation.
func (g *GmailChannel) buildAlertBody(record *models.FailedPayment) string {
	return fmt.Sprintf(`Payment Failure Alert

A payment has failed and may need attention.

Details:
- Payment ID: %s
- Customer: %s
- Amount: %.2f %s
- Failure Code: %s
- Failure Message: %s
- Failed At: %s

This is an automated alert from stripe-failure-relay.
`,
		record.PaymentID,
		record.CustomerEmail,
		record.AmountMajor(),
		strings.ToUpper(record.Currency),
		record.FailureCode,
		record.FailureMessage,
		record.FailedAt.Format(time.RFC3339))
}
