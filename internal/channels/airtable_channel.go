package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lexure-intelligence/stripe-failure-relay/internal/models"
)

const defaultAirtableBaseURL = "https://api.airtable.com/v0"

// AirtableChannel appends one row per failed payment to an Airtable table.
type AirtableChannel struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	baseID     string
	tableName  string
	logger     *zap.Logger
}

// NewAirtableChannel creates an Airtable-backed record store.
func NewAirtableChannel(apiKey, baseID, tableName string, logger *zap.Logger) *AirtableChannel {
	return &AirtableChannel{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultAirtableBaseURL,
		apiKey:     apiKey,
		baseID:     baseID,
		tableName:  tableName,
		logger:     logger,
	}
}

type airtableRecord struct {
	Fields map[string]interface{} `json:"fields"`
}

// Append writes the record as a table row and returns the Airtable-assigned
// record identifier.
func (a *AirtableChannel) Append(ctx context.Context, record *models.FailedPayment) (string, error) {
	row := airtableRecord{
		Fields: map[string]interface{}{
			"Payment ID":      record.PaymentID,
			"Customer Email":  record.CustomerEmail,
			"Amount":          record.AmountMajor(),
			"Currency":        strings.ToUpper(record.Currency),
			"Failure Code":    record.FailureCode,
			"Failure Message": record.FailureMessage,
			"Failed At":       record.FailedAt.Format(time.RFC3339),
		},
	}

	payload, err := json.Marshal(row)
	if err != nil {
		return "", fmt.Errorf("failed to encode airtable record: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/%s", a.baseURL, a.baseID, url.PathEscape(a.tableName))
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create airtable request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to append airtable record: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("airtable API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &created); err != nil {
		return "", fmt.Errorf("failed to decode airtable response: %w", err)
	}

	a.logger.Info("failed payment stored",
		zap.String("record_id", created.ID),
		zap.String("payment_id", record.PaymentID))

	return created.ID, nil
}
