package models

import (
	"context"
	"time"
)

// UnknownCustomerEmail is the sentinel used when no upstream field carries a
// customer email for the failed payment.
const UnknownCustomerEmail = "Unknown"

// FailedPayment is the canonical, channel-agnostic record of one failed
// payment event. It is built once per webhook delivery, fully populated
// before either channel sees it, and never mutated afterwards.
type FailedPayment struct {
	PaymentID      string    `json:"payment_id"`
	CustomerEmail  string    `json:"customer_email"`
	Amount         int64     `json:"amount"` // minor currency units (cents)
	Currency       string    `json:"currency"`
	FailureCode    string    `json:"failure_code,omitempty"`
	FailureMessage string    `json:"failure_message,omitempty"`
	FailedAt       time.Time `json:"failed_at"`
}

// AmountMajor converts the minor-unit amount to major units for display.
func (f *FailedPayment) AmountMajor() float64 {
	return float64(f.Amount) / 100.0
}

// NotificationChannel delivers a human-readable alert for a failed payment.
type NotificationChannel interface {
	Send(ctx context.Context, record *FailedPayment) error
}

// RecordStore appends one row per failed payment to an external tabular
// store and returns the store-assigned row identifier.
type RecordStore interface {
	Append(ctx context.Context, record *FailedPayment) (string, error)
}

// Outcome classifies the result of processing one webhook delivery.
type Outcome string

const (
	// OutcomeAcknowledged means the delivery was verified and both side
	// effects completed.
	OutcomeAcknowledged Outcome = "acknowledged"
	// OutcomeIgnored means the delivery was authentic but carried an event
	// type this service does not handle. Not an error.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeRejected means the signature check failed and the body was
	// never parsed.
	OutcomeRejected Outcome = "rejected"
	// OutcomeFailed means a side-effect channel returned an error and the
	// remaining steps were aborted.
	OutcomeFailed Outcome = "failed"
)
