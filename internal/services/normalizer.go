package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v74"

	"github.com/lexure-intelligence/stripe-failure-relay/internal/models"
)

// ErrUnhandledEventType signals an authentic event whose type this service
// does not process. Callers acknowledge and ignore it; it is not a failure.
var ErrUnhandledEventType = errors.New("unhandled event type")

// Event types recognized by the normalizer.
const (
	EventPaymentIntentFailed  = "payment_intent.payment_failed"
	EventInvoicePaymentFailed = "invoice.payment_failed"
	EventChargeFailed         = "charge.failed"
)

// Constants synthesized for invoice failures, which carry no machine-readable
// failure reason of their own.
const (
	invoiceFailureCode    = "invoice_payment_failed"
	invoiceFailureMessage = "Invoice payment failed"
)

// Normalize maps one verified Stripe event envelope into the canonical
// failed-payment record. Exactly one record comes out per recognized event;
// unrecognized types return ErrUnhandledEventType and nothing else.
func Normalize(event *stripe.Event) (*models.FailedPayment, error) {
	failedAt := time.Unix(event.Created, 0).UTC()

	switch event.Type {
	case EventPaymentIntentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payment intent: %w", err)
		}
		record := &models.FailedPayment{
			PaymentID:     pi.ID,
			CustomerEmail: firstNonEmpty(pi.ReceiptEmail),
			Amount:        pi.Amount,
			Currency:      string(pi.Currency),
			FailedAt:      failedAt,
		}
		if pi.LastPaymentError != nil {
			record.FailureCode = string(pi.LastPaymentError.Code)
			record.FailureMessage = pi.LastPaymentError.Msg
		}
		return record, nil

	case EventInvoicePaymentFailed:
		var in stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &in); err != nil {
			return nil, fmt.Errorf("failed to unmarshal invoice: %w", err)
		}
		return &models.FailedPayment{
			PaymentID:      in.ID,
			CustomerEmail:  firstNonEmpty(in.CustomerEmail),
			Amount:         in.AmountDue,
			Currency:       string(in.Currency),
			FailureCode:    invoiceFailureCode,
			FailureMessage: invoiceFailureMessage,
			FailedAt:       failedAt,
		}, nil

	case EventChargeFailed:
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal charge: %w", err)
		}
		email := ch.ReceiptEmail
		if email == "" && ch.BillingDetails != nil {
			email = ch.BillingDetails.Email
		}
		return &models.FailedPayment{
			PaymentID:      ch.ID,
			CustomerEmail:  firstNonEmpty(email),
			Amount:         ch.Amount,
			Currency:       string(ch.Currency),
			FailureCode:    ch.FailureCode,
			FailureMessage: ch.FailureMessage,
			FailedAt:       failedAt,
		}, nil

	default:
		return nil, ErrUnhandledEventType
	}
}

// firstNonEmpty applies the documented email fallback: the first populated
// candidate wins, otherwise the sentinel default.
func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return models.UnknownCustomerEmail
}
