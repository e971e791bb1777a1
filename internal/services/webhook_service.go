package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v74/webhook"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/lexure-intelligence/stripe-failure-relay/internal/logsink"
	"github.com/lexure-intelligence/stripe-failure-relay/internal/models"
)

// WebhookMetrics tracks webhook processing metrics
type WebhookMetrics struct {
	TotalReceived         int64         `json:"total_received"`
	SuccessfullyProcessed int64         `json:"successfully_processed"`
	Ignored               int64         `json:"ignored"`
	Rejected              int64         `json:"rejected"`
	FailedProcessing      int64         `json:"failed_processing"`
	AverageProcessingTime time.Duration `json:"average_processing_time"`
	LastWebhookReceived   time.Time     `json:"last_webhook_received"`
}

// WebhookService verifies inbound Stripe deliveries, normalizes recognized
// events and sequences the two side-effect channels. Each delivery is
// processed exactly once; retries, if any, are Stripe's responsibility.
type WebhookService struct {
	notifier      models.NotificationChannel
	store         models.RecordStore
	sink          *logsink.Sink
	logger        *zap.Logger
	tracer        trace.Tracer
	webhookSecret string

	mu      sync.Mutex
	metrics WebhookMetrics
}

// NewWebhookService creates a new webhook service
func NewWebhookService(notifier models.NotificationChannel, store models.RecordStore, sink *logsink.Sink, webhookSecret string, logger *zap.Logger) *WebhookService {
	return &WebhookService{
		notifier:      notifier,
		store:         store,
		sink:          sink,
		logger:        logger,
		tracer:        otel.Tracer("webhook-service"),
		webhookSecret: webhookSecret,
	}
}

// ProcessDelivery runs the full lifecycle of one webhook delivery: signature
// verification, event classification, normalization and the ordered side
// effects. The returned outcome distinguishes rejected, ignored, failed and
// acknowledged deliveries; err is set for the first two failure modes only.
func (s *WebhookService) ProcessDelivery(ctx context.Context, body []byte, signatureHeader string) (models.Outcome, error) {
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "webhook_delivery")
	defer span.End()

	// Signature is computed over the raw bytes; nothing is parsed before
	// verification succeeds.
	event, err := webhook.ConstructEvent(body, signatureHeader, s.webhookSecret)
	if err != nil {
		span.RecordError(err)
		s.sink.Appendf("Webhook rejected: signature verification failed: %v", err)
		s.recordOutcome(models.OutcomeRejected, start)
		return models.OutcomeRejected, fmt.Errorf("signature verification failed: %w", err)
	}

	span.SetAttributes(
		attribute.String("event.id", event.ID),
		attribute.String("event.type", string(event.Type)),
	)
	s.sink.Appendf("Webhook verified: event %s (%s)", event.ID, event.Type)

	record, err := Normalize(&event)
	if err != nil {
		if errors.Is(err, ErrUnhandledEventType) {
			// Authentic but uninteresting. Acknowledge without side effects.
			s.sink.Appendf("Unhandled event type: %s", event.Type)
			s.recordOutcome(models.OutcomeIgnored, start)
			return models.OutcomeIgnored, nil
		}
		span.RecordError(err)
		s.sink.Appendf("Normalization failed for event %s: %v", event.ID, err)
		s.recordOutcome(models.OutcomeFailed, start)
		return models.OutcomeFailed, err
	}
	s.sink.Appendf("Normalized failed payment %s: %d %s for %s",
		record.PaymentID, record.Amount, record.Currency, record.CustomerEmail)

	if err := s.runSideEffects(ctx, record); err != nil {
		span.RecordError(err)
		s.recordOutcome(models.OutcomeFailed, start)
		return models.OutcomeFailed, err
	}

	s.recordOutcome(models.OutcomeAcknowledged, start)
	return models.OutcomeAcknowledged, nil
}

// runSideEffects invokes the notification channel and then the record store,
// in that order, sequentially. The first failure aborts the delivery; there
// is no compensation for an email already sent when the store write fails.
func (s *WebhookService) runSideEffects(ctx context.Context, record *models.FailedPayment) error {
	ctx, span := s.tracer.Start(ctx, "side_effects",
		trace.WithAttributes(attribute.String("payment_id", record.PaymentID)))
	defer span.End()

	if err := s.notifier.Send(ctx, record); err != nil {
		s.sink.Appendf("Notification failed for payment %s: %v", record.PaymentID, err)
		return fmt.Errorf("notification channel: %w", err)
	}
	s.sink.Appendf("Alert email sent for payment %s", record.PaymentID)

	recordID, err := s.store.Append(ctx, record)
	if err != nil {
		s.sink.Appendf("Record store failed for payment %s: %v", record.PaymentID, err)
		return fmt.Errorf("record store channel: %w", err)
	}
	s.sink.Appendf("Stored payment %s as record %s", record.PaymentID, recordID)

	return nil
}

// HandleStripeWebhook processes incoming Stripe webhooks
func (s *WebhookService) HandleStripeWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	outcome, err := s.ProcessDelivery(c.Request.Context(), body, c.GetHeader("Stripe-Signature"))
	switch outcome {
	case models.OutcomeRejected:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case models.OutcomeFailed:
		s.logger.Error("webhook delivery failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook processing failed"})
	default:
		// Acknowledged and ignored deliveries look identical to Stripe.
		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}

// HandleTestWebhook synthesizes one canonical record with fixed sentinel
// values and runs it through the side-effect pipeline, bypassing signature
// verification and normalization.
func (s *WebhookService) HandleTestWebhook(c *gin.Context) {
	record := &models.FailedPayment{
		PaymentID:      "pi_test_" + uuid.New().String()[:8],
		CustomerEmail:  "test@example.com",
		Amount:         2500,
		Currency:       "usd",
		FailureCode:    "card_declined",
		FailureMessage: "Your card was declined.",
		FailedAt:       time.Now().UTC(),
	}

	s.sink.Appendf("Manual test triggered for payment %s", record.PaymentID)

	start := time.Now()
	if err := s.runSideEffects(c.Request.Context(), record); err != nil {
		s.recordOutcome(models.OutcomeFailed, start)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"record":  record,
			"error":   err.Error(),
		})
		return
	}
	s.recordOutcome(models.OutcomeAcknowledged, start)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"record":  record,
	})
}

// recordOutcome updates processing metrics for one completed delivery.
func (s *WebhookService) recordOutcome(outcome models.Outcome, start time.Time) {
	elapsed := time.Since(start)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.TotalReceived++
	s.metrics.LastWebhookReceived = time.Now()

	switch outcome {
	case models.OutcomeAcknowledged:
		s.metrics.SuccessfullyProcessed++
	case models.OutcomeIgnored:
		s.metrics.Ignored++
	case models.OutcomeRejected:
		s.metrics.Rejected++
	case models.OutcomeFailed:
		s.metrics.FailedProcessing++
	}

	if s.metrics.AverageProcessingTime == 0 {
		s.metrics.AverageProcessingTime = elapsed
	} else {
		s.metrics.AverageProcessingTime = (s.metrics.AverageProcessingTime + elapsed) / 2
	}
}

// GetMetrics returns a snapshot of current webhook metrics
func (s *WebhookService) GetMetrics() WebhookMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}
