package services

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lexure-intelligence/stripe-failure-relay/internal/logsink"
)

const serviceName = "stripe-failure-relay"

// recentLogCount is how many entries the logs endpoint returns.
const recentLogCount = 20

// MonitoringService exposes the status, health and activity-log endpoints.
type MonitoringService struct {
	webhookService *WebhookService
	sink           *logsink.Sink
	startedAt      time.Time
}

// NewMonitoringService creates a new monitoring service
func NewMonitoringService(webhookService *WebhookService, sink *logsink.Sink) *MonitoringService {
	return &MonitoringService{
		webhookService: webhookService,
		sink:           sink,
		startedAt:      time.Now(),
	}
}

// HandleStatus describes the service and its endpoint map.
func (m *MonitoringService) HandleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"name":   serviceName,
		"status": "running",
		"endpoints": gin.H{
			"webhook": "POST /webhook/stripe",
			"health":  "GET /health",
			"logs":    "GET /logs",
			"test":    "POST /test",
		},
	})
}

// HandleHealthCheck handles the health check endpoint
func (m *MonitoringService) HandleHealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(m.startedAt).String(),
	})
}

// HandleLogs returns the newest activity log entries and the all-time count.
func (m *MonitoringService) HandleLogs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"logs":  m.sink.Recent(recentLogCount),
		"total": m.sink.Total(),
	})
}

// HandleMetrics handles the metrics endpoint
func (m *MonitoringService) HandleMetrics(c *gin.Context) {
	metrics := m.webhookService.GetMetrics()

	c.JSON(http.StatusOK, gin.H{
		"webhook_metrics": gin.H{
			"total_received":             metrics.TotalReceived,
			"successfully_processed":     metrics.SuccessfullyProcessed,
			"ignored":                    metrics.Ignored,
			"rejected":                   metrics.Rejected,
			"failed_processing":          metrics.FailedProcessing,
			"success_rate":               m.calculateSuccessRate(&metrics),
			"average_processing_time_ms": metrics.AverageProcessingTime.Milliseconds(),
			"last_webhook_received":      metrics.LastWebhookReceived,
		},
		"uptime":    time.Since(m.startedAt).String(),
		"timestamp": time.Now().UTC(),
	})
}

// calculateSuccessRate calculates the success rate percentage
func (m *MonitoringService) calculateSuccessRate(metrics *WebhookMetrics) float64 {
	if metrics.TotalReceived == 0 {
		return 100.0
	}
	return float64(metrics.SuccessfullyProcessed+metrics.Ignored) / float64(metrics.TotalReceived) * 100.0
}
