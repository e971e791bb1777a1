package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lexure-intelligence/stripe-failure-relay/internal/logsink"
)

func TestMonitoringService(t *testing.T) {
	gin.SetMode(gin.TestMode)

	sink := logsink.New(zap.NewNop())
	webhookService := NewWebhookService(&fakeNotifier{}, &fakeStore{}, sink, testWebhookSecret, zap.NewNop())
	monitoring := NewMonitoringService(webhookService, sink)

	router := gin.New()
	router.GET("/", monitoring.HandleStatus)
	router.GET("/health", monitoring.HandleHealthCheck)
	router.GET("/logs", monitoring.HandleLogs)
	router.GET("/metrics", monitoring.HandleMetrics)

	t.Run("Status Endpoint", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "stripe-failure-relay", resp["name"])
		assert.Equal(t, "running", resp["status"])

		endpoints, ok := resp["endpoints"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "POST /webhook/stripe", endpoints["webhook"])
	})

	t.Run("Health Endpoint", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp["status"])
		assert.NotEmpty(t, resp["timestamp"])
		assert.NotEmpty(t, resp["uptime"])
	})

	t.Run("Logs Endpoint Caps At Twenty", func(t *testing.T) {
		for i := 0; i < 60; i++ {
			sink.Appendf("delivery %d processed", i)
		}

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/logs", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Logs  []logsink.Entry `json:"logs"`
			Total int64           `json:"total"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		require.Len(t, resp.Logs, 20)
		assert.Equal(t, int64(60), resp.Total)
		assert.Equal(t, "delivery 40 processed", resp.Logs[0].Message)
		assert.Equal(t, "delivery 59 processed", resp.Logs[19].Message)
	})

	t.Run("Metrics Endpoint", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

		webhookMetrics, ok := resp["webhook_metrics"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, 100.0, webhookMetrics["success_rate"])
	})
}
