package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		viper.Reset()
		require.NoError(t, Load())

		cfg, err := Get()
		require.NoError(t, err)

		assert.Equal(t, "3000", cfg.Server.Port)
		assert.Equal(t, "Failed Payments", cfg.Airtable.TableName)
		assert.Equal(t, "admin@example.com", cfg.Alerts.Recipient)
		assert.Equal(t, "info", cfg.Log.Level)
	})

	t.Run("Environment Overrides", func(t *testing.T) {
		viper.Reset()
		t.Setenv("SERVER_PORT", "8080")
		t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_from_env")
		t.Setenv("ALERT_RECIPIENT", "oncall@example.com")
		t.Setenv("AIRTABLE_BASE_ID", "appENV")

		require.NoError(t, Load())

		cfg, err := Get()
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.Server.Port)
		assert.Equal(t, "whsec_from_env", cfg.Stripe.WebhookSecret)
		assert.Equal(t, "oncall@example.com", cfg.Alerts.Recipient)
		assert.Equal(t, "appENV", cfg.Airtable.BaseID)
	})
}
