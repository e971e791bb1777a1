package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Stripe   StripeConfig   `mapstructure:"stripe"`
	Google   GoogleConfig   `mapstructure:"google"`
	Airtable AirtableConfig `mapstructure:"airtable"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Vault    VaultConfig    `mapstructure:"vault"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

// StripeConfig holds Stripe configuration
type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

// GoogleConfig holds the Gmail OAuth credentials used by the notification
// channel. The refresh token is exchanged for access tokens at send time.
type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	Sender       string `mapstructure:"sender"`
}

// AirtableConfig holds the record store configuration
type AirtableConfig struct {
	APIKey    string `mapstructure:"api_key"`
	BaseID    string `mapstructure:"base_id"`
	TableName string `mapstructure:"table_name"`
}

// AlertsConfig holds alert delivery configuration
type AlertsConfig struct {
	Recipient string `mapstructure:"recipient"`
}

// VaultConfig holds optional HashiCorp Vault settings for secret loading
type VaultConfig struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// envBindings maps viper keys to the environment variables that override them.
var envBindings = map[string]string{
	"server.port":           "SERVER_PORT",
	"server.host":           "SERVER_HOST",
	"stripe.secret_key":     "STRIPE_SECRET_KEY",
	"stripe.webhook_secret": "STRIPE_WEBHOOK_SECRET",
	"google.client_id":      "GOOGLE_CLIENT_ID",
	"google.client_secret":  "GOOGLE_CLIENT_SECRET",
	"google.refresh_token":  "GOOGLE_REFRESH_TOKEN",
	"google.sender":         "GOOGLE_SENDER",
	"airtable.api_key":      "AIRTABLE_API_KEY",
	"airtable.base_id":      "AIRTABLE_BASE_ID",
	"airtable.table_name":   "AIRTABLE_TABLE_NAME",
	"alerts.recipient":      "ALERT_RECIPIENT",
	"vault.url":             "VAULT_URL",
	"vault.token":           "VAULT_TOKEN",
	"log.level":             "LOG_LEVEL",
}

// Load loads configuration from file and environment variables
func Load() error {
	viper.SetDefault("server.port", "3000")
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("airtable.table_name", "Failed Payments")
	viper.SetDefault("alerts.recipient", "admin@example.com")
	viper.SetDefault("log.level", "info")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; defaults and environment cover it.
	}

	viper.AutomaticEnv()
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	return nil
}

// Get returns the current configuration
func Get() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}
