package services

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// VaultClient handles secure secret management using HashiCorp Vault
type VaultClient struct {
	client *api.Client
	logger *zap.Logger
}

// NewVaultClient creates a new Vault client
func NewVaultClient(baseURL, token string, logger *zap.Logger) (*VaultClient, error) {
	config := &api.Config{
		Address: baseURL,
		HttpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	client.SetToken(token)

	return &VaultClient{client: client, logger: logger}, nil
}

// GetSecret retrieves a secret from Vault
func (v *VaultClient) GetSecret(path string) (map[string]interface{}, error) {
	secret, err := v.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("no secret data found at %s", path)
	}
	return secret.Data, nil
}

// secretPaths maps Vault paths to the viper keys their fields override.
var secretPaths = map[string]map[string]string{
	"%s/stripe": {
		"secret_key":     "stripe.secret_key",
		"webhook_secret": "stripe.webhook_secret",
	},
	"%s/google": {
		"client_id":     "google.client_id",
		"client_secret": "google.client_secret",
		"refresh_token": "google.refresh_token",
	},
	"%s/airtable": {
		"api_key": "airtable.api_key",
		"base_id": "airtable.base_id",
	},
}

// LoadSecretsFromVault reads all secret paths for the service and returns the
// values keyed by the viper configuration key they override. Paths missing in
// Vault are skipped with a warning; config-based values stay in effect.
func (v *VaultClient) LoadSecretsFromVault(serviceName string) (map[string]string, error) {
	secrets := make(map[string]string)

	for pathFormat, fields := range secretPaths {
		path := fmt.Sprintf(pathFormat, serviceName)
		data, err := v.GetSecret(path)
		if err != nil {
			v.logger.Warn("secret path not loaded from Vault",
				zap.String("path", path), zap.Error(err))
			continue
		}
		for field, viperKey := range fields {
			if value, ok := data[field].(string); ok && value != "" {
				secrets[viperKey] = value
			}
		}
	}

	return secrets, nil
}

// HealthCheck checks if Vault is accessible
func (v *VaultClient) HealthCheck() error {
	if _, err := v.client.Sys().Health(); err != nil {
		return fmt.Errorf("Vault health check failed: %w", err)
	}
	return nil
}
