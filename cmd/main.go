package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lexure-intelligence/stripe-failure-relay/internal/channels"
	"github.com/lexure-intelligence/stripe-failure-relay/internal/config"
	"github.com/lexure-intelligence/stripe-failure-relay/internal/logsink"
	"github.com/lexure-intelligence/stripe-failure-relay/internal/services"
)

func main() {
	// Load configuration
	if err := config.Load(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger, err := initLogger()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting Stripe Failure Relay")

	// Load secrets from Vault if configured, otherwise use config values
	if vaultURL := viper.GetString("vault.url"); vaultURL != "" {
		if vaultToken := viper.GetString("vault.token"); vaultToken != "" {
			vaultClient, err := services.NewVaultClient(vaultURL, vaultToken, logger)
			if err != nil {
				logger.Warn("Failed to initialize Vault client, using config-based secrets", zap.Error(err))
			} else if secrets, err := vaultClient.LoadSecretsFromVault("stripe-failure-relay"); err == nil {
				for key, value := range secrets {
					viper.Set(key, value)
				}
				logger.Info("Secrets loaded from Vault successfully")
			} else {
				logger.Warn("Failed to load secrets from Vault, using config", zap.Error(err))
			}
		}
	} else {
		logger.Info("Using config-based secrets (Vault not configured)")
	}

	cfg, err := config.Get()
	if err != nil {
		logger.Fatal("Failed to read configuration", zap.Error(err))
	}

	// Shared activity log, passed explicitly to everything that records steps
	sink := logsink.New(logger)

	// Initialize side-effect channels
	notifier := channels.NewGmailChannel(channels.GmailConfig{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RefreshToken: cfg.Google.RefreshToken,
		Sender:       cfg.Google.Sender,
		Recipient:    cfg.Alerts.Recipient,
	}, logger)

	store := channels.NewAirtableChannel(cfg.Airtable.APIKey, cfg.Airtable.BaseID, cfg.Airtable.TableName, logger)

	// Initialize services
	webhookService := services.NewWebhookService(notifier, store, sink, cfg.Stripe.WebhookSecret, logger)
	monitoringService := services.NewMonitoringService(webhookService, sink)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	// Add CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/", monitoringService.HandleStatus)
	router.GET("/health", monitoringService.HandleHealthCheck)
	router.GET("/logs", monitoringService.HandleLogs)
	router.GET("/metrics", monitoringService.HandleMetrics)
	router.POST("/webhook/stripe", webhookService.HandleStripeWebhook)
	router.POST("/test", webhookService.HandleTestWebhook)

	// Start server
	port := cfg.Server.Port
	if port == "" {
		port = "3000"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func initLogger() (*zap.Logger, error) {
	level := viper.GetString("log.level")
	var logLevel zap.AtomicLevel

	switch level {
	case "debug":
		logLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		logLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		logLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		logLevel = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		logLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	config := zap.NewProductionConfig()
	config.Level = logLevel
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	return config.Build()
}
