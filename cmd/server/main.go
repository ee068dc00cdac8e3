package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/deshikart/shopapi/internal/api"
	"github.com/deshikart/shopapi/internal/cart"
	"github.com/deshikart/shopapi/internal/config"
	"github.com/deshikart/shopapi/internal/events"
	"github.com/deshikart/shopapi/internal/gateway"
	"github.com/deshikart/shopapi/internal/repository/postgres"
	"github.com/deshikart/shopapi/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Connect to database
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	repos := postgres.NewRepositories(db, logger)

	// Payment gateway client
	gw := gateway.NewClient(cfg.Gateway, logger)

	// Cart clearing is best-effort; run without it when redis is down
	var carts service.CartClearer = service.NopClearer{}
	clearer := cart.NewClearer(cfg.Redis, logger)
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := clearer.Ping(pingCtx); err != nil {
		logger.Warn("Redis unavailable, cart clearing disabled", zap.Error(err))
	} else {
		carts = clearer
		defer clearer.Close()
	}
	cancel()

	// Event publishing is optional
	var publisher service.EventPublisher = service.NopPublisher{}
	if cfg.Kafka.Enabled {
		producer, err := events.NewProducer(cfg.Kafka, logger)
		if err != nil {
			logger.Warn("Kafka unavailable, event publishing disabled", zap.Error(err))
		} else {
			publisher = producer
			defer producer.Close()
		}
	}

	router := api.NewRouter(cfg, repos, gw, carts, publisher, logger)

	logger.Info("Starting server",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment),
		zap.Bool("gateway_live", cfg.Gateway.IsLive),
	)

	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("Server exited", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
