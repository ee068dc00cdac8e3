package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	Database    DatabaseConfig
	Gateway     GatewayConfig
	Auth        AuthConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	LogLevel    string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// GatewayConfig holds SSLCommerz credentials and the URLs callbacks are
// built from. Never read from ambient globals; passed into the client and
// services explicitly.
type GatewayConfig struct {
	StoreID       string
	StorePassword string
	IsLive        bool
	BackendURL    string
	FrontendURL   string
}

type AuthConfig struct {
	JWTSecret string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("KAFKA_BROKER", "localhost:9092")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		// It's okay if .env doesn't exist, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	environment := getEnvOrViper("ENVIRONMENT", "development")

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: environment,
		Database: DatabaseConfig{
			Host:     getEnvOrViper("DB_HOST", "localhost"),
			Port:     getEnvOrViper("DB_PORT", "5432"),
			User:     getEnvOrViper("DB_USER", "postgres"),
			Password: getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrViper("DB_NAME", "shopapi"),
			SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
		},
		Gateway: GatewayConfig{
			StoreID:       getEnvOrViper("SSLCOMMERZ_STORE_ID", ""),
			StorePassword: getEnvOrViper("SSLCOMMERZ_STORE_PASSWORD", ""),
			IsLive:        environment == "production",
			BackendURL:    getEnvOrViper("BACKEND_URL", "http://localhost:8080"),
			FrontendURL:   getEnvOrViper("FRONTEND_URL", "http://localhost:3000"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnvOrViper("JWT_SECRET", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrViper("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrViper("REDIS_PASSWORD", ""),
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnvOrViper("KAFKA_BROKER", "localhost:9092")},
			Enabled: getEnvOrViper("KAFKA_ENABLED", "false") == "true",
		},
		LogLevel: getEnvOrViper("LOG_LEVEL", "info"),
	}

	// Validate required fields
	if cfg.Gateway.StoreID == "" {
		return nil, fmt.Errorf("SSLCOMMERZ_STORE_ID is required")
	}
	if cfg.Gateway.StorePassword == "" {
		return nil, fmt.Errorf("SSLCOMMERZ_STORE_PASSWORD is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}
