package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Gateway  GatewayConfig
	Refund   RefundConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

// GatewayConfig holds the Midtrans credentials and call limits.
type GatewayConfig struct {
	ServerKey      string
	ClientKey      string
	IsProduction   bool
	TimeoutSeconds int
}

// RefundConfig tunes the retry coordinator and the eligibility policy.
type RefundConfig struct {
	MaxRetries           int
	CompletedWindowHours int // refund window after a booking is completed
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "PawsRest"),
		},
		Gateway: GatewayConfig{
			ServerKey:      getEnv("MIDTRANS_SERVER_KEY", ""),
			ClientKey:      getEnv("MIDTRANS_CLIENT_KEY", ""),
			IsProduction:   getEnv("MIDTRANS_IS_PRODUCTION", "false") == "true",
			TimeoutSeconds: getEnvAsInt("GATEWAY_TIMEOUT_SECONDS", 15),
		},
		Refund: RefundConfig{
			MaxRetries:           getEnvAsInt("REFUND_MAX_RETRIES", 3),
			CompletedWindowHours: getEnvAsInt("REFUND_COMPLETED_WINDOW_HOURS", 7*24),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
