package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Payment  PaymentConfig
	CCBill   CCBillConfig
	Kafka    KafkaConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

type PaymentConfig struct {
	WebhookSecret    string
	VerifySignatures bool
	DefaultGateway   string
}

// CCBillConfig for the CCBill merchant API.
type CCBillConfig struct {
	BaseURL   string
	AccountID string
	AppKey    string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func Load() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:         envOr("SERVER_PORT", "8088"),
			Env:          envOr("APP_ENV", "development"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN:             envOr("DATABASE_DSN", "velour:velour@tcp(localhost:3306)/velour?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret:  envOr("JWT_ACCESS_SECRET", "change-me-in-production"),
			RefreshSecret: envOr("JWT_REFRESH_SECRET", "change-me-refresh"),
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 168 * time.Hour,
			Issuer:        "velour",
		},
		Payment: PaymentConfig{
			WebhookSecret:    os.Getenv("PAYMENT_WEBHOOK_SECRET"),
			VerifySignatures: envBool("PAYMENT_VERIFY_SIGNATURES", true),
			DefaultGateway:   envOr("PAYMENT_DEFAULT_GATEWAY", "ccbill"),
		},
		CCBill: CCBillConfig{
			BaseURL:   envOr("CCBILL_BASE_URL", "https://api.ccbill.com"),
			AccountID: os.Getenv("CCBILL_ACCOUNT_ID"),
			AppKey:    os.Getenv("CCBILL_APP_KEY"),
		},
		Kafka: KafkaConfig{
			Brokers: kafkaBrokers(),
			Topic:   envOr("KAFKA_TOPIC", "velour.payment.events"),
		},
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// kafkaBrokers parses KAFKA_BROKERS as a comma-separated list. Empty means
// events fall back to the log sink.
func kafkaBrokers() []string {
	v := os.Getenv("KAFKA_BROKERS")
	if v == "" {
		return nil
	}
	var out []string
	for _, b := range strings.Split(v, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
