package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPPort        string
	GRPCPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string

	DBHost         string
	DBPort         int
	DBUser         string
	DBPassword     string
	DBName         string
	MigrationsPath string

	MongoURI    string
	MongoDBName string

	RedisAddr     string
	RedisPassword string

	KafkaBrokers        []string
	OrderConfirmedTopic string

	StripeSecretKey     string
	StripeWebhookSecret string
	Currency            string

	JWTSecret string

	DomesticCountry       string
	FreeShippingThreshold decimal.Decimal
	ShippingRatesFile     string

	OrderTTL      time.Duration
	SweepInterval time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	threshold, err := decimal.NewFromString(getEnv("FREE_SHIPPING_THRESHOLD", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid FREE_SHIPPING_THRESHOLD: %w", err)
	}

	cfg := &Config{
		HTTPPort:              getEnv("HTTP_PORT", "8080"),
		GRPCPort:              getEnv("GRPC_PORT", "50060"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		DBHost:                getEnv("DB_HOST", "localhost"),
		DBPort:                dbPort,
		DBUser:                getEnv("DB_USER", "postgres"),
		DBPassword:            getEnv("DB_PASSWORD", "postgres"),
		DBName:                getEnv("DB_NAME", "emporium"),
		MigrationsPath:        getEnv("MIGRATIONS_PATH", "./internal/repository/migrations"),
		MongoURI:              getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:           getEnv("MONGO_DB_NAME", "emporium"),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:          strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		OrderConfirmedTopic:   getEnv("ORDER_CONFIRMED_TOPIC", "order.confirmed"),
		StripeSecretKey:       getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret:   getEnv("STRIPE_WEBHOOK_SECRET", ""),
		Currency:              strings.ToLower(getEnv("CURRENCY", "usd")),
		JWTSecret:             getEnv("JWT_SECRET", ""),
		DomesticCountry:       strings.ToUpper(getEnv("DOMESTIC_COUNTRY", "US")),
		FreeShippingThreshold: threshold,
		ShippingRatesFile:     getEnv("SHIPPING_RATES_FILE", ""),
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"REQUEST_TIMEOUT", "30s", &cfg.RequestTimeout},
		{"SHUTDOWN_TIMEOUT", "10s", &cfg.ShutdownTimeout},
		{"ORDER_TTL", "30m", &cfg.OrderTTL},
		{"SWEEP_INTERVAL", "1m", &cfg.SweepInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fails closed on missing secrets: there is no way to run the
// service without a payment gateway.
func (c *Config) Validate() error {
	var errs []error
	if c.StripeSecretKey == "" {
		errs = append(errs, errors.New("STRIPE_SECRET_KEY is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.OrderTTL <= 0 {
		errs = append(errs, errors.New("ORDER_TTL must be positive"))
	}
	if !c.FreeShippingThreshold.IsPositive() {
		errs = append(errs, errors.New("FREE_SHIPPING_THRESHOLD must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
