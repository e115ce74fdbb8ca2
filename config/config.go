package config

import (
	"errors"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Storage. STORE_DRIVER selects "mongo" or "sqlite".
	StoreDriver  string `mapstructure:"STORE_DRIVER"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`
	SQLitePath   string `mapstructure:"SQLITE_PATH"`

	// Redis configuration.
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisBookingDB int    `mapstructure:"REDIS_BOOKING_DB"`
	RedisPaymentDB int    `mapstructure:"REDIS_PAYMENT_DB"`
	RedisQueueDB   int    `mapstructure:"REDIS_QUEUE_DB"`

	// Payment gateway. PAYMENT_PROVIDER selects "stripe" or "mock".
	PaymentProvider            string `mapstructure:"PAYMENT_PROVIDER"`
	StripeKey                  string `mapstructure:"STRIPE_KEY"`
	StripeWebhookSecret        string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	CheckoutSuccessURL         string `mapstructure:"CHECKOUT_SUCCESS_URL"`
	CheckoutCancelURL          string `mapstructure:"CHECKOUT_CANCEL_URL"`
	DefaultCurrency            string `mapstructure:"DEFAULT_CURRENCY"`
	PaymentWindowMinutes       int    `mapstructure:"PAYMENT_WINDOW_MINUTES"`
	GatewayReadyTimeoutSeconds int    `mapstructure:"GATEWAY_READY_TIMEOUT_SECONDS"`
	GatewayMaxRetries          int    `mapstructure:"GATEWAY_MAX_RETRIES"`
	MockPaymentOutcome         string `mapstructure:"MOCK_PAYMENT_OUTCOME"`

	// Booking attempts.
	AttemptTTLMinutes  int `mapstructure:"ATTEMPT_TTL_MINUTES"`
	MaxPaymentAttempts int `mapstructure:"MAX_PAYMENT_ATTEMPTS"`

	// Domain events.
	AMQPURL      string `mapstructure:"AMQP_URL"`
	AMQPExchange string `mapstructure:"AMQP_EXCHANGE"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("STORE_DRIVER", "mongo")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "workshophub")
	viper.SetDefault("SQLITE_PATH", "workshophub.db")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_BOOKING_DB", 0)
	viper.SetDefault("REDIS_PAYMENT_DB", 1)
	viper.SetDefault("REDIS_QUEUE_DB", 2)
	viper.SetDefault("PAYMENT_PROVIDER", "mock")
	viper.SetDefault("STRIPE_KEY", "")
	viper.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	viper.SetDefault("CHECKOUT_SUCCESS_URL", "http://localhost:8080/api/booking/return?order_id={ORDER_ID}")
	viper.SetDefault("CHECKOUT_CANCEL_URL", "http://localhost:8080/api/booking/return?order_id={ORDER_ID}&cancelled=1")
	viper.SetDefault("DEFAULT_CURRENCY", "inr")
	viper.SetDefault("PAYMENT_WINDOW_MINUTES", 30)
	viper.SetDefault("GATEWAY_READY_TIMEOUT_SECONDS", 10)
	viper.SetDefault("GATEWAY_MAX_RETRIES", 3)
	viper.SetDefault("MOCK_PAYMENT_OUTCOME", "paid")
	viper.SetDefault("ATTEMPT_TTL_MINUTES", 60)
	viper.SetDefault("MAX_PAYMENT_ATTEMPTS", 3)
	viper.SetDefault("AMQP_URL", "")
	viper.SetDefault("AMQP_EXCHANGE", "workshophub.events")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := AppConfig.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
}

// Validate rejects settings that are only tolerable in development.
func (c Config) Validate() error {
	if c.Env == "production" && c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set in production")
	}
	return nil
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

func PaymentWindow() time.Duration {
	return time.Duration(AppConfig.PaymentWindowMinutes) * time.Minute
}

func AttemptTTL() time.Duration {
	return time.Duration(AppConfig.AttemptTTLMinutes) * time.Minute
}

func GatewayReadyTimeout() time.Duration {
	return time.Duration(AppConfig.GatewayReadyTimeoutSeconds) * time.Second
}
