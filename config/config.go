package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// M-Pesa gateway configuration
	Mpesa MpesaConfig

	// SMS gateway configuration
	SMS SMSConfig

	// Sender identity for confirmation emails
	SenderName    string
	SenderAddress string

	// Payment session lifetime in redis
	PaymentSessionTTL time.Duration

	// Pending ticket sweep
	SweepInterval time.Duration
	PendingMaxAge time.Duration

	// Monitoring
	EnableMetrics bool
}

type MpesaConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
	Timeout        time.Duration
}

type SMSConfig struct {
	BaseURL  string
	APIKey   string
	SenderID string
	Timeout  time.Duration
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// M-Pesa
		Mpesa: MpesaConfig{
			BaseURL:        getEnv("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke"),
			ConsumerKey:    getEnv("MPESA_CONSUMER_KEY", ""),
			ConsumerSecret: getEnv("MPESA_CONSUMER_SECRET", ""),
			ShortCode:      getEnv("MPESA_SHORTCODE", ""),
			Passkey:        getEnv("MPESA_PASSKEY", ""),
			CallbackURL:    getEnv("MPESA_CALLBACK_URL", ""),
			Timeout:        getEnvAsDuration("MPESA_TIMEOUT", "10s"),
		},

		// SMS
		SMS: SMSConfig{
			BaseURL:  getEnv("SMS_BASE_URL", ""),
			APIKey:   getEnv("SMS_API_KEY", ""),
			SenderID: getEnv("SMS_SENDER_ID", "TIKOYANGU"),
			Timeout:  getEnvAsDuration("SMS_TIMEOUT", "10s"),
		},

		// Email sender
		SenderName:    getEnv("SENDER_NAME", "Tikoyangu"),
		SenderAddress: getEnv("SENDER_ADDRESS", "tickets@tikoyangu.co.ke"),

		// Payment session
		PaymentSessionTTL: getEnvAsDuration("PAYMENT_SESSION_TTL", "15m"),

		// Sweep
		SweepInterval: getEnvAsDuration("SWEEP_INTERVAL", "10m"),
		PendingMaxAge: getEnvAsDuration("PENDING_MAX_AGE", "1h"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
