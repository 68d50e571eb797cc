package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	HTTP     ServerConfig
	Log      LogConfig
	Mpesa    MpesaConfig
	PayPal   PayPalConfig
	Coinbase CoinbaseConfig
	Payments PaymentsConfig
	Jobs     JobsConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type LogConfig struct {
	Level string
}

type MpesaConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	PassKey        string
	CallbackURL    string
	Environment    string
	HTTPTimeout    time.Duration
}

type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	Environment  string
	ReturnURL    string
	CancelURL    string
	HTTPTimeout  time.Duration
}

type CoinbaseConfig struct {
	APIKey      string
	HTTPTimeout time.Duration
}

type PaymentsConfig struct {
	TokenSafetyMargin time.Duration
	PendingTimeout    time.Duration
	VerifyStaleAfter  time.Duration
	JobBatchSize      int
}

type JobsConfig struct {
	VerifyPendingInterval time.Duration
	ExpirePendingInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	environment := getEnv("APP_ENVIRONMENT", "sandbox")
	if environment != "sandbox" && environment != "production" {
		return nil, errors.New("APP_ENVIRONMENT must be sandbox or production")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "payment-gateway"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Mpesa: MpesaConfig{
			ConsumerKey:    getEnv("MPESA_CONSUMER_KEY", ""),
			ConsumerSecret: getEnv("MPESA_CONSUMER_SECRET", ""),
			ShortCode:      getEnv("MPESA_SHORT_CODE", ""),
			PassKey:        getEnv("MPESA_PASS_KEY", ""),
			CallbackURL:    getEnv("MPESA_CALLBACK_URL", ""),
			Environment:    getEnv("MPESA_ENVIRONMENT", environment),
			HTTPTimeout:    getSecondsEnv("MPESA_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		PayPal: PayPalConfig{
			ClientID:     getEnv("PAYPAL_CLIENT_ID", ""),
			ClientSecret: getEnv("PAYPAL_CLIENT_SECRET", ""),
			Environment:  getEnv("PAYPAL_ENVIRONMENT", environment),
			ReturnURL:    getEnv("PAYPAL_RETURN_URL", ""),
			CancelURL:    getEnv("PAYPAL_CANCEL_URL", ""),
			HTTPTimeout:  getSecondsEnv("PAYPAL_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Coinbase: CoinbaseConfig{
			APIKey:      getEnv("COINBASE_API_KEY", ""),
			HTTPTimeout: getSecondsEnv("COINBASE_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Payments: PaymentsConfig{
			TokenSafetyMargin: getSecondsEnv("PAYMENTS_TOKEN_SAFETY_MARGIN_SECONDS", 30*time.Second),
			PendingTimeout:    getMinutesEnv("PAYMENTS_PENDING_TIMEOUT_MINUTES", 60*time.Minute),
			VerifyStaleAfter:  getMinutesEnv("PAYMENTS_VERIFY_STALE_AFTER_MINUTES", 5*time.Minute),
			JobBatchSize:      getIntEnv("PAYMENTS_JOB_BATCH_SIZE", 100),
		},
		Jobs: JobsConfig{
			VerifyPendingInterval: getMinutesEnv("JOBS_VERIFY_PENDING_INTERVAL_MINUTES", 2*time.Minute),
			ExpirePendingInterval: getMinutesEnv("JOBS_EXPIRE_PENDING_INTERVAL_MINUTES", 5*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
