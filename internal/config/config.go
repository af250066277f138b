package config

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Config is loaded from the environment. Precedence: explicit env var >
// .env file (loaded by main via godotenv) > default.
type Config struct {
	Port        string
	DatabaseDSN string
	Env         string

	JWTSecret     string
	AdminEmail    string
	AdminPassword string

	RedisAddr string

	DocsDir   string
	GCSBucket string

	BaseCurrency       string
	SettlementCurrency string

	CardAPIBase    string
	CardAPIKey     string
	WalletAPIBase  string
	WalletClientID string
	WalletSecret   string
}

// Load reads configuration from environment with sensible defaults.
func Load() Config {
	return Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseDSN: getEnv("DATABASE_DSN", "file:facturation.db?cache=shared"),
		Env:         getEnv("APP_ENV", "development"),

		JWTSecret:     getEnv("JWT_SECRET", "devjwtsecret"),
		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@stebonjour.tn"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		RedisAddr: os.Getenv("REDIS_ADDR"),

		DocsDir:   getEnv("DOCS_DIR", "data/documents"),
		GCSBucket: os.Getenv("GCS_BUCKET"),

		BaseCurrency:       getEnv("BASE_CURRENCY", "TND"),
		SettlementCurrency: getEnv("SETTLEMENT_CURRENCY", "USD"),

		CardAPIBase:    getEnv("CARD_API_BASE", "https://api.stripe.com"),
		CardAPIKey:     os.Getenv("CARD_API_KEY"),
		WalletAPIBase:  getEnv("WALLET_API_BASE", "https://api-m.sandbox.paypal.com"),
		WalletClientID: os.Getenv("WALLET_CLIENT_ID"),
		WalletSecret:   os.Getenv("WALLET_SECRET"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ParseBool reads an env var as bool with default.
func ParseBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return def
		}
		return b
	}
	return def
}

// NewLogger builds the application logger. Returned, not global: every
// component that logs receives it explicitly.
func NewLogger(env string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	if env == "development" {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}
