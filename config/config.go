package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds everything the service reads from the environment.
type Config struct {
	Addr        string
	DatabaseURL string
	JWTSecret   string

	// Payment provider (hosted widget).
	PaymentAPIURL        string
	PaymentAPIKey        string
	PaymentWebhookSecret string
	PaymentSessionTTL    time.Duration

	// Checkout rules.
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	CODAdvanceRate        decimal.Decimal
	Currency              string

	// External mail service.
	MailServiceURL string
	MailFrom       string

	CORSOrigins []string
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:                 getenv("ADDR", ":8080"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		PaymentAPIURL:        os.Getenv("PAYMENT_API_URL"),
		PaymentAPIKey:        os.Getenv("PAYMENT_API_KEY"),
		PaymentWebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		Currency:             getenv("CURRENCY", "INR"),
		MailServiceURL:       os.Getenv("MAIL_SERVICE_URL"),
		MailFrom:             getenv("MAIL_FROM", "orders@photoframe.example"),
		CORSOrigins:          strings.Split(getenv("CORS_ORIGINS", "*"), ","),
	}

	var err error
	if cfg.PaymentSessionTTL, err = durationEnv("PAYMENT_SESSION_TTL", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ShippingFee, err = decimalEnv("SHIPPING_FEE", "50"); err != nil {
		return nil, err
	}
	if cfg.FreeShippingThreshold, err = decimalEnv("FREE_SHIPPING_THRESHOLD", "1000"); err != nil {
		return nil, err
	}
	if cfg.CODAdvanceRate, err = decimalEnv("COD_ADVANCE_RATE", "0.10"); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

// ShippingFor applies the flat-fee / free-above-threshold rule. It is the
// single place the rule lives so cart display and order creation can never
// disagree.
func (c *Config) ShippingFor(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(c.FreeShippingThreshold) {
		return decimal.Zero
	}
	return c.ShippingFee
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func decimalEnv(key, def string) (decimal.Decimal, error) {
	v := os.Getenv(key)
	if v == "" {
		v = def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
