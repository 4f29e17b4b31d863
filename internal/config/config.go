package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type PostgresConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	Currency  string
	Timeout   time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

type InvoiceConfig struct {
	Dir        string
	SellerName string
}

type Config struct {
	App struct {
		Port    string
		BaseURL string
	}
	Postgres PostgresConfig
	Razorpay RazorpayConfig
	SMTP     SMTPConfig
	Invoice  InvoiceConfig
}

// Load reads configuration from the environment. When path is non-empty it
// is loaded as a dotenv file first, so local runs can keep secrets out of
// the shell. Required variables fail fast.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}

	cfg := &Config{}

	cfg.App.Port = getEnv("APP_PORT", "8080")
	cfg.App.BaseURL = getEnv("APP_BASE_URL", "http://localhost:"+cfg.App.Port)

	var err error
	if cfg.Postgres.Host, err = requireEnv("DB_HOST"); err != nil {
		return nil, err
	}
	if cfg.Postgres.Port, err = requireEnv("DB_PORT"); err != nil {
		return nil, err
	}
	if cfg.Postgres.User, err = requireEnv("DB_USER"); err != nil {
		return nil, err
	}
	if cfg.Postgres.Password, err = requireEnv("DB_PASSWORD"); err != nil {
		return nil, err
	}
	if cfg.Postgres.DBName, err = requireEnv("DB_NAME"); err != nil {
		return nil, err
	}
	cfg.Postgres.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Postgres.MigrationsPath = getEnv("DB_MIGRATIONS_PATH", "migrations")

	if cfg.Razorpay.KeyID, err = requireEnv("RAZORPAY_KEY_ID"); err != nil {
		return nil, err
	}
	if cfg.Razorpay.KeySecret, err = requireEnv("RAZORPAY_KEY_SECRET"); err != nil {
		return nil, err
	}
	cfg.Razorpay.Currency = getEnv("RAZORPAY_CURRENCY", "INR")
	cfg.Razorpay.Timeout = getDurationEnv("RAZORPAY_TIMEOUT_SECONDS", 15*time.Second)

	cfg.SMTP.Host = getEnv("SMTP_HOST", "localhost")
	cfg.SMTP.Port = getEnv("SMTP_PORT", "1025")
	cfg.SMTP.Username = os.Getenv("SMTP_USER")
	cfg.SMTP.Password = os.Getenv("SMTP_PASSWORD")
	cfg.SMTP.From = getEnv("EMAIL_FROM", "no-reply@example.com")

	cfg.Invoice.Dir = getEnv("INVOICE_DIR", "uploads/invoices")
	cfg.Invoice.SellerName = getEnv("INVOICE_SELLER_NAME", "Shopkart")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func requireEnv(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
