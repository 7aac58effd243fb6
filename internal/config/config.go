package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const defaultJWTSecret = "default-secret-key-change-in-production"

type Config struct {
	Port           string
	DBDriver       string
	DBUrl          string
	JWTSecret      string
	TokenTTL       time.Duration
	BcryptCost     int
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
	LogLevel       string
	Receipt        ReceiptConfig
}

// ReceiptConfig holds the localized labels printed on customer receipts.
type ReceiptConfig struct {
	Timezone      string
	SellerPrefix  string
	UnknownSeller string
	TotalLabel    string
	ChangeLabel   string
	ThankYou      string
}

func (c Config) UsesDefaultSecret() bool {
	return c.JWTSecret == defaultJWTSecret
}

func LoadConfig() Config {
	err := godotenv.Load()
	if err != nil {
		log.Println(".env file not found, using environment and defaults")
	}

	return FromEnv()
}

// FromEnv builds the configuration from the current environment without touching .env files.
func FromEnv() Config {
	return Config{
		Port:           getString("PORT", "8080"),
		DBDriver:       getString("DB_DRIVER", "mysql"),
		DBUrl:          os.Getenv("DB_URL"),
		JWTSecret:      getString("JWT_SECRET", defaultJWTSecret),
		TokenTTL:       time.Duration(getInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute,
		BcryptCost:     getInt("BCRYPT_COST", bcrypt.DefaultCost),
		RequestTimeout: time.Duration(getInt("REQUEST_TIMEOUT_SECONDS", 10)) * time.Second,
		RateLimitRPS:   getFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getInt("RATE_LIMIT_BURST", 20),
		LogLevel:       getString("LOG_LEVEL", "info"),
		Receipt: ReceiptConfig{
			Timezone:      getString("RECEIPT_TIMEZONE", "UTC"),
			SellerPrefix:  getString("RECEIPT_SELLER_PREFIX", "ФОП"),
			UnknownSeller: getString("RECEIPT_UNKNOWN_SELLER", "Невідомий користувач"),
			TotalLabel:    getString("RECEIPT_TOTAL_LABEL", "СУМА"),
			ChangeLabel:   getString("RECEIPT_CHANGE_LABEL", "Решта"),
			ThankYou:      getString("RECEIPT_THANK_YOU", "Дякуємо за покупку!"),
		},
	}
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		log.Printf("invalid %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}
