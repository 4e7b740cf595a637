package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// devFallbackSecret keeps local development friction-free.  FromEnv refuses
// to fall back to it when PASSGATE_ENV is "prod".
const devFallbackSecret = "passgate-dev-secret"

type Config struct {
	HTTPAddr string

	// DB
	Env    string // "dev" | "prod"
	DBPath string // e.g. "./data/passgate.db"

	// QR codec key material.
	Secret    string
	QRKDFSalt string

	// Validation behaviour.
	RollingWindowMinutes int
	RateLimitPerSecond   int
	RedisURL             string // empty = in-process limiter

	// Expiry sweeper (0 = disabled).
	SweepIntervalHours int

	// Persistence retry policy.
	PersistenceRetries   int
	PersistenceTimeoutMS int
}

// FromEnv loads an optional .env file, then reads the PASSGATE_* variables.
func FromEnv() (Config, error) {
	_ = godotenv.Load()

	addr := getenvDefault("PASSGATE_HTTP_ADDR", ":8080")

	env := strings.ToLower(getenvDefault("PASSGATE_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	dbPath := getenvDefault("PASSGATE_DB_PATH", "./data/passgate.db")

	secret := strings.TrimSpace(os.Getenv("PASSGATE_SECRET"))
	if secret == "" {
		if env == "prod" {
			return Config{}, errors.New("config: PASSGATE_SECRET is required when PASSGATE_ENV=prod")
		}
		secret = devFallbackSecret
	}

	return Config{
		HTTPAddr: addr,
		Env:      env,
		DBPath:   dbPath,

		Secret:    secret,
		QRKDFSalt: os.Getenv("PASSGATE_QR_KDF_SALT"),

		RollingWindowMinutes: getenvInt("PASSGATE_ROLLING_WINDOW_MINUTES", 5),
		RateLimitPerSecond:   getenvInt("PASSGATE_RATE_LIMIT_PER_SEC", 10),
		RedisURL:             strings.TrimSpace(os.Getenv("PASSGATE_REDIS_URL")),

		SweepIntervalHours: getenvInt("PASSGATE_SWEEP_INTERVAL_HOURS", 0),

		PersistenceRetries:   getenvInt("PASSGATE_PERSISTENCE_RETRIES", 2),
		PersistenceTimeoutMS: getenvInt("PASSGATE_PERSISTENCE_TIMEOUT_MS", 2000),
	}, nil
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
