package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	// DatabaseDSN is the PostgreSQL connection string.
	DatabaseDSN string

	// OpenWeatherAPIKey authenticates geocoding and forecast calls.
	OpenWeatherAPIKey string

	// JWTSigningKey is the identity provider's shared HS256 key.
	JWTSigningKey string

	// HTTPTimeout bounds outbound provider calls.
	HTTPTimeout time.Duration

	// GeocodeLimit caps the number of geocoding candidates returned.
	GeocodeLimit int

	// Session eviction: stores idle longer than SessionIdleTTL are discarded
	// by a sweep running every SessionSweepInterval.
	SessionIdleTTL       time.Duration
	SessionSweepInterval time.Duration

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.DatabaseDSN = os.Getenv("DATABASE_DSN")
	if cfg.DatabaseDSN == "" {
		return nil, fmt.Errorf("DATABASE_DSN is required")
	}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")

	cfg.JWTSigningKey = os.Getenv("JWT_SIGNING_KEY")
	if cfg.JWTSigningKey == "" {
		return nil, fmt.Errorf("JWT_SIGNING_KEY is required")
	}

	timeout, err := getenvDuration("HTTP_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cfg.HTTPTimeout = timeout

	cfg.GeocodeLimit = getenvInt("GEOCODE_LIMIT", 5)

	idle, err := getenvDuration("SESSION_IDLE_TTL", "30m")
	if err != nil {
		return nil, err
	}
	cfg.SessionIdleTTL = idle

	sweep, err := getenvDuration("SESSION_SWEEP_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}
	cfg.SessionSweepInterval = sweep

	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	v := getenvDefault(key, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
