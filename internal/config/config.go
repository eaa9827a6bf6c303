package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the server and the terminal client read from the environment.
type Config struct {
	AppEnv string
	Port   string

	JWTSecret      string
	BypassAuth     bool
	AllowedOrigins []string

	TickInterval       time.Duration
	BoardRows          int
	BoardCols          int
	Picker             string
	RandomSeed         int64
	SessionIdleTimeout time.Duration

	LogLevel  string
	LogFormat string
	LogFile   string
}

// AuthEnabled reports whether websocket and API callers must present a JWT.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// Load reads .env outside production and then the process environment.
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil {
			log.Printf("warning: Error loading .env file (this is fine in production): %v", err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		JWTSecret:      os.Getenv("SUPABASE_JWT_SECRET"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		Picker:         getEnv("PIECE_PICKER", "uniform"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "console"),
		LogFile:        os.Getenv("LOG_FILE"),
	}

	var err error
	if cfg.BypassAuth, err = parseBool("BYPASS_AUTH", false); err != nil {
		return nil, err
	}
	if cfg.TickInterval, err = parseDuration("TICK_INTERVAL", 200*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.SessionIdleTimeout, err = parseDuration("SESSION_IDLE_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.BoardRows, err = parseInt("BOARD_ROWS", 20); err != nil {
		return nil, err
	}
	if cfg.BoardCols, err = parseInt("BOARD_COLS", 10); err != nil {
		return nil, err
	}
	seed, err := parseInt("RANDOM_SEED", 0)
	if err != nil {
		return nil, err
	}
	cfg.RandomSeed = int64(seed)

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func parseInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s must be positive, got %s", key, d)
	}
	return d, nil
}
