// Package config reads the bot configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"FunnelBot/model"
	"github.com/joho/godotenv"
)

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendFirebase = "firebase"

	DefaultCheckoutURL = "https://t.me/PAMpagamentosbot"
	DefaultFunnel      = "selecao"
)

type Config struct {
	BotToken    string
	CheckoutURL string
	Funnel      string
	FunnelFile  string
	HTTPAddr    string
	LogLevel    string
	LogFormat   string

	Backend  string
	Redis    RedisConfig
	Firebase FirebaseConfig
}

type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	SessionTTL time.Duration
	Lock       bool
	LockTTL    time.Duration
}

type FirebaseConfig struct {
	ServiceAccountKeyPath string
	DatabaseURL           string
}

// LoadDotEnv loads file into the environment if it exists. Variables that
// are already set win over the file.
func LoadDotEnv(file string) (bool, error) {
	if _, err := os.Stat(file); err != nil {
		return false, nil
	}
	if err := godotenv.Load(file); err != nil {
		return false, fmt.Errorf("error loading %s: %w", file, err)
	}
	return true, nil
}

// Load reads the configuration and validates it. A missing BOT_TOKEN or a
// variable that does not parse is a configuration error.
func Load() (*Config, error) {
	env := &envReader{}
	cfg := &Config{
		BotToken:    strings.TrimSpace(os.Getenv("BOT_TOKEN")),
		CheckoutURL: getEnv("CHECKOUT_URL", DefaultCheckoutURL),
		Funnel:      getEnv("FUNNEL", DefaultFunnel),
		FunnelFile:  getEnv("FUNNEL_FILE", ""),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
		Backend:     strings.ToLower(getEnv("SESSION_BACKEND", BackendMemory)),
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", "localhost:6379"),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         env.Int("REDIS_DB", 0),
			SessionTTL: env.Duration("SESSION_TTL", 0),
			Lock:       env.Bool("REDIS_LOCK", false),
			LockTTL:    env.Duration("REDIS_LOCK_TTL", 30*time.Second),
		},
		Firebase: FirebaseConfig{
			ServiceAccountKeyPath: getEnv("FIREBASE_SERVICE_ACCOUNT_KEY_PATH", ""),
			DatabaseURL:           getEnv("FIREBASE_DATABASE_URL", ""),
		},
	}
	if err := env.Err(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("%w: BOT_TOKEN environment variable not set", model.ErrConfiguration)
	}
	if c.CheckoutURL == "" {
		return fmt.Errorf("%w: CHECKOUT_URL cannot be empty", model.ErrConfiguration)
	}
	switch c.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("%w: REDIS_ADDR cannot be empty", model.ErrConfiguration)
		}
	case BackendFirebase:
		if c.Firebase.DatabaseURL == "" {
			return fmt.Errorf("%w: FIREBASE_DATABASE_URL environment variable not set", model.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown SESSION_BACKEND %q", model.ErrConfiguration, c.Backend)
	}
	if c.Redis.Lock && c.Backend != BackendRedis {
		return fmt.Errorf("%w: REDIS_LOCK requires SESSION_BACKEND=redis", model.ErrConfiguration)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// envReader parses typed variables and remembers every value that does not
// parse, so one bad variable never silently turns into its default.
type envReader struct {
	errs []error
}

func (r *envReader) fail(key, value, want string) {
	r.errs = append(r.errs, fmt.Errorf("%s=%q is not a valid %s", key, value, want))
}

// Err returns the collected parse failures wrapped in model.ErrConfiguration.
func (r *envReader) Err() error {
	if len(r.errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", model.ErrConfiguration, errors.Join(r.errs...))
}

func (r *envReader) Bool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	r.fail(key, value, "boolean")
	return fallback
}

func (r *envReader) Int(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		r.fail(key, value, "integer")
		return fallback
	}
	return n
}

func (r *envReader) Duration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d < 0 {
		r.fail(key, value, "duration (e.g. 30s, 168h)")
		return fallback
	}
	return d
}
