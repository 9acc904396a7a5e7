package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
	BackendStore  = "store"
	BackendRedis  = "redis"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                string
	LogLevel           string
	HTTPAddr           string
	StorageBackend     string
	MongoURI           string
	MongoDB            string
	LockBackend        string
	LockTTL            time.Duration
	LockWait           time.Duration
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	SessionBackend     string
	SessionTTL         time.Duration
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
	IdempotencyTTL     time.Duration
	DefaultPageLimit   int
	MaxPageLimit       int
	ListingsFixtures   string
}

// LoadDotEnv reads KEY=VALUE pairs from path into the environment. Variables already set win,
// and a missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:              strings.ToLower(getEnv("APP_ENV", "dev")),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", "info")),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		StorageBackend:   strings.ToLower(getEnv("STORAGE_BACKEND", BackendMemory)),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "stayhub"),
		LockBackend:      strings.ToLower(getEnv("LOCK_BACKEND", BackendStore)),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		SessionBackend:   strings.ToLower(getEnv("SESSION_BACKEND", BackendStore)),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		ListingsFixtures: getEnv("LISTINGS_FIXTURES", "data/listings.json"),
	}
	for _, raw := range strings.Split(getEnv("KAFKA_BROKERS", ""), ",") {
		if broker := strings.TrimSpace(raw); broker != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
		}
	}

	var err error
	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"LOCK_TTL", 10 * time.Second, &cfg.LockTTL},
		{"LOCK_WAIT", 3 * time.Second, &cfg.LockWait},
		{"SESSION_TTL", 24 * time.Hour, &cfg.SessionTTL},
		{"OUTBOX_POLL_INTERVAL", 500 * time.Millisecond, &cfg.OutboxPollInterval},
		{"IDEMP_TTL", 168 * time.Hour, &cfg.IdempotencyTTL},
	}
	for _, d := range durations {
		if *d.dst, err = parseDurationEnv(d.key, d.def); err != nil {
			return Config{}, err
		}
	}
	if cfg.RedisDB, err = parseIntEnv("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.DefaultPageLimit, err = parseIntEnv("DEFAULT_PAGE_LIMIT", 10); err != nil {
		return Config{}, err
	}
	if cfg.MaxPageLimit, err = parseIntEnv("MAX_PAGE_LIMIT", 100); err != nil {
		return Config{}, err
	}

	retryStr := getEnv("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StorageBackend {
	case BackendMemory:
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when STORAGE_BACKEND=mongo")
		}
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.LockBackend != BackendStore && c.LockBackend != BackendRedis {
		return fmt.Errorf("invalid LOCK_BACKEND %q", c.LockBackend)
	}
	if c.SessionBackend != BackendStore && c.SessionBackend != BackendRedis {
		return fmt.Errorf("invalid SESSION_BACKEND %q", c.SessionBackend)
	}
	if c.DefaultPageLimit < 1 || c.MaxPageLimit < c.DefaultPageLimit {
		return fmt.Errorf("page limits must satisfy 1 <= DEFAULT_PAGE_LIMIT <= MAX_PAGE_LIMIT")
	}
	return nil
}

// UsesRedis reports whether any component needs a Redis connection.
func (c Config) UsesRedis() bool {
	return c.LockBackend == BackendRedis || c.SessionBackend == BackendRedis
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return n, nil
}
