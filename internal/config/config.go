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

	"github.com/SAP-F-2025/proctor-agent/internal/validator"
)

type Config struct {
	Port        string `validate:"required,numeric"`
	Environment string `validate:"oneof=development production test"`
	LogFile     string

	BackendURL       string        `validate:"required,url"`
	ParticipantToken string
	BackendTimeout   time.Duration `validate:"min=0"`

	RedisURL         string
	QuestionCacheTTL time.Duration `validate:"min=0"`
	DatabaseURL      string

	MaxFullscreenExits     int           `validate:"min=1,max=20"`
	FullscreenReentryDelay time.Duration `validate:"min=0"`
	TimeWarningSeconds     int           `validate:"min=0"`
	GroupingPreserveOrder  bool

	Events EventConfig
}

// LoadConfig reads an optional .env file and the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogFile:     os.Getenv("LOG_FILE"),

		BackendURL:       getEnv("BACKEND_URL", "http://localhost:8000"),
		ParticipantToken: os.Getenv("PARTICIPANT_TOKEN"),
		BackendTimeout:   getDuration("BACKEND_TIMEOUT", 15*time.Second),

		RedisURL:         os.Getenv("REDIS_URL"),
		QuestionCacheTTL: getDuration("QUESTION_CACHE_TTL", 10*time.Minute),
		DatabaseURL:      os.Getenv("DATABASE_URL"),

		MaxFullscreenExits:     getInt("MAX_FULLSCREEN_EXITS", 3),
		FullscreenReentryDelay: getDuration("FULLSCREEN_REENTRY_DELAY", time.Second),
		TimeWarningSeconds:     getInt("TIME_WARNING_SECONDS", 300),
		GroupingPreserveOrder:  getBool("GROUPING_PRESERVE_ORDER", false),

		Events: EventConfig{
			Enabled:      getBool("EVENTS_ENABLED", false),
			Publisher:    getEnv("EVENTS_PUBLISHER", "kafka"),
			KafkaBrokers: getEnv("KAFKA_BROKERS", "localhost:9092"),
			SessionTopic: getEnv("SESSION_TOPIC", "proctor.sessions"),
		},
	}

	if err := validator.New().ValidateStruct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validator.ToValidationErrors(err))
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return defaultValue
	}
	return b
}

// getDuration accepts Go durations ("15s") or a bare number of seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
