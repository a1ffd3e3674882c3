package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/wadjakorntonsri/go-shortlink/pkg/core/domain"
)

type Config struct {
	DatabaseURL string
	AppEnv      string

	// DefaultDomain is the authority served without an explicit domain.
	// Requests naming it are stored in the default scope.
	DefaultDomain string

	ShortCodeLength      int
	ShortCodeMaxAttempts int
	SlugMinLength        int
	SlugMaxLength        int

	AutoResolveTitles bool
	TitleFetchTimeout time.Duration
	TitleUserAgent    string
	AllowedURLSchemes []string

	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	cfg := &Config{
		DatabaseURL:          getEnv("DATABASE_URL", "file:shortlink.db"),
		AppEnv:               getEnv("APP_ENV", "local"),
		DefaultDomain:        strings.ToLower(getEnv("DEFAULT_DOMAIN", "")),
		ShortCodeLength:      getIntEnv("SHORT_CODE_LENGTH", 5),
		ShortCodeMaxAttempts: getIntEnv("SHORT_CODE_MAX_ATTEMPTS", 10),
		SlugMinLength:        getIntEnv("SLUG_MIN_LENGTH", 1),
		SlugMaxLength:        getIntEnv("SLUG_MAX_LENGTH", 64),
		AutoResolveTitles:    getBoolEnv("AUTO_RESOLVE_TITLES", false),
		TitleFetchTimeout:    getDurationEnv("TITLE_FETCH_TIMEOUT", 5*time.Second),
		TitleUserAgent:       getEnv("TITLE_USER_AGENT", "go-shortlink/1.0"),
		AllowedURLSchemes:    getListEnv("ALLOWED_URL_SCHEMES", []string{"http", "https"}),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "text"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the allocation settings are usable.
func (c *Config) Validate() error {
	if c.ShortCodeLength < domain.MinShortCodeLength {
		return fmt.Errorf("SHORT_CODE_LENGTH must be at least %d", domain.MinShortCodeLength)
	}
	if c.ShortCodeMaxAttempts < 1 {
		return fmt.Errorf("SHORT_CODE_MAX_ATTEMPTS must be at least 1")
	}
	if c.SlugMinLength < 1 || c.SlugMaxLength < c.SlugMinLength {
		return fmt.Errorf("SLUG_MIN_LENGTH/SLUG_MAX_LENGTH must satisfy 1 <= min <= max")
	}
	if len(c.AllowedURLSchemes) == 0 {
		return fmt.Errorf("ALLOWED_URL_SCHEMES must not be empty")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getListEnv(key string, fallback []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
