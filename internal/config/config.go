package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env       string
	Addr      string
	PublicURL *url.URL
	DBDSN     string
	LogLevel  string

	SessionSecret string
	SessionTTL    time.Duration
	TokenTTL      time.Duration

	// ExposeTokens puts raw verification/reset tokens in API responses
	// instead of relying on email delivery. Development only; Load
	// rejects it in prod.
	ExposeTokens bool

	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	SMTPTLSMode   string
	SMTPFromName  string
	SMTPFromEmail string

	GoogleClientID     string
	GoogleClientSecret string
	AppleServiceID     string
}

func Load() (Config, error) {
	return LoadFromEnv(os.Getenv)
}

func LoadFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Env:           getenv("APP_ENV"),
		Addr:          getenv("APP_ADDR"),
		DBDSN:         getenv("APP_DB_DSN"),
		LogLevel:      getenv("APP_LOG_LEVEL"),
		SessionSecret: getenv("APP_SESSION_SECRET"),

		SMTPHost:      getenv("APP_SMTP_HOST"),
		SMTPUsername:  getenv("APP_SMTP_USERNAME"),
		SMTPPassword:  getenv("APP_SMTP_PASSWORD"),
		SMTPTLSMode:   getenv("APP_SMTP_TLS_MODE"),
		SMTPFromName:  getenv("APP_SMTP_FROM_NAME"),
		SMTPFromEmail: strings.TrimSpace(strings.ToLower(getenv("APP_SMTP_FROM_EMAIL"))),

		GoogleClientID:     getenv("APP_GOOGLE_CLIENT_ID"),
		GoogleClientSecret: getenv("APP_GOOGLE_CLIENT_SECRET"),
		AppleServiceID:     getenv("APP_APPLE_SERVICE_ID"),
	}

	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}

	switch cfg.Env {
	case "dev", "prod", "test":
	default:
		return Config{}, errors.New("APP_ENV: must be one of dev, test, prod")
	}

	publicURLRaw := getenv("APP_PUBLIC_URL")
	if publicURLRaw != "" {
		parsed, err := url.Parse(publicURLRaw)
		if err != nil {
			return Config{}, fmt.Errorf("APP_PUBLIC_URL: %w", err)
		}
		if !parsed.IsAbs() || parsed.Host == "" {
			return Config{}, errors.New("APP_PUBLIC_URL: must be an absolute URL")
		}
		switch parsed.Scheme {
		case "http", "https":
		default:
			return Config{}, errors.New("APP_PUBLIC_URL: scheme must be http or https")
		}
		cfg.PublicURL = parsed
	}

	var err error
	cfg.SessionTTL, err = parseTTL(getenv("APP_SESSION_TTL"), 30*24*time.Hour)
	if err != nil {
		return Config{}, fmt.Errorf("APP_SESSION_TTL: %w", err)
	}
	cfg.TokenTTL, err = parseTTL(getenv("APP_TOKEN_TTL"), 24*time.Hour)
	if err != nil {
		return Config{}, fmt.Errorf("APP_TOKEN_TTL: %w", err)
	}

	switch raw := getenv("APP_EXPOSE_TOKENS"); raw {
	case "", "0", "false":
	case "1", "true":
		cfg.ExposeTokens = true
	default:
		return Config{}, errors.New("APP_EXPOSE_TOKENS: must be a boolean")
	}

	if portRaw := getenv("APP_SMTP_PORT"); portRaw != "" {
		port, err := strconv.Atoi(portRaw)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, errors.New("APP_SMTP_PORT: must be a valid port")
		}
		cfg.SMTPPort = port
	} else if cfg.SMTPHost != "" {
		cfg.SMTPPort = 587
	}

	if cfg.GoogleClientSecret != "" && cfg.GoogleClientID == "" {
		return Config{}, errors.New("APP_GOOGLE_CLIENT_ID: required when APP_GOOGLE_CLIENT_SECRET is set")
	}

	if cfg.IsProd() {
		if cfg.PublicURL == nil {
			return Config{}, errors.New("APP_PUBLIC_URL: required in prod")
		}
		if cfg.DBDSN == "" {
			return Config{}, errors.New("APP_DB_DSN: required in prod")
		}
		if len(cfg.SessionSecret) < 32 {
			return Config{}, errors.New("APP_SESSION_SECRET: must be at least 32 bytes in prod")
		}
		if cfg.ExposeTokens {
			return Config{}, errors.New("APP_EXPOSE_TOKENS: must be disabled in prod")
		}
	}

	return cfg, nil
}

func (c Config) IsProd() bool { return c.Env == "prod" }

func (c Config) CookieSecure() bool {
	if c.PublicURL != nil {
		return c.PublicURL.Scheme == "https"
	}
	return c.IsProd()
}

// BaseURL is the absolute prefix for links embedded in emails.
func (c Config) BaseURL() string {
	if c.PublicURL != nil {
		return strings.TrimRight(c.PublicURL.String(), "/")
	}
	return "http://" + c.Addr
}

func parseTTL(raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	ttl, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if ttl <= 0 {
		return 0, errors.New("must be > 0")
	}
	return ttl, nil
}
