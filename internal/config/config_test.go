package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFromEnv(envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "127.0.0.1:8080", cfg.Addr)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.False(t, cfg.ExposeTokens)
	assert.False(t, cfg.IsProd())
	assert.False(t, cfg.CookieSecure())
	assert.Equal(t, "http://127.0.0.1:8080", cfg.BaseURL())
}

func TestLoadPublicURL(t *testing.T) {
	cfg, err := LoadFromEnv(envMap(map[string]string{
		"APP_PUBLIC_URL": "https://accounts.example.com/",
	}))
	require.NoError(t, err)
	assert.Equal(t, "https://accounts.example.com", cfg.BaseURL())
	assert.True(t, cfg.CookieSecure())

	_, err = LoadFromEnv(envMap(map[string]string{
		"APP_PUBLIC_URL": "accounts.example.com",
	}))
	assert.Error(t, err)

	_, err = LoadFromEnv(envMap(map[string]string{
		"APP_PUBLIC_URL": "ftp://accounts.example.com",
	}))
	assert.Error(t, err)
}

func TestLoadTTLs(t *testing.T) {
	cfg, err := LoadFromEnv(envMap(map[string]string{
		"APP_SESSION_TTL": "12h",
		"APP_TOKEN_TTL":   "1h",
	}))
	require.NoError(t, err)
	assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
	assert.Equal(t, time.Hour, cfg.TokenTTL)

	_, err = LoadFromEnv(envMap(map[string]string{"APP_TOKEN_TTL": "-1h"}))
	assert.Error(t, err)

	_, err = LoadFromEnv(envMap(map[string]string{"APP_SESSION_TTL": "soon"}))
	assert.Error(t, err)
}

func TestLoadSMTPPortDefault(t *testing.T) {
	cfg, err := LoadFromEnv(envMap(map[string]string{
		"APP_SMTP_HOST": "smtp.example.com",
	}))
	require.NoError(t, err)
	assert.Equal(t, 587, cfg.SMTPPort)

	cfg, err = LoadFromEnv(envMap(nil))
	require.NoError(t, err)
	assert.Zero(t, cfg.SMTPPort)

	_, err = LoadFromEnv(envMap(map[string]string{"APP_SMTP_PORT": "notaport"}))
	assert.Error(t, err)
}

func TestLoadProdRules(t *testing.T) {
	base := map[string]string{
		"APP_ENV":            "prod",
		"APP_PUBLIC_URL":     "https://accounts.example.com",
		"APP_DB_DSN":         "postgres://app@db/accounthub",
		"APP_SESSION_SECRET": "0123456789abcdef0123456789abcdef",
	}

	cfg, err := LoadFromEnv(envMap(base))
	require.NoError(t, err)
	assert.True(t, cfg.IsProd())
	assert.True(t, cfg.CookieSecure())

	for _, tt := range []struct {
		name     string
		mutate   func(map[string]string)
		wantPart string
	}{
		{"missing public url", func(m map[string]string) { delete(m, "APP_PUBLIC_URL") }, "APP_PUBLIC_URL"},
		{"missing dsn", func(m map[string]string) { delete(m, "APP_DB_DSN") }, "APP_DB_DSN"},
		{"short secret", func(m map[string]string) { m["APP_SESSION_SECRET"] = "short" }, "APP_SESSION_SECRET"},
		{"expose tokens", func(m map[string]string) { m["APP_EXPOSE_TOKENS"] = "true" }, "APP_EXPOSE_TOKENS"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			m := make(map[string]string, len(base))
			for k, v := range base {
				m[k] = v
			}
			tt.mutate(m)
			_, err := LoadFromEnv(envMap(m))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantPart)
		})
	}
}

func TestLoadRejectsUnknownEnv(t *testing.T) {
	_, err := LoadFromEnv(envMap(map[string]string{"APP_ENV": "staging"}))
	assert.Error(t, err)
}

func TestLoadGoogleSecretNeedsClientID(t *testing.T) {
	_, err := LoadFromEnv(envMap(map[string]string{
		"APP_GOOGLE_CLIENT_SECRET": "secret",
	}))
	assert.Error(t, err)
}
