package auth_api_config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/NordCoder/Homeroom/internal/services/auth-api/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = strings.Repeat("k", 32)

const testDBURL = "postgres://test/homeroom"

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "auth-api.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", testSecret)
	t.Setenv("DB_URL", testDBURL)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, testSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, 2*time.Hour, cfg.Auth.ResetWindow)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Empty(t, cfg.Server.TrustedProxies)
	assert.True(t, cfg.RateLimit.Enable)
	assert.Equal(t, auth.RateLimitRule{Limit: 10, Window: time.Minute}, cfg.RateLimit.Rules[auth.RouteLogin])
	assert.Equal(t, "homeroom.auth.mail", cfg.Kafka.Topic)
	assert.Equal(t, 50, cfg.Outbox.BatchSize)
	assert.Equal(t, "homeroom/auth-api", cfg.Log.AsLoggerConfig(cfg.App).App)
}

func TestLoad_SecretRequired(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", "")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.jwt_secret is required")

	t.Setenv("AUTH_JWT_SECRET", "too-short")
	_, err = Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 bytes")
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := writeYAML(t, `
auth:
  jwt_secret: `+testSecret+`
  access_ttl: 15m
rate_limit:
  enable: false
  rules:
    login:
      limit: 3
      window: 30s
db:
  url: postgres://file/homeroom
`)
	t.Setenv("DB_URL", "postgres://env/homeroom")
	t.Setenv("AUTH_REFRESH_TTL", "48h")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 48*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, "postgres://env/homeroom", cfg.DB.URL)
	assert.False(t, cfg.RateLimit.Enable)
	assert.Equal(t, auth.RateLimitRule{Limit: 3, Window: 30 * time.Second}, cfg.RateLimit.Rules[auth.RouteLogin])

	sc := cfg.ServiceConfig()
	assert.Equal(t, 15*time.Minute, sc.AccessTTL)
}

func TestLoad_MissingFileIsIgnored(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", testSecret)
	t.Setenv("DB_URL", testDBURL)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
}

func TestLoad_DBURLHasNoDefault(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", testSecret)
	t.Setenv("DB_URL", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db.url is required")
}

func TestLoad_RejectsSubMillisecondWindow(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", testSecret)
	t.Setenv("DB_URL", testDBURL)
	path := writeYAML(t, `
rate_limit:
  rules:
    login:
      limit: 5
      window: 500us
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limit.rules.login.window")
}

func TestLoad_TrustedProxies(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", testSecret)
	t.Setenv("DB_URL", testDBURL)
	path := writeYAML(t, `
server:
  trusted_proxies: ["10.0.0.0/8", "192.168.1.7"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	prefixes, err := cfg.Server.ProxyPrefixes()
	require.NoError(t, err)
	require.Len(t, prefixes, 2)
	assert.Equal(t, "10.0.0.0/8", prefixes[0].String())
	assert.Equal(t, "192.168.1.7/32", prefixes[1].String())

	bad := writeYAML(t, `
server:
  trusted_proxies: ["not-a-cidr"]
`)
	_, err = Load(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trusted proxy")
}
