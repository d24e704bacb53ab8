package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, int64(300), cfg.Settlement.FeeBps)
	assert.Equal(t, "treasury", cfg.Settlement.TreasuryAccount)
	assert.False(t, cfg.Auth.Enabled())
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "verbose"
	cfg.Redis.Addr = ""
	cfg.Server.Port = 0
	cfg.Settlement.FeeBps = 20_000
	cfg.Settlement.TreasuryAccount = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "redis: addr")
	assert.Contains(t, err.Error(), "server: port")
	assert.Contains(t, err.Error(), "fee_bps")
	assert.Contains(t, err.Error(), "treasury_account")
}

func TestValidateAuthHashes(t *testing.T) {
	cfg := Defaults()
	cfg.Auth.AdminKeyHashes = []string{"plain-secret"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bcrypt")

	cfg.Auth.AdminKeyHashes = []string{"$2a$10$abcdefghijklmnopqrstuv"}
	assert.NoError(t, cfg.Validate())
}

func TestValidateS3OnlyWhenEnabled(t *testing.T) {
	cfg := Defaults()
	cfg.S3.Bucket = ""
	assert.NoError(t, cfg.Validate())

	cfg.S3.Enabled = true
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3: bucket")
}

func TestValidateTelegramPairing(t *testing.T) {
	cfg := Defaults()
	cfg.Notify.TelegramToken = "token-only"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SETTLE_DATABASE_DSN", "postgres://env-dsn")
	t.Setenv("SETTLE_SERVER_PORT", "9090")
	t.Setenv("SETTLE_SETTLEMENT_FEE_BPS", "250")
	t.Setenv("SETTLE_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SETTLE_SERVER_RATE_LIMIT_WINDOW", "30s")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "postgres://env-dsn", cfg.Database.DSN)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, int64(250), cfg.Settlement.FeeBps)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 30*time.Second, cfg.Server.RateLimitWindow.Duration)
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Database.Password = "hunter2"
	cfg.Auth.ServiceKey = "svc-key"
	cfg.Notify.TelegramToken = "tg-token"
	cfg.Notify.TelegramChatID = "123"

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Database.Password)
	assert.Equal(t, "***", red.Auth.ServiceKey)
	assert.Equal(t, "***", red.Notify.TelegramToken)

	// Original untouched.
	assert.Equal(t, "hunter2", cfg.Database.Password)
}
