package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("CAMPAIGN_WEBHOOK_TIMEOUT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Campaign.WebhookTimeout)
	assert.Equal(t, "campaign-media", cfg.Storage.MediaBucket)
	assert.Equal(t, "America/Sao_Paulo", cfg.Campaign.Timezone)
	assert.Equal(t, ":9091", cfg.Worker.MetricsAddr)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "https://app.petdesk.com.br, http://localhost:5173")
	t.Setenv("FISCAL_CONSULT_DELAY", "1m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Addr())
	assert.Equal(t, []string{"https://app.petdesk.com.br", "http://localhost:5173"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, time.Minute, cfg.Fiscal.ConsultDelay)
}

func TestLoad_InvalidInt(t *testing.T) {
	t.Setenv("SERVER_PORT", "abc")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVER_PORT")
}

func TestValidate_ReportsAllMissing(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "SUPABASE_JWT_SECRET")
	assert.Contains(t, err.Error(), "CAMPAIGN_WEBHOOK_URL")
}

func TestLogConfig_SlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LogConfig{Level: "DEBUG"}.SlogLevel())
	assert.Equal(t, slog.LevelWarn, LogConfig{Level: "warn"}.SlogLevel())
	assert.Equal(t, slog.LevelInfo, LogConfig{Level: "bogus"}.SlogLevel())
}
