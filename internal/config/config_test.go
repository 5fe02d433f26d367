package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Len(t, cfg.Overpass.Mirrors, 5)
	assert.Equal(t, 180, cfg.Overpass.TimeoutSecs)
	assert.Equal(t, 6, cfg.Overpass.Retries)
	assert.Equal(t, 15, cfg.Overpass.RetryDelaySecs)
	assert.Equal(t, "Bengaluru", cfg.Pipeline.DefaultArea)
	assert.Equal(t, "leads_scored.csv", cfg.Export.CSVPath)
	assert.Equal(t, "leads_scored.xlsx", cfg.Export.XLSXPath)
	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LEADGEN_PIPELINE_DEFAULT_AREA", "Mumbai")
	t.Setenv("LEADGEN_STORE_DRIVER", "postgres")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Mumbai", cfg.Pipeline.DefaultArea)
	assert.Equal(t, "postgres", cfg.Store.Driver)
}

func TestDelayAccessors(t *testing.T) {
	cfg := Config{
		Pipeline: PipelineConfig{EnrichDelayMs: 1000},
		Outreach: OutreachConfig{SendDelaySecs: 5},
	}
	assert.Equal(t, time.Second, cfg.Pipeline.EnrichDelay())
	assert.Equal(t, 5*time.Second, cfg.Outreach.SendDelay())

	cfg.Overpass.TimeoutSecs = 180
	assert.Equal(t, 180*time.Second, cfg.Overpass.Timeout())
}

func TestValidateSend(t *testing.T) {
	cfg := Config{}
	assert.Error(t, cfg.ValidateSend())

	cfg.SMTP.Host = "smtp.example.com"
	assert.Error(t, cfg.ValidateSend())

	cfg.Outreach.SenderEmail = "outreach@example.com"
	assert.NoError(t, cfg.ValidateSend())
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.Error(t, InitLogger(LogConfig{Level: "nonsense"}))
}
