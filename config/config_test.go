package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// GIVEN a clean environment
	t.Setenv("APP_PORT", "")
	t.Setenv("SQLITE_PATH", "")
	t.Setenv("RECALC_WINDOW_DAYS", "")

	// WHEN loading the config
	cfg, err := Load("does-not-exist.env")

	// THEN the documented defaults apply
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sitebook.db", cfg.Database.Path)
	assert.True(t, cfg.Recalc.Enabled)
	assert.Equal(t, "30 2 * * *", cfg.Recalc.CronSchedule)
	assert.Equal(t, 14, cfg.Recalc.WindowDays)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("SQLITE_PATH", "/tmp/wages.db")
	t.Setenv("RECALC_ENABLED", "false")
	t.Setenv("RECALC_WINDOW_DAYS", "30")
	t.Setenv("CORS_ORIGINS", "https://app.example.com, https://admin.example.com")

	cfg, err := Load("does-not-exist.env")

	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "/tmp/wages.db", cfg.Database.Path)
	assert.False(t, cfg.Recalc.Enabled)
	assert.Equal(t, 30, cfg.Recalc.WindowDays)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.Server.CORSOrigins)
}

func TestLoad_InvalidWindowDays(t *testing.T) {
	t.Setenv("RECALC_WINDOW_DAYS", "soon")

	_, err := Load("does-not-exist.env")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "RECALC_WINDOW_DAYS")
}

func TestValidate_Rejects(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: "8080"},
			Database: DatabaseConfig{Path: "x.db"},
			Recalc:   RecalcConfig{Enabled: true, CronSchedule: "30 2 * * *", WindowDays: 14},
		}
	}

	t.Run("missing port", func(t *testing.T) {
		cfg := base()
		cfg.Server.Port = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing schedule while enabled", func(t *testing.T) {
		cfg := base()
		cfg.Recalc.CronSchedule = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero window", func(t *testing.T) {
		cfg := base()
		cfg.Recalc.WindowDays = 0
		assert.Error(t, cfg.Validate())
	})
}
