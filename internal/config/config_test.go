package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Equal(t, 10, cfg.Room.Capacity)
	assert.Equal(t, time.Duration(0), cfg.Room.TurnAutoRelease)
	assert.Equal(t, 30*time.Minute, cfg.Room.IdleTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 10.0, cfg.WS.FramesPerSecond)
	assert.Contains(t, cfg.Room.Alerts, "tension")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("ROOM_CAPACITY", "4")
	t.Setenv("TURN_AUTO_RELEASE", "90s")
	t.Setenv("WS_ORIGIN_PATTERNS", "localhost:*,example.com")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.HTTPAddr)
	assert.Equal(t, 4, cfg.Room.Capacity)
	assert.Equal(t, 90*time.Second, cfg.Room.TurnAutoRelease)
	assert.Equal(t, []string{"localhost:*", "example.com"}, cfg.WS.OriginPatterns)
}

func TestLoadDotEnvFile(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("LOG_LEVEL"))
	t.Setenv("OUTBOX_SIZE", "64")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL=debug\nOUTBOX_SIZE=8\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("LOG_LEVEL") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 64, cfg.Room.OutboxSize, "environment wins over the file")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	t.Setenv("ROOM_CAPACITY", "0")
	t.Setenv("OUTBOX_SIZE", "0")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ROOM_CAPACITY")
	assert.Contains(t, err.Error(), "OUTBOX_SIZE")
}

func TestLoadAlertsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.yaml")
	body := `attributes:
  tension:
    - {name: uneasy, threshold: 50}
    - {name: breaking, threshold: 90}
  hp:
    - {name: bloodied, threshold: 0}
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("ALERT_CONFIG_PATH", path)

	cfg, err := LoadRoom()
	require.NoError(t, err)
	require.Len(t, cfg.Alerts["tension"], 2)
	assert.Equal(t, "breaking", cfg.Alerts["tension"][1].Name)
	assert.Equal(t, 90.0, cfg.Alerts["tension"][1].Threshold)
	assert.Contains(t, cfg.Alerts, "hp")
}

func TestLoadAlertsRejectsUnnamedLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("attributes:\n  tension:\n    - {threshold: 10}\n"), 0o600))

	_, err := LoadAlerts(path)
	assert.Error(t, err)
}
