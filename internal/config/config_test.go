package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
name = "testsrv"

[simulation]
snapshot_interval = 100
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "testsrv", cfg.Server.Name)
	require.Equal(t, 1, cfg.Server.ID)
	require.NotZero(t, cfg.Server.StartTime)

	// Unset fields keep defaults; set fields win.
	require.Equal(t, 100, cfg.Simulation.SnapshotInterval)
	require.Equal(t, 200, cfg.Simulation.StatsInterval)
	require.Equal(t, 50*time.Millisecond, cfg.Simulation.TickRate)
	require.Equal(t, float64(32), cfg.Simulation.CellSize)
	require.False(t, cfg.Database.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestLoadBadToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nname="), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}
