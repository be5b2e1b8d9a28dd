package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/localmesh/fsminer/pkg/miner/config"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	require.Equal(t, config.Default(), cfg)
}

func TestLoadParsesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "miner.yml")
	contents := `
pool:
  limit: 8
throttle:
  initial: 0.5
ignore:
  paths:
    - "**/.git/**"
  directoryContents:
    - ".minerignore"
monitor:
  excludePaths:
    - "**/node_modules/**"
store:
  driver: sqlite
  path: /var/lib/fsminer/index.db
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, 8, cfg.Pool.Limit)
	require.Equal(t, 0.5, cfg.Throttle.Initial)
	require.Equal(t, []string{"**/.git/**"}, cfg.Ignore.Paths)
	require.Equal(t, []string{".minerignore"}, cfg.Ignore.DirectoryContents)
	require.Equal(t, []string{"**/node_modules/**"}, cfg.Monitor.Paths)
	require.Equal(t, "sqlite", cfg.Store.Driver)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "miner.yml")
	require.NoError(t, os.WriteFile(path, []byte("pool:\n  limit: 4\n  bogus: true\n"), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)
}

func TestLoadRejectsInvalidThrottle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "miner.yml")
	require.NoError(t, os.WriteFile(path, []byte("throttle:\n  initial: 2\n"), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)
}
