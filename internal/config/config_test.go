package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:3000", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "data/users.txt", cfg.Store.Path)
	assert.False(t, cfg.Store.Sync)
	assert.Equal(t, "https://api.example.com/activity", cfg.Activity.URL)
	assert.Zero(t, cfg.Activity.Timeout)
	assert.Equal(t, "data/runs.db", cfg.Journal.Path)
	assert.Empty(t, cfg.Archive.Bucket)
	assert.Equal(t, "userfeed", cfg.Archive.KeyPrefix)
	assert.Equal(t, time.Hour, cfg.Archive.Interval)
}

func TestLoadFromEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("USERFEED_SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("USERFEED_STORE_PATH", "/var/lib/userfeed/users.txt")
	t.Setenv("USERFEED_STORE_SYNC", "true")
	t.Setenv("USERFEED_ACTIVITY_TIMEOUT", "2s")
	t.Setenv("USERFEED_ARCHIVE_BUCKET", "backups")
	t.Setenv("USERFEED_ARCHIVE_INTERVAL", "15m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, "/var/lib/userfeed/users.txt", cfg.Store.Path)
	assert.True(t, cfg.Store.Sync)
	assert.Equal(t, 2*time.Second, cfg.Activity.Timeout)
	assert.Equal(t, "backups", cfg.Archive.Bucket)
	assert.Equal(t, 15*time.Minute, cfg.Archive.Interval)
}

func TestLoadDotEnvDoesNotOverrideEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(dir+"/.env", []byte("USERFEED_LOG_LEVEL=debug\nUSERFEED_JOURNAL_PATH=from-dotenv.db\n"), 0o644))
	t.Setenv("USERFEED_JOURNAL_PATH", "from-env.db")
	t.Cleanup(func() { _ = os.Unsetenv("USERFEED_LOG_LEVEL") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "from-env.db", cfg.Journal.Path)
}

func TestLoadRejectsNegativeTimeout(t *testing.T) {
	chdirTemp(t)
	t.Setenv("USERFEED_ACTIVITY_TIMEOUT", "-1s")

	_, err := Load()
	assert.Error(t, err)
}
