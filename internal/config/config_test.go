package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cachequery/internal/cache"
	"github.com/roach88/cachequery/internal/logger"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(wd)) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, &Config{
		Log:   logger.Config{Level: logger.Info, Format: logger.FormatConsole},
		Store: StoreConfig{Path: "cachequery.db"},
		Cache: CacheConfig{Name: "default", Partitions: cache.DefaultPartitions},
	}, cfg)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "custom.yaml", `
log:
  level: debug
  format: json
store:
  path: /var/lib/cachequery/entries.db
cache:
  name: people
  partitions: 16
  keep_portable: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, logger.Debug, cfg.Log.Level)
	assert.Equal(t, logger.FormatJSON, cfg.Log.Format)
	assert.Equal(t, "/var/lib/cachequery/entries.db", cfg.Store.Path)
	assert.Equal(t, CacheConfig{Name: "people", Partitions: 16, KeepPortable: true}, cfg.Cache)
}

func TestLoad_DefaultFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, DefaultFile, "cache:\n  name: found\n")
	chdir(t, dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "found", cfg.Cache.Name)
	assert.Equal(t, cache.DefaultPartitions, cfg.Cache.Partitions)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "c.yaml", "cache:\n  name: fromfile\n  partitions: 8\n")
	t.Setenv("CACHEQUERY_CACHE_NAME", "fromenv")
	t.Setenv("CACHEQUERY_CACHE_KEEP_PORTABLE", "true")
	t.Setenv("CACHEQUERY_STORE_PATH", "env.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "fromenv", cfg.Cache.Name)
	assert.Equal(t, 8, cfg.Cache.Partitions)
	assert.True(t, cfg.Cache.KeepPortable)
	assert.Equal(t, "env.db", cfg.Store.Path)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent.yaml")
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "bad.yaml", "cache: [unclosed\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "c.yaml", "cache:\n  partitions: 0\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.partitions")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Log:   logger.Config{Level: logger.Info, Format: logger.FormatJSON},
			Store: StoreConfig{Path: "x.db"},
			Cache: CacheConfig{Name: "c", Partitions: 1},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"store path", func(c *Config) { c.Store.Path = "" }, "store.path"},
		{"cache name", func(c *Config) { c.Cache.Name = "" }, "cache.name"},
		{"too many partitions", func(c *Config) { c.Cache.Partitions = cache.MaxPartitions + 1 }, "cache.partitions"},
		{"negative partitions", func(c *Config) { c.Cache.Partitions = -1 }, "cache.partitions"},
	}

	base := valid()
	require.NoError(t, base.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestCacheConfig_Context(t *testing.T) {
	c, err := CacheConfig{Name: "people", Partitions: 4}.Context()
	require.NoError(t, err)
	assert.Equal(t, "people", c.Name())
	assert.Equal(t, 4, c.Partitions())
}
