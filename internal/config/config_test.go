package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFrom_File(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
database:
  driver: sqlite
  path: test.db
registry:
  listing_fee: "42"
indexer:
  interval: 500ms
  reset_on_start: false
task:
  workers: 3
`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "test.db", cfg.Database.DSN())
	assert.Equal(t, 500*time.Millisecond, cfg.Indexer.Interval)
	assert.False(t, cfg.Indexer.ResetOnStart)
	assert.Equal(t, 3, cfg.Task.Workers)

	fee, err := cfg.Registry.ListingFeeWei()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(42), fee)

	// 未出现在文件中的键使用默认值
	assert.Equal(t, int64(31337), cfg.Chain.ChainId)
	assert.Equal(t, 10, cfg.Chain.DevAccounts)
	assert.Equal(t, 60, cfg.Task.Interval)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFrom_EnvOverride(t *testing.T) {
	path := writeConfig(t, "server:\n  port: \"9090\"\n")
	t.Setenv("ICO_SERVER_PORT", "7070")
	t.Setenv("ICO_REGISTRY_LISTING_FEE", "1000")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "1000", cfg.Registry.ListingFee)
}

func TestLoadFrom_InvalidWei(t *testing.T) {
	path := writeConfig(t, "registry:\n  listing_fee: \"0.1 ether\"\n")

	_, err := LoadFrom(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry.listing_fee")
}

func TestLoadFrom_MissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Driver:   "postgres",
		Host:     "db",
		Port:     5432,
		User:     "ico",
		Password: "secret",
		DBName:   "ico",
		SSLMode:  "disable",
	}
	assert.Equal(t, "host=db port=5432 user=ico password=secret dbname=ico sslmode=disable", cfg.DSN())
}

func TestParseWei(t *testing.T) {
	v, err := parseWei("k", " 100 ")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), v)

	_, err = parseWei("k", "-1")
	assert.Error(t, err)
	_, err = parseWei("k", "")
	assert.Error(t, err)
}
