package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oscarchatwin1/microsearch-driver-capture/internal/config"
)

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

const minimalDoc = `
remote:
  host: central.example.com
  user: capture
  db: capture
`

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, minimalDoc))
	require.NoError(t, err)

	assert.Equal(t, ":8470", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, "samples.db", cfg.DBPath)
	assert.Empty(t, cfg.AllowedSSIDs)
	assert.True(t, cfg.AllowEthernet, "wired sync is authorized unless switched off")

	assert.Equal(t, 5432, cfg.Remote.Port)
	assert.Equal(t, "disable", cfg.Remote.SSLMode)
	assert.Equal(t, "Flixton", cfg.Defaults.Supplier)
	assert.Equal(t, "GB S011", cfg.Defaults.Code)

	assert.Equal(t, 200, cfg.Sync.BatchLimit)
	assert.Zero(t, cfg.Sync.Interval)
	assert.Equal(t, 30*time.Second, cfg.Sync.RemoteTimeout)
	assert.Equal(t, 15*time.Minute, cfg.Lookup.CacheTTL)
}

func TestLoad_FullDocument(t *testing.T) {
	doc := `
listen_addr: ":9000"
log_level: DEBUG
dev_mode: true
db_path: /var/lib/capture/samples.db
allowed_ssids:
  - " DepotNet "
  - ""
  - YardNet
allow_ethernet: false
device_id: DEVICE_007
driver_id: DRIVER_042
remote:
  host: central.example.com
  port: 5433
  user: capture
  password: s3cret
  db: capture
  sslmode: require
  ensure_schema: true
defaults:
  supplier: Acme
  code: GB X999
sync:
  batch_limit: 25
  interval: 5m
  remote_timeout: 10s
lookup:
  cache_ttl: 1h
  fields:
    retailer:
      source: static
      options: [Asda, Morrisons]
    customer:
      source: remote
      table: samples
      column: customer
`
	cfg, err := config.Load(writeConfig(t, doc))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, []string{"DepotNet", "YardNet"}, cfg.AllowedSSIDs)
	assert.False(t, cfg.AllowEthernet)
	assert.Equal(t, "DEVICE_007", cfg.DeviceID)
	assert.Equal(t, "DRIVER_042", cfg.DriverID)

	assert.Equal(t, 5433, cfg.Remote.Port)
	assert.Equal(t, "require", cfg.Remote.SSLMode)
	assert.True(t, cfg.Remote.EnsureSchema)
	assert.Contains(t, cfg.Remote.DSN(), "host=central.example.com")
	assert.Contains(t, cfg.Remote.DSN(), "password=s3cret")

	assert.Equal(t, "Acme", cfg.Defaults.Supplier)
	assert.Equal(t, 25, cfg.Sync.BatchLimit)
	assert.Equal(t, 5*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 10*time.Second, cfg.Sync.RemoteTimeout)

	assert.Equal(t, time.Hour, cfg.Lookup.CacheTTL)
	require.Contains(t, cfg.Lookup.Fields, "customer")
	assert.Equal(t, "remote", cfg.Lookup.Fields["customer"].Source)
	assert.Equal(t, []string{"Asda", "Morrisons"}, cfg.Lookup.Fields["retailer"].Options)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CAPTURE_LISTEN_ADDR", ":9999")
	t.Setenv("CAPTURE_LOG_LEVEL", "WARN")
	t.Setenv("CAPTURE_DEV_MODE", "yes")
	t.Setenv("CAPTURE_REMOTE_PASSWORD", "from-env")
	t.Setenv("CAPTURE_SYNC_BATCH_LIMIT", "77")
	t.Setenv("CAPTURE_SYNC_INTERVAL", "90s")

	cfg, err := config.Load(writeConfig(t, minimalDoc))
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, "from-env", cfg.Remote.Password)
	assert.Equal(t, 77, cfg.Sync.BatchLimit)
	assert.Equal(t, 90*time.Second, cfg.Sync.Interval)
}

func TestLoad_BatchLimitClamped(t *testing.T) {
	doc := minimalDoc + `
sync:
  batch_limit: 5000
`
	cfg, err := config.Load(writeConfig(t, doc))
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Sync.BatchLimit)
}

func TestLoad_RequiresRemoteCoordinates(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		msg  string
	}{
		{name: "missing host", doc: "remote:\n  user: capture\n  db: capture\n", msg: "remote.host is required"},
		{name: "missing user", doc: "remote:\n  host: h\n  db: capture\n", msg: "remote.user is required"},
		{name: "missing db", doc: "remote:\n  host: h\n  user: capture\n", msg: "remote.db is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedDurationFallsBack(t *testing.T) {
	doc := minimalDoc + `
sync:
  interval: shortly
  remote_timeout: -5s
`
	cfg, err := config.Load(writeConfig(t, doc))
	require.NoError(t, err)
	assert.Zero(t, cfg.Sync.Interval)
	assert.Equal(t, 30*time.Second, cfg.Sync.RemoteTimeout)
}
