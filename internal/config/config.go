// Package config loads driver-capture configuration from a YAML document
// with environment-variable overrides for runtime knobs.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultListenAddr     = ":8470"
	defaultDBPath         = "samples.db"
	defaultSupplier       = "Flixton"
	defaultCode           = "GB S011"
	defaultRemotePort     = 5432
	defaultRemoteSSLMode  = "disable"
	defaultSyncBatchLimit = 200
	defaultRemoteTimeout  = 30 * time.Second
	defaultLookupCacheTTL = 15 * time.Minute
	maxSyncBatchLimit     = 1000
)

// Config holds the single process-wide configuration value. It is constructed
// once at startup and injected into every component that needs it.
type Config struct {
	ListenAddr string
	LogLevel   string
	DevMode    bool

	DBPath string

	AllowedSSIDs  []string
	AllowEthernet bool

	Remote   Remote
	Defaults Defaults
	DeviceID string
	DriverID string

	Sync   Sync
	Lookup Lookup
}

// Remote holds connection parameters for the central PostgreSQL store.
type Remote struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	SSLMode      string
	EnsureSchema bool
}

// DSN renders the lib/pq connection string.
func (r Remote) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		r.Host, r.Port, r.User, r.Password, r.Database, r.SSLMode,
	)
}

// Defaults are field values applied to created samples when absent.
type Defaults struct {
	Supplier string
	Code     string
}

// Sync holds synchronization-run settings.
type Sync struct {
	BatchLimit int
	// Interval enables the periodic sync loop when positive; zero means
	// sync runs only on explicit request.
	Interval time.Duration
	// RemoteTimeout bounds one remote upsert call.
	RemoteTimeout time.Duration
}

// Lookup configures suggested-value sources for capture form fields.
type Lookup struct {
	CacheTTL time.Duration
	Fields   map[string]LookupField
}

// LookupField describes one field's suggestion source.
type LookupField struct {
	Source  string   `yaml:"source"`
	Options []string `yaml:"options"`
	Table   string   `yaml:"table"`
	Column  string   `yaml:"column"`
}

// fileConfig is the raw YAML shape; durations arrive as strings.
type fileConfig struct {
	ListenAddr    string   `yaml:"listen_addr"`
	LogLevel      string   `yaml:"log_level"`
	DevMode       bool     `yaml:"dev_mode"`
	DBPath        string   `yaml:"db_path"`
	AllowedSSIDs  []string `yaml:"allowed_ssids"`
	AllowEthernet *bool    `yaml:"allow_ethernet"`

	Remote struct {
		Host         string `yaml:"host"`
		Port         int    `yaml:"port"`
		User         string `yaml:"user"`
		Password     string `yaml:"password"`
		Database     string `yaml:"db"`
		SSLMode      string `yaml:"sslmode"`
		EnsureSchema bool   `yaml:"ensure_schema"`
	} `yaml:"remote"`

	Defaults struct {
		Supplier string `yaml:"supplier"`
		Code     string `yaml:"code"`
	} `yaml:"defaults"`

	DeviceID string `yaml:"device_id"`
	DriverID string `yaml:"driver_id"`

	Sync struct {
		BatchLimit    int    `yaml:"batch_limit"`
		Interval      string `yaml:"interval"`
		RemoteTimeout string `yaml:"remote_timeout"`
	} `yaml:"sync"`

	Lookup struct {
		CacheTTL string                 `yaml:"cache_ttl"`
		Fields   map[string]LookupField `yaml:"fields"`
	} `yaml:"lookup"`
}

// Load reads the YAML document at path and applies environment overrides.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %q: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return Config{}, fmt.Errorf("parsing config %q: %w", path, err)
	}

	cfg := Config{
		ListenAddr:    envOrDefault("CAPTURE_LISTEN_ADDR", orDefault(fc.ListenAddr, defaultListenAddr)),
		LogLevel:      strings.ToLower(envOrDefault("CAPTURE_LOG_LEVEL", orDefault(fc.LogLevel, "info"))),
		DevMode:       envBool("CAPTURE_DEV_MODE", fc.DevMode),
		DBPath:        envOrDefault("CAPTURE_DB_PATH", orDefault(fc.DBPath, defaultDBPath)),
		AllowedSSIDs:  trimmedNonEmpty(fc.AllowedSSIDs),
		AllowEthernet: fc.AllowEthernet == nil || *fc.AllowEthernet,
		DeviceID:      envOrDefault("CAPTURE_DEVICE_ID", strings.TrimSpace(fc.DeviceID)),
		DriverID:      envOrDefault("CAPTURE_DRIVER_ID", strings.TrimSpace(fc.DriverID)),
	}

	cfg.Remote = Remote{
		Host:         strings.TrimSpace(fc.Remote.Host),
		Port:         fc.Remote.Port,
		User:         strings.TrimSpace(fc.Remote.User),
		Password:     envOrDefault("CAPTURE_REMOTE_PASSWORD", fc.Remote.Password),
		Database:     strings.TrimSpace(fc.Remote.Database),
		SSLMode:      orDefault(strings.TrimSpace(fc.Remote.SSLMode), defaultRemoteSSLMode),
		EnsureSchema: fc.Remote.EnsureSchema,
	}
	if cfg.Remote.Port <= 0 {
		cfg.Remote.Port = defaultRemotePort
	}
	if cfg.Remote.Host == "" {
		return Config{}, fmt.Errorf("remote.host is required")
	}
	if cfg.Remote.User == "" {
		return Config{}, fmt.Errorf("remote.user is required")
	}
	if cfg.Remote.Database == "" {
		return Config{}, fmt.Errorf("remote.db is required")
	}

	cfg.Defaults = Defaults{
		Supplier: orDefault(strings.TrimSpace(fc.Defaults.Supplier), defaultSupplier),
		Code:     orDefault(strings.TrimSpace(fc.Defaults.Code), defaultCode),
	}

	cfg.Sync = Sync{
		BatchLimit:    envPositiveInt("CAPTURE_SYNC_BATCH_LIMIT", fc.Sync.BatchLimit),
		Interval:      envDuration("CAPTURE_SYNC_INTERVAL", parseDuration(fc.Sync.Interval, 0)),
		RemoteTimeout: envDuration("CAPTURE_SYNC_REMOTE_TIMEOUT", parseDuration(fc.Sync.RemoteTimeout, defaultRemoteTimeout)),
	}
	if cfg.Sync.BatchLimit <= 0 {
		cfg.Sync.BatchLimit = defaultSyncBatchLimit
	}
	if cfg.Sync.BatchLimit > maxSyncBatchLimit {
		cfg.Sync.BatchLimit = maxSyncBatchLimit
	}
	if cfg.Sync.RemoteTimeout <= 0 {
		cfg.Sync.RemoteTimeout = defaultRemoteTimeout
	}

	cfg.Lookup = Lookup{
		CacheTTL: parseDuration(fc.Lookup.CacheTTL, defaultLookupCacheTTL),
		Fields:   fc.Lookup.Fields,
	}

	return cfg, nil
}

func orDefault(value, defaultVal string) string {
	if strings.TrimSpace(value) == "" {
		return defaultVal
	}
	return value
}

func trimmedNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseDuration(raw string, defaultVal time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultVal
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed < 0 {
		return defaultVal
	}
	return parsed
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		switch strings.ToLower(v) {
		case "yes", "on":
			return true
		case "no", "off":
			return false
		default:
			return defaultVal
		}
	}
	return b
}

func envPositiveInt(key string, defaultVal int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return defaultVal
	}
	return parsed
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed < 0 {
		return defaultVal
	}
	return parsed
}
