package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath   = "configs/config.yaml"
	DefaultProfilesPath = "configs/profiles.yaml"
	DefaultTimezone     = "Europe/Istanbul"
)

type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup BackupConfig `yaml:"backup"`

	Export ExportConfig `yaml:"export"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	API struct {
		Enabled         bool    `yaml:"enabled"`
		Port            int     `yaml:"port"`
		APIKey          string  `yaml:"api_key"`
		RateLimitRPS    float64 `yaml:"rate_limit_rps"`
		RateLimitBurst  int     `yaml:"rate_limit_burst"`
		CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	} `yaml:"api"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Engine struct {
		Timezone        string `yaml:"timezone"`
		LockTimeoutMS   int    `yaml:"lock_timeout_ms"`
		LockRetries     int    `yaml:"lock_retries"`
		LockScope       string `yaml:"lock_scope"` // "global" or "date"
		ReloadIntervalS int    `yaml:"reload_interval_seconds"`
	} `yaml:"engine"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // "console" or "json"
	} `yaml:"logging"`

	ProfilesPath string `yaml:"profiles_path"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// ExportConfig controls the monthly workbook export and audit retention.
type ExportConfig struct {
	Enabled            bool   `yaml:"enabled"`
	Path               string `yaml:"path"`
	AuditRetentionDays int    `yaml:"audit_retention_days"`
}

// Load reads the YAML config. A .env file next to the working directory is loaded first
// so that ${ENV_VAR} placeholders can be resolved from it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if cfg.Database.Path != ":memory:" {
		if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, err
		}
	}

	if _, err = cfg.Location(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns a config with every default applied, for running without a file.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "data/randevu.db"
	}
	if c.Engine.Timezone == "" {
		c.Engine.Timezone = DefaultTimezone
	}
	if c.Engine.LockScope == "" {
		c.Engine.LockScope = "global"
	}
	if c.ProfilesPath == "" {
		c.ProfilesPath = DefaultProfilesPath
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Monitoring.HealthCheckPort == 0 {
		c.Monitoring.HealthCheckPort = 8090
	}
	if c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Backup.Path == "" {
		c.Backup.Path = "data/backups"
	}
	if c.Export.Path == "" {
		c.Export.Path = "data/exports"
	}
}

// Location resolves the engine time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Engine.Timezone)
	if err != nil {
		return nil, fmt.Errorf("engine.timezone %q: %w", c.Engine.Timezone, err)
	}
	return loc, nil
}

func (c *Config) LockTimeout() time.Duration {
	if c.Engine.LockTimeoutMS <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.Engine.LockTimeoutMS) * time.Millisecond
}

// ShardLocksByDate reports whether writers on different dates may run in parallel.
func (c *Config) ShardLocksByDate() bool {
	return c.Engine.LockScope == "date"
}

func (c *Config) ReloadInterval() time.Duration {
	if c.Engine.ReloadIntervalS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Engine.ReloadIntervalS) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	if c.API.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.API.CacheTTLSeconds) * time.Second
}

func (c *Config) BackupInterval() time.Duration {
	return c.Backup.Interval()
}

func (b BackupConfig) Interval() time.Duration {
	if b.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(b.IntervalHours) * time.Hour
}
