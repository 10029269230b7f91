package configtypes

import (
	"github.com/edgecomet/preview/pkg/types"
)

// Log level constants
const (
	LogLevelDebug  = "debug"
	LogLevelInfo   = "info"
	LogLevelWarn   = "warn"
	LogLevelError  = "error"
	LogLevelDPanic = "dpanic"
	LogLevelPanic  = "panic"
	LogLevelFatal  = "fatal"
)

// Log format constants
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
	LogFormatText    = "text"
)

// ConcurrencyAuto sizes a worker pool from available memory
const ConcurrencyAuto = "auto"

// PreviewConfig is the configuration shared by preview-service and preview-batch
type PreviewConfig struct {
	Server  ServerConfig        `yaml:"server"`
	Fetch   FetchConfig         `yaml:"fetch"`
	Cache   CacheConfig         `yaml:"cache"`
	Redis   RedisConfig         `yaml:"redis"`
	Log     LogConfig           `yaml:"log"`
	Metrics MetricsConfig       `yaml:"metrics"`
	Events  *EventLoggingConfig `yaml:"event_logging,omitempty"`
	Batch   BatchConfig         `yaml:"batch"`
}

type ServerConfig struct {
	Listen        string         `yaml:"listen"`
	Timeout       types.Duration `yaml:"timeout"`
	MaxConcurrent int            `yaml:"max_concurrent"` // previews processed at once; excess requests get 503
	// ClientIPHeaders are checked in order for the caller address; empty uses the TCP peer
	ClientIPHeaders []string `yaml:"client_ip_headers,omitempty"`
}

// FetchConfig controls how origin pages are downloaded
type FetchConfig struct {
	Timeout        types.Duration `yaml:"timeout"`
	UserAgent      string         `yaml:"user_agent"`
	MaxBodySize    int            `yaml:"max_body_size"` // bytes
	MaxRedirects   int            `yaml:"max_redirects"`
	SSRFProtection *bool          `yaml:"ssrf_protection,omitempty"` // block private addresses (default: true)
}

// IsSSRFProtectionEnabled returns the SSRF setting, defaulting to enabled
func (f *FetchConfig) IsSSRFProtectionEnabled() bool {
	if f.SSRFProtection == nil {
		return true
	}
	return *f.SSRFProtection
}

// CacheConfig controls the Redis preview cache
type CacheConfig struct {
	Enabled     bool           `yaml:"enabled"`
	TTL         types.Duration `yaml:"ttl"`
	Compression string         `yaml:"compression,omitempty"` // none, snappy, lz4
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LogConfig struct {
	Level   string           `yaml:"level"`
	Console ConsoleLogConfig `yaml:"console"`
	File    FileLogConfig    `yaml:"file"`
}

type ConsoleLogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format"`
	Level   string `yaml:"level,omitempty"`
}

type FileLogConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Path     string         `yaml:"path"`
	Format   string         `yaml:"format"`
	Level    string         `yaml:"level,omitempty"`
	Rotation RotationConfig `yaml:"rotation"`
}

type RotationConfig struct {
	MaxSize    int  `yaml:"max_size"`
	MaxAge     int  `yaml:"max_age"`
	MaxBackups int  `yaml:"max_backups"`
	Compress   bool `yaml:"compress"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Listen    string `yaml:"listen"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// EventLoggingConfig configures per-request preview event logging
type EventLoggingConfig struct {
	File EventFileConfig `yaml:"file"`
}

// EventFileConfig configures file-based event logging
type EventFileConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Path     string         `yaml:"path"`
	Template string         `yaml:"template"`
	Rotation RotationConfig `yaml:"rotation"`
}

// BatchConfig configures the batch visual check run by preview-batch
type BatchConfig struct {
	SitesFile   string         `yaml:"sites_file"`
	OutputDir   string         `yaml:"output_dir"`
	Concurrency string         `yaml:"concurrency"` // "auto" or a positive integer
	Screenshots bool           `yaml:"screenshots"`
	PageTimeout types.Duration `yaml:"page_timeout"`
	Viewport    ViewportConfig `yaml:"viewport"`
	ChromePath  string         `yaml:"chrome_path,omitempty"`
}

type ViewportConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}
