package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edgecomet/preview/internal/common/configtypes"
	"github.com/edgecomet/preview/internal/common/yamlutil"
	"github.com/edgecomet/preview/pkg/types"
)

const (
	DefaultListen        = ":10080"
	DefaultServerTimeout = 60 * time.Second
	DefaultMaxConcurrent = 16

	DefaultFetchTimeout = 15 * time.Second
	DefaultUserAgent    = "Mozilla/5.0 (compatible; EdgeCometPreview/1.0; +https://edgecomet.com)"
	DefaultMaxBodySize  = 10 * 1024 * 1024
	DefaultMaxRedirects = 5

	DefaultCacheTTL = time.Hour

	DefaultMetricsPath = "/metrics"

	DefaultBatchOutputDir   = "batch-results"
	DefaultBatchPageTimeout = 30 * time.Second
	DefaultViewportWidth    = 1280
	DefaultViewportHeight   = 720
)

var namespacePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ConfigManager loads and holds the preview configuration
type ConfigManager struct {
	config     *configtypes.PreviewConfig
	configPath string
	logger     *zap.Logger
}

// NewConfigManager loads configPath and returns a manager holding the validated result
func NewConfigManager(configPath string, logger *zap.Logger) (*ConfigManager, error) {
	cm := &ConfigManager{
		configPath: configPath,
		logger:     logger,
	}

	if err := cm.LoadConfig(); err != nil {
		return nil, err
	}

	return cm, nil
}

// LoadConfig reads the file again and replaces the held configuration on success
func (cm *ConfigManager) LoadConfig() error {
	cfg, err := LoadPreviewConfig(cm.configPath)
	if err != nil {
		return err
	}

	cm.config = cfg

	cm.logger.Debug("Configuration loaded",
		zap.String("path", cm.configPath),
		zap.String("listen", cfg.Server.Listen),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.Bool("ssrf_protection", cfg.Fetch.IsSSRFProtectionEnabled()))

	return nil
}

// GetConfig returns the current configuration (read-only)
func (cm *ConfigManager) GetConfig() *configtypes.PreviewConfig {
	return cm.config
}

// LoadPreviewConfig reads, defaults and validates a preview configuration file
func LoadPreviewConfig(configPath string) (*configtypes.PreviewConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return ParsePreviewConfig(data)
}

// ParsePreviewConfig decodes YAML strictly, then applies defaults and validates
func ParsePreviewConfig(data []byte) (*configtypes.PreviewConfig, error) {
	var cfg configtypes.PreviewConfig
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// ApplyDefaults fills every unset field with its default
func ApplyDefaults(cfg *configtypes.PreviewConfig) {
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = DefaultListen
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = types.Duration(DefaultServerTimeout)
	}
	if cfg.Server.MaxConcurrent == 0 {
		cfg.Server.MaxConcurrent = DefaultMaxConcurrent
	}

	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = types.Duration(DefaultFetchTimeout)
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = DefaultUserAgent
	}
	if cfg.Fetch.MaxBodySize == 0 {
		cfg.Fetch.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.Fetch.MaxRedirects == 0 {
		cfg.Fetch.MaxRedirects = DefaultMaxRedirects
	}

	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = types.Duration(DefaultCacheTTL)
	}
	if cfg.Cache.Compression == "" {
		cfg.Cache.Compression = types.CompressionSnappy
	}

	// If both outputs are disabled (zero values), enable console by default
	if !cfg.Log.Console.Enabled && !cfg.Log.File.Enabled {
		cfg.Log.Console.Enabled = true
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = configtypes.LogLevelInfo
	}
	if cfg.Log.Console.Format == "" {
		cfg.Log.Console.Format = configtypes.LogFormatConsole
	}
	if cfg.Log.File.Format == "" {
		cfg.Log.File.Format = configtypes.LogFormatText
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	if cfg.Batch.OutputDir == "" {
		cfg.Batch.OutputDir = DefaultBatchOutputDir
	}
	if cfg.Batch.Concurrency == "" {
		cfg.Batch.Concurrency = configtypes.ConcurrencyAuto
	}
	if cfg.Batch.PageTimeout == 0 {
		cfg.Batch.PageTimeout = types.Duration(DefaultBatchPageTimeout)
	}
	if cfg.Batch.Viewport.Width == 0 {
		cfg.Batch.Viewport.Width = DefaultViewportWidth
	}
	if cfg.Batch.Viewport.Height == 0 {
		cfg.Batch.Viewport.Height = DefaultViewportHeight
	}
}

// Validate checks configuration validity
func Validate(cfg *configtypes.PreviewConfig) error {
	if err := configtypes.ValidateListenAddress(cfg.Server.Listen); err != nil {
		return fmt.Errorf("invalid server.listen: %w", err)
	}
	if cfg.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive")
	}
	if cfg.Server.MaxConcurrent < 1 {
		return fmt.Errorf("server.max_concurrent must be >= 1, got %d", cfg.Server.MaxConcurrent)
	}

	if cfg.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive")
	}
	if cfg.Fetch.MaxBodySize < 0 {
		return fmt.Errorf("fetch.max_body_size must be >= 0, got %d", cfg.Fetch.MaxBodySize)
	}
	if cfg.Fetch.MaxRedirects < 0 {
		return fmt.Errorf("fetch.max_redirects must be >= 0, got %d", cfg.Fetch.MaxRedirects)
	}
	if time.Duration(cfg.Fetch.Timeout) > time.Duration(cfg.Server.Timeout) {
		return fmt.Errorf("fetch.timeout (%s) must not exceed server.timeout (%s)", cfg.Fetch.Timeout, cfg.Server.Timeout)
	}

	if cfg.Cache.Enabled {
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required when cache is enabled")
		}
		if cfg.Cache.TTL <= 0 {
			return fmt.Errorf("cache.ttl must be positive")
		}
	}
	switch cfg.Cache.Compression {
	case types.CompressionNone, types.CompressionSnappy, types.CompressionLZ4:
	default:
		return fmt.Errorf("invalid cache.compression: %s (must be none, snappy or lz4)", cfg.Cache.Compression)
	}
	if cfg.Redis.DB < 0 {
		return fmt.Errorf("redis.db must be >= 0, got %d", cfg.Redis.DB)
	}

	if err := validateLog(&cfg.Log); err != nil {
		return err
	}

	if err := validateMetrics(cfg); err != nil {
		return err
	}

	if cfg.Events != nil && cfg.Events.File.Enabled {
		if cfg.Events.File.Path == "" {
			return fmt.Errorf("event_logging.file.path is required when event logging is enabled")
		}
		if strings.TrimSpace(cfg.Events.File.Template) == "" {
			return fmt.Errorf("event_logging.file.template is required when event logging is enabled")
		}
	}

	if cfg.Batch.Concurrency != configtypes.ConcurrencyAuto {
		n, err := strconv.Atoi(cfg.Batch.Concurrency)
		if err != nil || n <= 0 {
			return fmt.Errorf("batch.concurrency must be 'auto' or positive integer")
		}
	}
	if cfg.Batch.PageTimeout <= 0 {
		return fmt.Errorf("batch.page_timeout must be positive")
	}
	if cfg.Batch.Viewport.Width <= 0 || cfg.Batch.Viewport.Height <= 0 {
		return fmt.Errorf("batch.viewport width and height must be positive")
	}

	return nil
}

func validateLog(log *configtypes.LogConfig) error {
	validLogLevels := map[string]bool{
		configtypes.LogLevelDebug:  true,
		configtypes.LogLevelInfo:   true,
		configtypes.LogLevelWarn:   true,
		configtypes.LogLevelError:  true,
		configtypes.LogLevelDPanic: true,
		configtypes.LogLevelPanic:  true,
		configtypes.LogLevelFatal:  true,
	}
	if !validLogLevels[log.Level] {
		return fmt.Errorf("invalid log.level: %s (must be debug, info, warn, error, dpanic, panic, or fatal)", log.Level)
	}

	if log.Console.Enabled && log.Console.Format != configtypes.LogFormatJSON && log.Console.Format != configtypes.LogFormatConsole {
		return fmt.Errorf("invalid log.console.format: %s (must be json or console)", log.Console.Format)
	}

	if log.File.Enabled {
		if log.File.Path == "" {
			return fmt.Errorf("log.file.path must be specified when file logging is enabled")
		}
		if log.File.Format != configtypes.LogFormatJSON && log.File.Format != configtypes.LogFormatText {
			return fmt.Errorf("invalid log.file.format: %s (must be json or text)", log.File.Format)
		}
		if log.File.Rotation.MaxSize < 0 || log.File.Rotation.MaxAge < 0 || log.File.Rotation.MaxBackups < 0 {
			return fmt.Errorf("log.file.rotation values must be >= 0")
		}
	}

	return nil
}

func validateMetrics(cfg *configtypes.PreviewConfig) error {
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Listen == "" {
			return fmt.Errorf("metrics.listen is required when metrics enabled")
		}
		if err := configtypes.ValidateListenAddress(cfg.Metrics.Listen); err != nil {
			return fmt.Errorf("invalid metrics.listen: %w", err)
		}
		if configtypes.SamePort(cfg.Metrics.Listen, cfg.Server.Listen) {
			return fmt.Errorf("metrics.listen port must differ from server.listen port when metrics enabled")
		}
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("invalid metrics.path: %s (must start with /)", cfg.Metrics.Path)
	}

	// Prometheus namespace must match: [a-zA-Z_][a-zA-Z0-9_]*
	if cfg.Metrics.Namespace != "" && !namespacePattern.MatchString(cfg.Metrics.Namespace) {
		return fmt.Errorf("invalid metrics.namespace: %s (must match [a-zA-Z_][a-zA-Z0-9_]*)", cfg.Metrics.Namespace)
	}

	return nil
}

// GetConfigPath resolves the config file path
func GetConfigPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("config path cannot be empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve config path: %w", err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", fmt.Errorf("config file does not exist: %s", absPath)
	}

	return absPath, nil
}
