package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. MARKETLENS_SERVER_PORT.
const EnvPrefix = "MARKETLENS"

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Upload   UploadConfig   `yaml:"upload" envconfig:"UPLOAD"`
	Analysis AnalysisConfig `yaml:"analysis" envconfig:"ANALYSIS"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	AnalysisTimeout time.Duration `yaml:"analysis_timeout" envconfig:"ANALYSIS_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// UploadConfig bounds what the session accepts.
type UploadConfig struct {
	MaxBytes          int64    `yaml:"max_bytes" envconfig:"MAX_BYTES"`
	AllowedExtensions []string `yaml:"allowed_extensions" envconfig:"ALLOWED_EXTENSIONS"`
}

// AnalysisConfig holds the knobs of the analytics engine.
type AnalysisConfig struct {
	DefaultTopN        int      `yaml:"default_top_n" envconfig:"DEFAULT_TOP_N"`
	MaxTopN            int      `yaml:"max_top_n" envconfig:"MAX_TOP_N"`
	CompareTopN        int      `yaml:"compare_top_n" envconfig:"COMPARE_TOP_N"`
	InstallmentMarkers []string `yaml:"installment_markers" envconfig:"INSTALLMENT_MARKERS"`
	CatalogMarkers     []string `yaml:"catalog_markers" envconfig:"CATALOG_MARKERS"`
	NoneLabel          string   `yaml:"none_label" envconfig:"NONE_LABEL"`
	CurrencySymbol     string   `yaml:"currency_symbol" envconfig:"CURRENCY_SYMBOL"`
}

// PathsConfig contains file system paths configuration. Relative paths
// resolve against the executable directory.
type PathsConfig struct {
	ExecutableDir string `yaml:"executable_dir" envconfig:"EXECUTABLE_DIR"`
	ExportDir     string `yaml:"export_dir" envconfig:"EXPORT_DIR"`
	LogsDir       string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// Load builds the configuration from defaults, the first config file found
// and finally MARKETLENS_* environment variables.
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom is Load with an explicit config file. An empty path skips the file.
func LoadFrom(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Environment variables take precedence over the file
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays a YAML file onto cfg; keys absent from the file
// keep their current value.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// resolvePaths fills the executable directory when the config leaves it empty
func (c *Config) resolvePaths() error {
	if c.Paths.ExecutableDir != "" {
		return nil
	}
	dir, err := executableDir()
	if err != nil {
		return err
	}
	c.Paths.ExecutableDir = dir
	return nil
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload max bytes must be positive")
	}

	if c.Analysis.MaxTopN < 1 || c.Analysis.MaxTopN > HardMaxTopN {
		return fmt.Errorf("max top N must be between 1 and %d, got %d", HardMaxTopN, c.Analysis.MaxTopN)
	}

	if c.Analysis.DefaultTopN < 1 || c.Analysis.DefaultTopN > c.Analysis.MaxTopN {
		return fmt.Errorf("default top N must be between 1 and %d, got %d", c.Analysis.MaxTopN, c.Analysis.DefaultTopN)
	}

	if c.Analysis.CompareTopN < 1 {
		return fmt.Errorf("compare top N must be at least 1, got %d", c.Analysis.CompareTopN)
	}

	// JSON is the only supported log format
	c.Logging.Format = "json"

	switch strings.ToLower(c.Logging.Output) {
	case "console", "stderr", "file", "both":
	default:
		c.Logging.Output = "both"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = DefaultLogFile
	}

	return nil
}

// getConfigFilePath returns MARKETLENS_CONFIG or the first config file found
func getConfigFilePath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		return path
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			AnalysisTimeout: DefaultAnalysisTimeout,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     DefaultRateLimit,
				Burst:   DefaultBurstSize,
			},
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   "json",
			Output:   "both",
			FilePath: DefaultLogFile,
		},
		Upload: UploadConfig{
			MaxBytes:          DefaultMaxUploadBytes,
			AllowedExtensions: []string{".xlsx", ".xlsm", ".csv"},
		},
		Analysis: AnalysisConfig{
			DefaultTopN:        DefaultTopN,
			MaxTopN:            HardMaxTopN,
			CompareTopN:        DefaultCompareTopN,
			InstallmentMarkers: []string{"cuota-simple-3", "cuota-simple-6", "cuota-simple-9", "cuota-simple-12"},
			CatalogMarkers:     []string{"catalog_listing_eligible", "catalog_product_candidate"},
			NoneLabel:          DefaultNoneLabel,
			CurrencySymbol:     DefaultCurrencySymbol,
		},
		Paths: PathsConfig{
			ExportDir: DefaultExportDir,
			LogsDir:   DefaultLogsDir,
		},
	}
}
