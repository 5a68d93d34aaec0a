// Package config handles application configuration and environment loading.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults applied by LoadFromEnv.
const (
	DefaultBaseURL     = "https://sdmx.data.unicef.org/ws/public/sdmxapi/rest"
	DefaultVersion     = "1.0"
	DefaultCatalogPath = "mapping_sdmx_2025_03_20_country_category_cleaned.csv"
	DefaultTimeout     = 60 * time.Second
	DefaultCacheTTL    = time.Hour
	DefaultExportDir   = "exports"
)

// Export sinks.
const (
	SinkLocal = "local"
	SinkS3    = "s3"
	SinkAzure = "azure"
	SinkGCS   = "gcs"
)

// SDMXConfig configures the remote statistical data service client.
type SDMXConfig struct {
	BaseURL string        // REST root, without trailing slash
	Version string        // dataflow version segment (default "1.0")
	Timeout time.Duration // per-request timeout (default 60s)
	RPS     float64       // outbound requests per second (default 5)
	Burst   int           // outbound burst (default 5)
}

// ExportConfig configures where per-dataflow exports are written.
type ExportConfig struct {
	Dir      string // local directory, also the key prefix for remote sinks
	Sink     string // local (default), s3, azure, gcs
	Parquet  bool   // also write {dataflow}_data.parquet
	Schedule string // cron expression for scheduled re-export (optional)

	// S3 fields are optional; nil when not configured.
	S3KeyID    *string
	S3Secret   *string
	S3Endpoint *string
	S3Region   *string
	S3Bucket   *string

	AzureAccount   string
	AzureKey       string
	AzureContainer string

	GCSBucket          string
	GCSCredentialsFile string
}

// HasS3Config returns true if all required S3 fields are set.
func (e *ExportConfig) HasS3Config() bool {
	return e.S3KeyID != nil && e.S3Secret != nil && e.S3Region != nil && e.S3Bucket != nil
}

// Config holds the configuration for the explorer CLI and HTTP UI.
type Config struct {
	SDMX        SDMXConfig
	Export      ExportConfig
	CatalogPath string        // reference catalog CSV
	CacheDBPath string        // SQLite response cache; empty disables caching
	CacheTTL    time.Duration // maximum age of a cached response (default 1h)
	ListenAddr  string        // HTTP listen address (default ":8080")
	LogLevel    string        // log level: debug, info, warn, error (default "info")
	Env         string        // environment: "development" (default) or "production"

	// Rate limiting for the HTTP UI
	RateLimitRPS   float64 // sustained requests per second (default 20)
	RateLimitBurst int     // burst capacity (default 40)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// CacheEnabled reports whether the SQLite response cache is configured.
func (c *Config) CacheEnabled() bool { return c.CacheDBPath != "" }

// Validate checks that the export sink configuration is internally consistent.
func (c *Config) Validate() error {
	switch c.Export.Sink {
	case SinkLocal:
	case SinkS3:
		if !c.Export.HasS3Config() {
			return fmt.Errorf("EXPORT_SINK=s3 requires S3_KEY_ID, S3_SECRET, S3_REGION and S3_BUCKET")
		}
	case SinkAzure:
		if c.Export.AzureAccount == "" || c.Export.AzureKey == "" || c.Export.AzureContainer == "" {
			return fmt.Errorf("EXPORT_SINK=azure requires AZURE_STORAGE_ACCOUNT, AZURE_STORAGE_KEY and AZURE_CONTAINER")
		}
	case SinkGCS:
		if c.Export.GCSBucket == "" {
			return fmt.Errorf("EXPORT_SINK=gcs requires GCS_BUCKET")
		}
	default:
		return fmt.Errorf("unsupported EXPORT_SINK %q: use local, s3, azure or gcs", c.Export.Sink)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Malformed numbers and durations fall back to their defaults with a warning.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		SDMX: SDMXConfig{
			BaseURL: strings.TrimRight(os.Getenv("SDMX_BASE_URL"), "/"),
			Version: os.Getenv("SDMX_VERSION"),
		},
		Export: ExportConfig{
			Dir:                os.Getenv("EXPORT_DIR"),
			Sink:               strings.ToLower(strings.TrimSpace(os.Getenv("EXPORT_SINK"))),
			Parquet:            parseBoolEnvDefault("EXPORT_PARQUET", false),
			Schedule:           strings.TrimSpace(os.Getenv("EXPORT_SCHEDULE")),
			AzureAccount:       os.Getenv("AZURE_STORAGE_ACCOUNT"),
			AzureKey:           os.Getenv("AZURE_STORAGE_KEY"),
			AzureContainer:     os.Getenv("AZURE_CONTAINER"),
			GCSBucket:          os.Getenv("GCS_BUCKET"),
			GCSCredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),
		},
		CatalogPath: os.Getenv("CATALOG_PATH"),
		CacheDBPath: os.Getenv("CACHE_DB_PATH"),
		ListenAddr:  os.Getenv("LISTEN_ADDR"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		Env:         os.Getenv("ENV"),
	}

	cfg.SDMX.Timeout = cfg.durationEnv("SDMX_TIMEOUT", DefaultTimeout)
	cfg.SDMX.RPS = cfg.floatEnv("SDMX_RPS", 5)
	cfg.SDMX.Burst = cfg.intEnv("SDMX_BURST", 5)
	cfg.CacheTTL = cfg.durationEnv("CACHE_TTL", DefaultCacheTTL)
	cfg.RateLimitRPS = cfg.floatEnv("RATE_LIMIT_RPS", 20)
	cfg.RateLimitBurst = cfg.intEnv("RATE_LIMIT_BURST", 40)

	// S3 fields are optional, only set if present
	if v := os.Getenv("S3_KEY_ID"); v != "" {
		cfg.Export.S3KeyID = &v
	}
	if v := os.Getenv("S3_SECRET"); v != "" {
		cfg.Export.S3Secret = &v
	}
	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		cfg.Export.S3Endpoint = &v
	}
	if v := os.Getenv("S3_REGION"); v != "" {
		cfg.Export.S3Region = &v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		cfg.Export.S3Bucket = &v
	}

	// CORS
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = compactNonEmpty(origins)
	}

	// Defaults
	if cfg.SDMX.BaseURL == "" {
		cfg.SDMX.BaseURL = DefaultBaseURL
	}
	if cfg.SDMX.Version == "" {
		cfg.SDMX.Version = DefaultVersion
	}
	if cfg.CatalogPath == "" {
		cfg.CatalogPath = DefaultCatalogPath
	}
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = DefaultExportDir
	}
	if cfg.Export.Sink == "" {
		cfg.Export.Sink = SinkLocal
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if !cfg.CacheEnabled() {
		cfg.Warnings = append(cfg.Warnings, "CACHE_DB_PATH not set: SDMX responses will not be cached")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) durationEnv(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		c.Warnings = append(c.Warnings, fmt.Sprintf("invalid %s=%q, using default %s", key, v, def))
		return def
	}
	return d
}

func (c *Config) floatEnv(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		c.Warnings = append(c.Warnings, fmt.Sprintf("invalid %s=%q, using default %g", key, v, def))
		return def
	}
	return f
}

func (c *Config) intEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		c.Warnings = append(c.Warnings, fmt.Sprintf("invalid %s=%q, using default %d", key, v, def))
		return def
	}
	return n
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

func compactNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
