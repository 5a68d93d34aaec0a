package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable LoadFromEnv reads so host settings cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SDMX_BASE_URL", "SDMX_VERSION", "SDMX_TIMEOUT", "SDMX_RPS", "SDMX_BURST",
		"CATALOG_PATH", "CACHE_DB_PATH", "CACHE_TTL", "LISTEN_ADDR", "LOG_LEVEL", "ENV",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "CORS_ALLOWED_ORIGINS",
		"EXPORT_DIR", "EXPORT_SINK", "EXPORT_PARQUET", "EXPORT_SCHEDULE",
		"S3_KEY_ID", "S3_SECRET", "S3_ENDPOINT", "S3_REGION", "S3_BUCKET",
		"AZURE_STORAGE_ACCOUNT", "AZURE_STORAGE_KEY", "AZURE_CONTAINER",
		"GCS_BUCKET", "GCS_CREDENTIALS_FILE",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.SDMX.BaseURL)
	assert.Equal(t, "1.0", cfg.SDMX.Version)
	assert.Equal(t, 60*time.Second, cfg.SDMX.Timeout)
	assert.InDelta(t, 5.0, cfg.SDMX.RPS, 0.001)
	assert.Equal(t, 5, cfg.SDMX.Burst)
	assert.Equal(t, DefaultCatalogPath, cfg.CatalogPath)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, SinkLocal, cfg.Export.Sink)
	assert.Equal(t, "exports", cfg.Export.Dir)
	assert.False(t, cfg.Export.Parquet)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.False(t, cfg.CacheEnabled())
	assert.Len(t, cfg.Warnings, 1)
}

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("SDMX_BASE_URL", "http://localhost:9999/rest/")
	t.Setenv("SDMX_VERSION", "2.0")
	t.Setenv("SDMX_TIMEOUT", "5s")
	t.Setenv("SDMX_RPS", "2.5")
	t.Setenv("CATALOG_PATH", "/tmp/catalog.csv")
	t.Setenv("CACHE_DB_PATH", "/tmp/cache.sqlite")
	t.Setenv("CACHE_TTL", "10m")
	t.Setenv("EXPORT_PARQUET", "yes")
	t.Setenv("EXPORT_SCHEDULE", "@hourly")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.example, http://b.example")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9999/rest", cfg.SDMX.BaseURL, "trailing slash is trimmed")
	assert.Equal(t, "2.0", cfg.SDMX.Version)
	assert.Equal(t, 5*time.Second, cfg.SDMX.Timeout)
	assert.InDelta(t, 2.5, cfg.SDMX.RPS, 0.001)
	assert.Equal(t, "/tmp/catalog.csv", cfg.CatalogPath)
	assert.True(t, cfg.CacheEnabled())
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.True(t, cfg.Export.Parquet)
	assert.Equal(t, "@hourly", cfg.Export.Schedule)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORSAllowedOrigins)
	assert.Empty(t, cfg.Warnings)
}

func TestLoadFromEnv_MalformedValuesWarn(t *testing.T) {
	clearEnv(t)
	t.Setenv("SDMX_TIMEOUT", "soon")
	t.Setenv("SDMX_BURST", "-1")
	t.Setenv("RATE_LIMIT_RPS", "fast")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, DefaultTimeout, cfg.SDMX.Timeout)
	assert.Equal(t, 5, cfg.SDMX.Burst)
	assert.InDelta(t, 20.0, cfg.RateLimitRPS, 0.001)
	// three malformed values plus the cache warning
	assert.Len(t, cfg.Warnings, 4)
}

func TestLoadFromEnv_SinkValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "unknown sink",
			env:     map[string]string{"EXPORT_SINK": "ftp"},
			wantErr: "unsupported EXPORT_SINK",
		},
		{
			name:    "s3 incomplete",
			env:     map[string]string{"EXPORT_SINK": "s3", "S3_KEY_ID": "k"},
			wantErr: "S3_KEY_ID",
		},
		{
			name: "s3 complete",
			env: map[string]string{
				"EXPORT_SINK": "S3", "S3_KEY_ID": "k", "S3_SECRET": "s",
				"S3_REGION": "eu-central-1", "S3_BUCKET": "exports",
			},
		},
		{
			name:    "azure incomplete",
			env:     map[string]string{"EXPORT_SINK": "azure", "AZURE_STORAGE_ACCOUNT": "acct"},
			wantErr: "AZURE_STORAGE_KEY",
		},
		{
			name:    "gcs without bucket",
			env:     map[string]string{"EXPORT_SINK": "gcs"},
			wantErr: "GCS_BUCKET",
		},
		{
			name: "gcs with bucket",
			env:  map[string]string{"EXPORT_SINK": "gcs", "GCS_BUCKET": "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFromEnv()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.in}
		assert.Equal(t, tt.want, cfg.SlogLevel(), "level %q", tt.in)
	}
}

func TestLoadDotEnv_FileNotFound(t *testing.T) {
	err := LoadDotEnv("/nonexistent/.env")
	assert.NoError(t, err)
}

func TestLoadDotEnv_ParsesKeyValue(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("# comment\nSDMX_TEST_KEY=\"test_value\"\n"), 0o644))

	require.NoError(t, LoadDotEnv(envFile))
	t.Cleanup(func() { _ = os.Unsetenv("SDMX_TEST_KEY") })

	assert.Equal(t, "test_value", os.Getenv("SDMX_TEST_KEY"))
}

func TestLoadDotEnv_EnvVarPrecedence(t *testing.T) {
	t.Setenv("SDMX_PRECEDENCE_KEY", "from_env")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SDMX_PRECEDENCE_KEY=from_file\n"), 0o644))

	require.NoError(t, LoadDotEnv(envFile))
	assert.Equal(t, "from_env", os.Getenv("SDMX_PRECEDENCE_KEY"))
}
