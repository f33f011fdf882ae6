package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inTempDir runs the test from an empty directory so no stray .env is read.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	inTempDir(t)
	for _, key := range []string{"SERVER_PORT", "DATASET_SIZE", "DATASET_PAGE_SIZE", "GRAPH_URI", "REDIS_URL", "MAPBOX_ACCESS_TOKEN", "GEOCODE_TIMEOUT", "DETAIL_VIEW_TTL", "DETAIL_MAX_VIEWS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, 100, cfg.Dataset.Size)
	assert.Equal(t, 50, cfg.Dataset.PageSize)
	assert.Zero(t, cfg.Dataset.Seed)
	assert.Equal(t, defaultGeocodeBaseURL, cfg.Geocode.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Geocode.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 30*time.Minute, cfg.Detail.ViewTTL)
	assert.Equal(t, 1000, cfg.Detail.MaxViews)
	assert.False(t, cfg.Graph.Enabled())
	assert.True(t, cfg.HTTP.MetricsEnabled)
}

func TestLoad_FromEnvironment(t *testing.T) {
	inTempDir(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "http://localhost:3000, https://dash.example.com ,")
	t.Setenv("DATASET_SIZE", "250")
	t.Setenv("DATASET_SEED", "42")
	t.Setenv("GEOCODE_TIMEOUT", "750ms")
	t.Setenv("GRAPH_URI", "bolt://localhost:7687")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("DETAIL_VIEW_TTL", "5m")
	t.Setenv("DETAIL_MAX_VIEWS", "20")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, []string{"http://localhost:3000", "https://dash.example.com"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, 250, cfg.Dataset.Size)
	assert.Equal(t, int64(42), cfg.Dataset.Seed)
	assert.Equal(t, 750*time.Millisecond, cfg.Geocode.Timeout)
	assert.True(t, cfg.Graph.Enabled())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 5*time.Minute, cfg.Detail.ViewTTL)
	assert.Equal(t, 20, cfg.Detail.MaxViews)
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("MAPBOX_ACCESS_TOKEN=pk.fromfile\nDATASET_SIZE=12\n"), 0o600))
	t.Setenv("DATASET_SIZE", "30")
	t.Setenv("MAPBOX_ACCESS_TOKEN", "")
	os.Unsetenv("MAPBOX_ACCESS_TOKEN")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "pk.fromfile", cfg.Geocode.AccessToken)
	assert.Equal(t, 30, cfg.Dataset.Size)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"SERVER_PORT", "70000"},
		{"SERVER_PORT", "eighty"},
		{"SERVER_READ_TIMEOUT", "soon"},
		{"DATASET_SEED", "x"},
		{"DATASET_SIZE", "-1"},
		{"DATASET_PAGE_SIZE", "0"},
		{"DETAIL_MAX_VIEWS", "0"},
		{"DETAIL_VIEW_TTL", "forever"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			inTempDir(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
		})
	}
}
