package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeoutDuration())
	assert.Equal(t, int64(10*1024*1024), cfg.Image.MaxUploadBytes())
	assert.Equal(t, 300, cfg.Image.MaxDimension)
	assert.InDelta(t, 0.95, cfg.Image.JPEGQuality, 1e-9)
	assert.False(t, cfg.Image.FlattenTransparency)
	assert.Equal(t, "http://127.0.0.1:3000", cfg.Backend.URL)
	assert.Equal(t, 24*time.Hour, cfg.Redis.SessionTTLDuration())
	assert.Equal(t, "ARS", cfg.Payment.Currency)
	assert.InDelta(t, 2000, cfg.Payment.UnitPrice, 1e-9)
	assert.False(t, cfg.Payment.Enabled())
	assert.Equal(t, AIProviderNone, cfg.AI.Provider)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FileAndOverlay(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, BaseConfigFile, `
[server]
addr = ":8080"
public_url = "https://cv.example.com/"

[image]
max_upload_size = "2MB"
jpeg_quality = 0.8

[logging]
level = "debug"
`)
	writeFile(t, dir, "config.prod.toml", `
[image]
max_dimension = 400
flatten_transparency = true

[logging]
format = "console"
`)
	t.Setenv(EnvServiceEnv, "prod")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "https://cv.example.com", cfg.Server.PublicURL)
	assert.Equal(t, "http://127.0.0.1:8080", cfg.Backend.URL)
	assert.Equal(t, int64(2*1024*1024), cfg.Image.MaxUploadBytes())
	assert.Equal(t, 400, cfg.Image.MaxDimension)
	assert.InDelta(t, 0.8, cfg.Image.JPEGQuality, 1e-9)
	assert.True(t, cfg.Image.FlattenTransparency)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvServerPort, "9090")
	t.Setenv(EnvImageMaxUploadSize, "5MB")
	t.Setenv(EnvPaymentAccessToken, "APP_USR-token")
	t.Setenv(EnvPaymentPublicKey, "APP_USR-public")
	t.Setenv(EnvPaymentUnitPrice, "3500.50")
	t.Setenv(EnvAIGeminiAPIKey, "gemini-key")
	t.Setenv(EnvRedisURL, "redis://localhost:6379/0")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, int64(5*1024*1024), cfg.Image.MaxUploadBytes())
	assert.True(t, cfg.Payment.Enabled())
	assert.InDelta(t, 3500.5, cfg.Payment.UnitPrice, 1e-9)
	assert.Equal(t, AIProviderGemini, cfg.AI.Provider)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
}

func TestLoad_Dotenv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "AI_SERVICE_URL=http://ai-service:8000\n")
	// godotenv never overrides a variable that is already set, even to "".
	t.Setenv(EnvAIServiceURL, "")
	require.NoError(t, os.Unsetenv(EnvAIServiceURL))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, AIProviderService, cfg.AI.Provider)
	assert.Equal(t, "http://ai-service:8000", cfg.AI.ServiceURL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad size", "[image]\nmax_upload_size = \"lots\"", "max_upload_size"},
		{"quality above one", "[image]\njpeg_quality = 1.5", "JPEGQuality"},
		{"bad duration", "[server]\nshutdown_timeout = \"soon\"", "shutdown_timeout"},
		{"bad log level", "[logging]\nlevel = \"loud\"", "Level"},
		{"gemini without key", "[ai]\nprovider = \"gemini\"", "GeminiAPIKey"},
		{"bad currency", "[payment]\ncurrency = \"PESOS\"", "Currency"},
		{"bad toml", "[server\naddr = 1", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, BaseConfigFile, tt.content)
			_, err := Load(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestServerLocalURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":3000", "http://127.0.0.1:3000"},
		{"0.0.0.0:8080", "http://127.0.0.1:8080"},
		{"10.0.0.5:9000", "http://10.0.0.5:9000"},
		{"[::]:3000", "http://127.0.0.1:3000"},
		{"not-an-addr", "https://cv.example.com"},
	}
	for _, tt := range tests {
		c := ServerConfig{Addr: tt.addr, PublicURL: "https://cv.example.com"}
		assert.Equal(t, tt.want, c.LocalURL(), tt.addr)
	}
}

func TestLoad_BackendURLFromEnv(t *testing.T) {
	t.Setenv(EnvBackendURL, "http://backend.internal:9000")
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "http://backend.internal:9000", cfg.Backend.URL)
}
