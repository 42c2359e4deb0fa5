package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MINIO_ACCESS_KEY_ID", "minio")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "minio-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, "A4", cfg.Export.DefaultProfile)
	assert.Equal(t, "rod", cfg.Export.PDFEngine)
	assert.Equal(t, 60*time.Second, cfg.Export.Timeout)
	assert.Equal(t, "metrics", cfg.Layout.Surface)
	assert.Equal(t, "http://localhost:9000", cfg.MinIO.PublicEndpoint)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
}

func TestLoadFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("EXPORT_PDF_ENGINE", "ChromeDP")
	t.Setenv("EXPORT_TIMEOUT", "15s")
	t.Setenv("EXPORT_MAX_CONCURRENT", "5")
	t.Setenv("LAYOUT_SURFACE", "browser")
	t.Setenv("API_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.API.AllowedOrigins)

	assert.Equal(t, "chromedp", cfg.Export.PDFEngine)
	assert.Equal(t, 15*time.Second, cfg.Export.Timeout)
	assert.Equal(t, 5, cfg.Export.MaxConcurrent)
	assert.Equal(t, "browser", cfg.Layout.Surface)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"EXPORT_PDF_ENGINE":     "wkhtmltopdf",
		"LAYOUT_SURFACE":        "canvas",
		"EXPORT_MAX_CONCURRENT": "0",
	}
	for env, value := range cases {
		t.Run(env, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(env, value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadRequiresMinIOCredentials(t *testing.T) {
	t.Setenv("MINIO_ACCESS_KEY_ID", "")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "")

	_, err := Load()
	assert.Error(t, err)
}
