package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("DRAWTHINGS_HOST", "")
		t.Setenv("DRAWTHINGS_PORT", "")
		t.Setenv("DRAWTHINGS_OUTPUT_DIR", "")
		t.Setenv("DRAWTHINGS_BUCKET", "")
		t.Setenv("DRAWTHINGS_TIMEOUT", "")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "localhost", cfg.Host)
		assert.Equal(t, 7860, cfg.Port)
		assert.Equal(t, ".", cfg.OutputDir)
		assert.Empty(t, cfg.Bucket)
		assert.Equal(t, 10*time.Minute, cfg.Timeout)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("DRAWTHINGS_HOST", "studio.local")
		t.Setenv("DRAWTHINGS_PORT", "8080")
		t.Setenv("DRAWTHINGS_OUTPUT_DIR", "~/Pictures/drawthings")
		t.Setenv("DRAWTHINGS_BUCKET", "my-bucket")
		t.Setenv("DRAWTHINGS_TIMEOUT", "30")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "studio.local", cfg.Host)
		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "~/Pictures/drawthings", cfg.OutputDir)
		assert.Equal(t, "my-bucket", cfg.Bucket)
		assert.Equal(t, 30*time.Second, cfg.Timeout)
	})
}

func TestBaseURL(t *testing.T) {
	cfg := &Config{Host: "localhost", Port: 7860}
	assert.Equal(t, "http://localhost:7860", cfg.BaseURL())
}
