package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the settings for talking to a local Draw Things app and for
// writing generation output. Values come from a .env file and the
// environment; command-line flags override them.
type Config struct {
	Host      string
	Port      int
	OutputDir string
	Bucket    string
	Timeout   time.Duration
}

// Load loads the configuration from a .env file (if present) and environment
// variables, falling back to defaults suited to a stock Draw Things install.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	config := &Config{
		Host:      "localhost",
		Port:      7860,
		OutputDir: ".",
		Timeout:   10 * time.Minute,
	}

	if host := os.Getenv("DRAWTHINGS_HOST"); host != "" {
		config.Host = host
	}

	if port, err := strconv.Atoi(os.Getenv("DRAWTHINGS_PORT")); err == nil {
		config.Port = port
	}

	if dir := os.Getenv("DRAWTHINGS_OUTPUT_DIR"); dir != "" {
		config.OutputDir = dir
	}

	config.Bucket = os.Getenv("DRAWTHINGS_BUCKET")

	if timeout, err := strconv.Atoi(os.Getenv("DRAWTHINGS_TIMEOUT")); err == nil {
		config.Timeout = time.Duration(timeout) * time.Second
	}

	return config, nil
}

// BaseURL returns the root URL of the Draw Things HTTP API.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Host, c.Port)
}
