// Package config holds viewer configuration with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the top-level configuration struct.  All fields have safe defaults
// so callers can start with Config{} and override only what they need.
type Config struct {
	// Render coalescing.  Zero means merge-pending: a recompute requested
	// while one is running collapses into a single follow-up pass.  A
	// positive Debounce instead waits out bursts and renders the last value.
	Debounce time.Duration

	// Loader limits.
	MaxImageBytes int64 // 0 = no limit
	ChunkSize     int   // streaming chunk size in bytes; default 32 KiB

	// URL fetching.
	FetchTimeout time.Duration
	MaxRetries   int // retries for transient fetch failures
	RetryDelay   time.Duration

	// Export.
	DefaultQuality int // JPEG quality 1-100; default 90

	// Thumbnail scanning.
	ThumbnailSize int // square edge in pixels; default 160
	ScanWorkers   int // concurrent decodes while scanning; 0 = NumCPU

	// Histogram/curve panel.
	PanelWidth  int
	PanelHeight int

	// Logging.
	LogLevel string // "debug", "info", "warn", "error"
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		Debounce:       0,
		ChunkSize:      32 * 1024,
		FetchTimeout:   15 * time.Second,
		MaxRetries:     3,
		RetryDelay:     200 * time.Millisecond,
		DefaultQuality: 90,
		ThumbnailSize:  160,
		PanelWidth:     256,
		PanelHeight:    128,
		LogLevel:       "info",
	}
}

// FromEnv returns Default overlaid with TNZ_* environment variables.  Any
// .env files given (or ./.env when none are) are loaded first via godotenv;
// a missing file is not an error.
func FromEnv(files ...string) (Config, error) {
	_ = godotenv.Load(files...)

	c := Default()
	var err error
	if c.Debounce, err = envDurationMs("TNZ_DEBOUNCE_MS", c.Debounce); err != nil {
		return c, err
	}
	if c.MaxImageBytes, err = envInt64("TNZ_MAX_IMAGE_BYTES", c.MaxImageBytes); err != nil {
		return c, err
	}
	if c.FetchTimeout, err = envDurationMs("TNZ_FETCH_TIMEOUT_MS", c.FetchTimeout); err != nil {
		return c, err
	}
	if c.MaxRetries, err = envInt("TNZ_MAX_RETRIES", c.MaxRetries); err != nil {
		return c, err
	}
	if c.DefaultQuality, err = envInt("TNZ_QUALITY", c.DefaultQuality); err != nil {
		return c, err
	}
	if c.ThumbnailSize, err = envInt("TNZ_THUMB_SIZE", c.ThumbnailSize); err != nil {
		return c, err
	}
	if c.ScanWorkers, err = envInt("TNZ_SCAN_WORKERS", c.ScanWorkers); err != nil {
		return c, err
	}
	if v := os.Getenv("TNZ_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return c, nil
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	if c.Debounce < 0 {
		return errors.New("config: Debounce must not be negative")
	}
	if c.ChunkSize <= 0 {
		return errors.New("config: ChunkSize must be positive")
	}
	if c.DefaultQuality < 1 || c.DefaultQuality > 100 {
		return errors.New("config: DefaultQuality must be between 1 and 100")
	}
	if c.MaxRetries < 0 {
		return errors.New("config: MaxRetries must not be negative")
	}
	if c.ThumbnailSize <= 0 {
		return errors.New("config: ThumbnailSize must be positive")
	}
	if c.ScanWorkers < 0 {
		return errors.New("config: ScanWorkers must not be negative")
	}
	if c.PanelWidth <= 0 || c.PanelHeight <= 0 {
		return errors.New("config: panel dimensions must be positive")
	}
	return nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func envInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func envDurationMs(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback, fmt.Errorf("config: %s: %w", key, err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}
