package config

import (
	"fmt"
	"time"

	"github.com/veranemoloko/video-downloader/internal/domain"
)

// Config holds all application configuration settings.
type Config struct {
	Environment string `envconfig:"ENV" default:"development"`

	HTTPPort    int           `envconfig:"HTTP_PORT" default:"8888"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"60s"`

	WorkerPoolSize  int           `envconfig:"WORKER_POOL_SIZE" default:"4"`
	QueueSize       int           `envconfig:"QUEUE_SIZE" default:"100"`
	DownloadTimeout time.Duration `envconfig:"DOWNLOAD_TIMEOUT" default:"30m"`

	RetentionWindow time.Duration       `envconfig:"RETENTION_WINDOW" default:"5h"`
	CleanupPeriod   time.Duration       `envconfig:"CLEANUP_PERIOD" default:"30m"`
	ExpiryPolicy    domain.ExpiryPolicy `envconfig:"EXPIRY_POLICY" default:"submission"`

	DownloadDir     string `envconfig:"DOWNLOAD_DIR" default:"./downloads"`
	CookieDir       string `envconfig:"COOKIE_DIR" default:"./cookies"`
	YTDLPPath       string `envconfig:"YTDLP_PATH" default:"yt-dlp"`
	SocketTimeout   int    `envconfig:"SOCKET_TIMEOUT" default:"60"`
	MaxRetries      int    `envconfig:"MAX_RETRIES" default:"10"`
	StrictPlatforms bool   `envconfig:"STRICT_PLATFORMS" default:"false"`

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// Validate checks the configuration for invalid or missing values.
// Returns an error describing the first invalid setting found.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	if c.WorkerPoolSize <= 0 {
		return fmt.Errorf("worker pool size must be positive: %d", c.WorkerPoolSize)
	}

	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive: %d", c.QueueSize)
	}

	if c.RetentionWindow <= 0 {
		return fmt.Errorf("retention window must be positive: %s", c.RetentionWindow)
	}

	if c.CleanupPeriod <= 0 {
		return fmt.Errorf("cleanup period must be positive: %s", c.CleanupPeriod)
	}

	// A job still running when its record expires would be reaped mid-flight.
	if c.DownloadTimeout <= 0 || c.DownloadTimeout >= c.RetentionWindow {
		return fmt.Errorf("download timeout must be positive and shorter than retention window: %s", c.DownloadTimeout)
	}

	switch c.ExpiryPolicy {
	case domain.ExpiryFromSubmission, domain.ExpiryFromCompletion:
	default:
		return fmt.Errorf("unknown expiry policy: %q", c.ExpiryPolicy)
	}

	if c.DownloadDir == "" {
		return fmt.Errorf("download directory cannot be empty")
	}

	return nil
}
