// Package config defines the display agent configuration and its loader.
//
// Conventions:
// - Defaults live in New; Load layers a YAML file and env vars on top.
// - Durations are configured in milliseconds and exposed as time.Duration.
// - Validation errors wrap ErrInvalidConfig, loading errors wrap ErrLoadConfig.
package config

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the status API listen address, e.g. ":9090".
	Addr string `koanf:"addr"`

	// PageURL is the location the kiosk starts on. Its scheme and host
	// select the field server; its query (display_id) is forwarded on the
	// channel URL.
	PageURL string `koanf:"page_url"`

	// ChannelPath is the websocket path on the field server.
	ChannelPath string `koanf:"channel_path"`

	// ReconnectDelayMS is the fixed delay before redialing a closed channel.
	ReconnectDelayMS int `koanf:"reconnect_delay_ms"`

	// SettleDelayMS is the pause between one transition finishing and the
	// next queued request starting.
	SettleDelayMS int `koanf:"settle_delay_ms"`

	// QueueSize bounds pending screen requests.
	QueueSize int `koanf:"queue_size"`

	// TransitionTimeoutMS abandons a stuck transition. 0 disables it.
	TransitionTimeoutMS int `koanf:"transition_timeout_ms"`

	// ContentTimeoutMS bounds a side-loaded content fetch.
	ContentTimeoutMS int `koanf:"content_timeout_ms"`
}

// New creates a Config populated with defaults. Context is accepted first to
// follow the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":9090",
		PageURL:             "http://localhost:8080/displays/audience?display_id=100",
		ChannelPath:         "/api/displays/audience/websocket",
		ReconnectDelayMS:    3000,
		SettleDelayMS:       100,
		QueueSize:           1024,
		TransitionTimeoutMS: 0,
		ContentTimeoutMS:    5000,
	}
}

// Validate checks every field and returns the first problem found.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	u, err := url.Parse(c.PageURL)
	if err != nil {
		return fmt.Errorf("%w: page_url: %v", ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: page_url scheme must be http or https, got %q", ErrInvalidConfig, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: page_url must have a host", ErrInvalidConfig)
	}
	if !strings.HasPrefix(c.ChannelPath, "/") {
		return fmt.Errorf("%w: channel_path must start with /", ErrInvalidConfig)
	}
	if c.ReconnectDelayMS <= 0 {
		return fmt.Errorf("%w: reconnect_delay_ms must be positive", ErrInvalidConfig)
	}
	if c.SettleDelayMS < 0 {
		return fmt.Errorf("%w: settle_delay_ms must not be negative", ErrInvalidConfig)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	}
	if c.TransitionTimeoutMS < 0 || c.ContentTimeoutMS < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ReconnectDelay returns ReconnectDelayMS as a duration.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelayMS) * time.Millisecond
}

// SettleDelay returns SettleDelayMS as a duration.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelayMS) * time.Millisecond
}

// TransitionTimeout returns TransitionTimeoutMS as a duration.
func (c *Config) TransitionTimeout() time.Duration {
	return time.Duration(c.TransitionTimeoutMS) * time.Millisecond
}

// ContentTimeout returns ContentTimeoutMS as a duration.
func (c *Config) ContentTimeout() time.Duration {
	return time.Duration(c.ContentTimeoutMS) * time.Millisecond
}
