package service

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/okian/fielddisplay/internal/sequencer"
	"github.com/okian/fielddisplay/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithPageURL sets the URL the kiosk page starts on.
func WithPageURL(raw string) Option {
	return func(s *Service) {
		if raw != "" {
			s.pageURL = raw
		}
	}
}

// WithChannelPath sets the websocket path on the page's host.
func WithChannelPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.channelPath = path
		}
	}
}

// WithReconnectDelay sets the fixed delay between channel reconnects.
func WithReconnectDelay(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.reconnectDelay = d
		}
	}
}

// WithSettleDelay sets the pause between transitions.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.settleDelay = d
		}
	}
}

// WithQueueSize sets the capacity of the screen request queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithTransitionTimeout bounds a single transition hop. Zero disables it.
func WithTransitionTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.transitionTimeout = d
		}
	}
}

// WithContentTimeout bounds a sponsor slide fetch.
func WithContentTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.contentTimeout = d
		}
	}
}

// WithClock sets the clock shared by the channel and the sequencer.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithDialer sets the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(s *Service) {
		if d != nil {
			s.dialer = d
		}
	}
}

// WithHTTPClient sets the client used for content fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithStage sets where transition steps are played. The default logs them.
func WithStage(stage sequencer.Stage) Option {
	return func(s *Service) {
		if stage != nil {
			s.stage = stage
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
