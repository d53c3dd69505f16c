package channel

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/okian/fielddisplay/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithClock sets the clock that times the reconnect delay.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithReconnectDelay sets the fixed delay between a close and the next dial.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.reconnectDelay = d
		}
	}
}

// WithDialer sets the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithWriteWait sets the deadline for a single frame write.
func WithWriteWait(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.writeWait = d
		}
	}
}

// WithReadLimit caps the size of an inbound frame.
func WithReadLimit(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.readLimit = n
		}
	}
}

// WithLogger sets a custom logger for the client. It is also handed to the
// default handlers.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
