// Package channel keeps one websocket open to the field server and
// dispatches its typed events.
//
// The channel redials forever on a fixed delay after any close. Inbound
// envelopes go to the handler registered for their type, one at a time in
// receipt order. Outbound sends are best-effort: a send while the channel is
// down is dropped.
package channel

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/okian/fielddisplay/internal/domain/model"
	"github.com/okian/fielddisplay/pkg/logger"
	"github.com/okian/fielddisplay/pkg/metrics"
)

// Default channel configuration constants.
const (
	defaultReconnectDelay = 3 * time.Second
	defaultWriteWait      = 10 * time.Second
	defaultReadLimit      = 1 << 20
)

// Stats is a point-in-time view of the channel.
type Stats struct {
	Connected bool   `json:"connected"`
	Session   string `json:"session,omitempty"`
	URL       string `json:"url"`
	Dials     uint64 `json:"dials"`
	Connects  uint64 `json:"connects"`
	Received  uint64 `json:"received"`
	Unhandled uint64 `json:"unhandled"`
	Malformed uint64 `json:"malformed"`
	Sent      uint64 `json:"sent"`
	Dropped   uint64 `json:"dropped"`
}

// Client is the display's connection manager.
type Client struct {
	page     Page
	path     string
	handlers Handlers

	// Configuration
	dialer         *websocket.Dialer
	clock          clockwork.Clock
	reconnectDelay time.Duration
	writeWait      time.Duration
	readLimit      int64

	// Connection state; mu also serializes writes.
	mu      sync.Mutex
	conn    *websocket.Conn
	session string

	dials     atomic.Uint64
	connects  atomic.Uint64
	received  atomic.Uint64
	unhandled atomic.Uint64
	malformed atomic.Uint64
	sent      atomic.Uint64
	dropped   atomic.Uint64

	// Shutdown control
	closed    chan struct{}
	closeOnce sync.Once
	done      chan struct{}

	logger logger.Logger
}

// New creates a client for path on the page's host. handlers overlay the
// default error, reload and displayConfiguration handlers.
func New(page Page, path string, handlers Handlers, opts ...Option) *Client {
	c := &Client{
		page:           page,
		path:           path,
		dialer:         websocket.DefaultDialer,
		clock:          clockwork.NewRealClock(),
		reconnectDelay: defaultReconnectDelay,
		writeWait:      defaultWriteWait,
		readLimit:      defaultReadLimit,
		closed:         make(chan struct{}),
		done:           make(chan struct{}),
		logger:         logger.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.handlers = merge(DefaultHandlers(page, c.logger), handlers)
	return c
}

// URL returns the channel URL for the page's current location.
func (c *Client) URL() string {
	return c.page.Location().ChannelURL(c.path)
}

// Run connects and keeps the channel up until ctx is done or Close is
// called. It must be called once.
func (c *Client) Run(ctx context.Context) {
	defer close(c.done)

	for {
		if c.stopped(ctx) {
			return
		}

		c.serve(ctx)

		if c.stopped(ctx) {
			return
		}
		metrics.RecordReconnectAttempt()
		c.logger.Info(ctx, "channel closed, reconnecting", logger.Duration("delay", c.reconnectDelay))

		select {
		case <-c.clock.After(c.reconnectDelay):
		case <-ctx.Done():
			return
		case <-c.closed:
			return
		}
	}
}

// Done is closed when Run has returned.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// serve dials once and reads until the connection drops.
func (c *Client) serve(ctx context.Context) {
	target := c.URL()
	c.dials.Add(1)

	conn, _, err := c.dialer.DialContext(ctx, target, nil)
	if err != nil {
		metrics.RecordErrorByComponent("channel", "dial")
		c.logger.Warn(ctx, "channel dial failed", logger.String("url", target), logger.Error(err))
		return
	}

	session := uuid.NewString()
	c.mu.Lock()
	select {
	case <-c.closed:
		c.mu.Unlock()
		_ = conn.Close()
		return
	default:
	}
	c.conn = conn
	c.session = session
	c.connects.Add(1)
	c.mu.Unlock()

	metrics.RecordChannelConnect()
	c.logger.Info(ctx, "channel open", logger.String("url", target), logger.String("session", session))

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	conn.SetReadLimit(c.readLimit)
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn(ctx, "channel read failed", logger.String("session", session), logger.Error(err))
			}
			break
		}
		c.dispatch(ctx, frame)
	}

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	_ = conn.Close()
	metrics.RecordChannelDisconnect()
	c.logger.Info(ctx, "channel down", logger.String("session", session))
}

// dispatch decodes one frame and runs its handler.
func (c *Client) dispatch(ctx context.Context, frame []byte) {
	env, err := model.Decode(frame)
	if err != nil {
		c.malformed.Add(1)
		metrics.RecordMessageMalformed()
		c.logger.Warn(ctx, "dropping malformed message", logger.Error(err), logger.Int("size", len(frame)))
		return
	}

	h, ok := c.handlers[env.Type]
	if !ok {
		c.unhandled.Add(1)
		metrics.RecordMessageUnhandled()
		c.logger.Debug(ctx, "no handler for message", logger.String("type", env.Type))
		return
	}

	c.received.Add(1)
	metrics.RecordMessageReceived(env.Type)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordHandlerPanic()
			metrics.RecordErrorByComponent("channel", "handler_panic")
			c.logger.Error(ctx, "handler panicked",
				logger.String("type", env.Type),
				logger.Any("panic", r),
			)
		}
		metrics.RecordHandlerLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()
	h(ctx, env)
}

// Send writes one {type, data} frame. It never blocks on a reconnect and
// never reports failure: a message that cannot be written is dropped.
func (c *Client) Send(ctx context.Context, msgType string, data any) {
	env, err := model.NewEnvelope(msgType, data)
	if err != nil {
		c.drop(ctx, msgType, err)
		return
	}
	frame, err := env.Encode()
	if err != nil {
		c.drop(ctx, msgType, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		c.drop(ctx, msgType, ErrNotConnected)
		return
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.drop(ctx, msgType, err)
		return
	}
	c.sent.Add(1)
	metrics.RecordMessageSent(msgType)
}

func (c *Client) drop(ctx context.Context, msgType string, err error) {
	c.dropped.Add(1)
	metrics.RecordSendDropped()
	c.logger.Debug(ctx, "send dropped", logger.String("type", msgType), logger.Error(err))
}

// Connected reports whether the channel is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Close unloads the channel: a best-effort close frame, then the socket is
// closed and no reconnect is scheduled. It is safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)

		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		if conn != nil {
			_ = conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "unload"))
		}
		c.mu.Unlock()

		if conn != nil {
			_ = conn.Close()
		}
	})
	return nil
}

// Stats returns counters and the connection state.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	connected, session := c.conn != nil, c.session
	c.mu.Unlock()

	return Stats{
		Connected: connected,
		Session:   session,
		URL:       c.URL(),
		Dials:     c.dials.Load(),
		Connects:  c.connects.Load(),
		Received:  c.received.Load(),
		Unhandled: c.unhandled.Load(),
		Malformed: c.malformed.Load(),
		Sent:      c.sent.Load(),
		Dropped:   c.dropped.Load(),
	}
}

func (c *Client) stopped(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}
