// Package service wires the display together: one kiosk page, and per page
// load a session made of a channel, a sequencer, a board and a sponsor
// loader.
package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/okian/fielddisplay/internal/adapters/mq/queue"
	"github.com/okian/fielddisplay/internal/audience"
	"github.com/okian/fielddisplay/internal/channel"
	"github.com/okian/fielddisplay/internal/domain/screen"
	"github.com/okian/fielddisplay/internal/sequencer"
	"github.com/okian/fielddisplay/internal/sponsor"
	"github.com/okian/fielddisplay/pkg/logger"
	"github.com/okian/fielddisplay/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultPageURL         = "http://localhost:8080/displays/audience?display_id=100"
	defaultChannelPath     = "/api/displays/audience/websocket"
	defaultReconnectDelay  = 3 * time.Second
	defaultSettleDelay     = 100 * time.Millisecond
	defaultQueueSize       = 1024
	defaultContentTimeout  = 5 * time.Second
	sessionShutdownTimeout = 5 * time.Second
)

// session is everything that lives for one page load.
type session struct {
	id      int
	seq     *sequencer.Sequencer
	board   *audience.Board
	slides  *sponsor.Loader
	client  *channel.Client
	cancel  context.CancelFunc
	seqDone chan struct{}
}

// Service runs the display.
type Service struct {
	mu sync.RWMutex

	// Configuration
	pageURL           string
	channelPath       string
	reconnectDelay    time.Duration
	settleDelay       time.Duration
	queueSize         int
	transitionTimeout time.Duration
	contentTimeout    time.Duration
	clock             clockwork.Clock
	dialer            *websocket.Dialer
	httpClient        *http.Client
	stage             sequencer.Stage
	graph             *sequencer.Graph

	// State
	kiosk    *Kiosk
	current  *session
	sessions int
	started  bool
	cancel   context.CancelFunc
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		pageURL:        defaultPageURL,
		channelPath:    defaultChannelPath,
		reconnectDelay: defaultReconnectDelay,
		settleDelay:    defaultSettleDelay,
		queueSize:      defaultQueueSize,
		contentTimeout: defaultContentTimeout,
		clock:          clockwork.NewRealClock(),
		dialer:         websocket.DefaultDialer,
		httpClient:     &http.Client{Timeout: defaultContentTimeout},
		graph:          sequencer.DefaultGraph(),
		logger:         nil, // Will be replaced when service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the kiosk page and runs sessions until ctx is done or Stop is
// called. A reload or navigation tears the session down and starts a fresh
// one on the page's current location.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.stage == nil {
		s.stage = sequencer.NewLogStage(s.logger.Named("stage"))
	}

	loc, err := channel.ParseLocation(s.pageURL)
	if err != nil {
		return fmt.Errorf("page url: %w", err)
	}

	s.logger.Info(ctx, "starting display service...", logger.String("page", loc.String()))

	runCtx, cancel := context.WithCancel(ctx)
	s.kiosk = NewKiosk(loc, s.logger.Named("kiosk"))
	s.sessions++
	s.current = s.newSession(runCtx, s.sessions)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.started = true

	go s.loop(runCtx, s.current, s.done)

	s.logger.Info(ctx, "display service started",
		logger.String("channel", s.current.client.URL()),
		logger.Int("queueSize", s.queueSize),
	)
	return nil
}

// Stop unloads the page and waits for the session to wind down.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	s.logger.Info(context.Background(), "stopping display service...")
	cancel()
	<-done
	s.logger.Info(context.Background(), "display service stopped")
}

func (s *Service) loop(ctx context.Context, sess *session, done chan struct{}) {
	defer close(done)

	defer func() {
		s.mu.Lock()
		s.current = nil
		s.started = false
		s.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			s.teardown(sess)
			return
		case <-s.kiosk.Restarts():
			s.teardown(sess)
			if ctx.Err() != nil {
				return
			}
			s.mu.Lock()
			s.sessions++
			id := s.sessions
			s.mu.Unlock()

			next := s.newSession(ctx, id)
			s.mu.Lock()
			s.current = next
			s.mu.Unlock()
			sess = next
		}
	}
}

// newSession builds and starts the components for one page load.
func (s *Service) newSession(ctx context.Context, id int) *session {
	l := s.logger.Named(fmt.Sprintf("session-%d", id))
	loc := s.kiosk.Location()

	q := queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	metrics.UpdateQueueCapacity(q.Capacity())

	slides := sponsor.NewLoader(loc.Origin(),
		sponsor.WithHTTPClient(s.httpClient),
		sponsor.WithLogger(l.Named("sponsor")),
	)
	seq := sequencer.New(q, s.graph, sequencer.NewTimedRunner(s.clock, s.stage),
		sequencer.WithClock(s.clock),
		sequencer.WithSettleDelay(s.settleDelay),
		sequencer.WithTransitionTimeout(s.transitionTimeout),
		sequencer.WithContentLoader(screen.Sponsor, slides),
		sequencer.WithContentTimeout(s.contentTimeout),
		sequencer.WithObserver(s.observer(l)),
		sequencer.WithLogger(l.Named("sequencer")),
	)
	board := audience.NewBoard()
	client := channel.New(s.kiosk, s.channelPath,
		audience.Handlers(seq, board, l.Named("audience")),
		channel.WithClock(s.clock),
		channel.WithReconnectDelay(s.reconnectDelay),
		channel.WithDialer(s.dialer),
		channel.WithLogger(l.Named("channel")),
	)

	sctx, cancel := context.WithCancel(ctx)
	sess := &session{
		id:      id,
		seq:     seq,
		board:   board,
		slides:  slides,
		client:  client,
		cancel:  cancel,
		seqDone: make(chan struct{}),
	}
	go func() {
		defer close(sess.seqDone)
		seq.Run(sctx)
	}()
	go client.Run(sctx)

	l.Info(ctx, "session started", logger.String("location", loc.String()))
	return sess
}

// teardown is the page unload: the channel is closed first so nothing new
// reaches the sequencer, then the sequencer is shut down.
func (s *Service) teardown(sess *session) {
	ctx, cancel := context.WithTimeout(context.Background(), sessionShutdownTimeout)
	defer cancel()

	_ = sess.client.Close()
	if err := sess.seq.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "sequencer shutdown failed", logger.Int("session", sess.id), logger.Error(err))
	}
	sess.cancel()

	select {
	case <-sess.client.Done():
	case <-ctx.Done():
		s.logger.Warn(ctx, "channel did not stop in time", logger.Int("session", sess.id))
	}
	<-sess.seqDone
	s.logger.Info(ctx, "session stopped", logger.Int("session", sess.id))
}

func (s *Service) observer(l logger.Logger) sequencer.Observer {
	return func(t sequencer.Transition) {
		fields := []logger.Field{
			logger.String("from", t.From.String()),
			logger.String("to", t.To.String()),
			logger.String("kind", string(t.Kind)),
			logger.Duration("took", t.Duration),
		}
		if t.TimedOut {
			l.Warn(context.Background(), "transition timed out", fields...)
			return
		}
		l.Info(context.Background(), "screen changed", fields...)
	}
}

func (s *Service) session() (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started || s.current == nil {
		return nil, ErrNotStarted
	}
	return s.current, nil
}

// RequestScreen queues a screen change as if the server had sent
// audience_display_mode.
func (s *Service) RequestScreen(ctx context.Context, target screen.Screen) error {
	sess, err := s.session()
	if err != nil {
		return err
	}
	return sess.seq.RequestScreen(ctx, target)
}

// Screen returns the current screen and the queue depth.
func (s *Service) Screen() (sequencer.Status, error) {
	sess, err := s.session()
	if err != nil {
		return sequencer.Status{}, err
	}
	return sess.seq.Status(), nil
}

// Board returns a copy of the audience board.
func (s *Service) Board() (audience.Snapshot, error) {
	sess, err := s.session()
	if err != nil {
		return audience.Snapshot{}, err
	}
	return sess.board.Snapshot(), nil
}

// Slides returns the sponsor slideshow of the current session.
func (s *Service) Slides() ([]sponsor.Slide, error) {
	sess, err := s.session()
	if err != nil {
		return nil, err
	}
	return sess.slides.Slides(), nil
}

// Send writes a message to the field server. It is dropped if the channel
// is down.
func (s *Service) Send(ctx context.Context, msgType string, data any) error {
	sess, err := s.session()
	if err != nil {
		return err
	}
	sess.client.Send(ctx, msgType, data)
	return nil
}

// Connected reports whether the current session's channel is open.
func (s *Service) Connected() bool {
	sess, err := s.session()
	if err != nil {
		return false
	}
	return sess.client.Connected()
}

// Location returns the kiosk page location, or "" before Start.
func (s *Service) Location() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.kiosk == nil {
		return ""
	}
	return s.kiosk.Location().String()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":   s.started,
		"sessions":  s.sessions,
		"queueSize": s.queueSize,
	}
	if s.kiosk != nil {
		stats["location"] = s.kiosk.Location().String()
	}

	if s.started && s.current != nil {
		seqStats := s.current.seq.Stats()
		stats["session"] = s.current.id
		stats["channel"] = s.current.client.Stats()
		stats["sequencer"] = seqStats
		stats["sponsorSlides"] = len(s.current.slides.Slides())

		metrics.UpdateQueueSize(seqStats.Pending)
	}

	return stats
}
