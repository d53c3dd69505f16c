// Package sequencer drives the audience display from screen to screen.
//
// Requests are queued in arrival order and played one transition at a time
// by a single goroutine, so at most one animation is ever in flight. When
// the graph has no direct edge the sequencer routes through the blank hub.
package sequencer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/fielddisplay/internal/adapters/mq/queue"
	"github.com/okian/fielddisplay/internal/domain/screen"
	"github.com/okian/fielddisplay/pkg/logger"
	"github.com/okian/fielddisplay/pkg/metrics"
)

// Default sequencer configuration constants.
const (
	defaultSettleDelay    = 100 * time.Millisecond
	defaultContentTimeout = 5 * time.Second
)

// Kind classifies a completed transition.
type Kind string

// Transition kinds.
const (
	KindNoop   Kind = "noop"
	KindDirect Kind = "direct"
	KindViaHub Kind = "via_hub"
)

// Transition describes one processed request.
type Transition struct {
	From     screen.Screen
	To       screen.Screen
	Kind     Kind
	Hops     []Hop
	Duration time.Duration
	TimedOut bool
}

// Observer is called on the sequencer goroutine after every processed
// request. It must not block.
type Observer func(Transition)

// ContentLoader fetches fresh content for a screen. Loads run beside the
// transition and never hold it up.
type ContentLoader interface {
	Load(ctx context.Context) error
}

// Status is what is on screen and what is waiting.
type Status struct {
	Current screen.Screen `json:"current"`
	Busy    bool          `json:"busy"`
	Pending int           `json:"pending"`
}

// Stats is a point-in-time view of the sequencer.
type Stats struct {
	Current       screen.Screen `json:"current"`
	Busy          bool          `json:"busy"`
	Pending       int           `json:"pending"`
	Requested     uint64        `json:"requested"`
	Rejected      uint64        `json:"rejected"`
	Completed     uint64        `json:"completed"`
	Noops         uint64        `json:"noops"`
	ViaHub        uint64        `json:"viaHub"`
	TimedOut      uint64        `json:"timedOut"`
	ContentLoads  uint64        `json:"contentLoads"`
	ContentErrors uint64        `json:"contentErrors"`
}

// Sequencer owns the current screen and the request queue.
type Sequencer struct {
	queue  queue.Queue
	graph  *Graph
	runner Runner

	// Configuration
	clock          clockwork.Clock
	settle         time.Duration
	timeout        time.Duration
	contentTimeout time.Duration
	loaders        map[screen.Screen]ContentLoader
	observer       Observer

	// State
	mu      sync.RWMutex
	current screen.Screen
	busy    bool

	requested     atomic.Uint64
	rejected      atomic.Uint64
	completed     atomic.Uint64
	noops         atomic.Uint64
	viaHub        atomic.Uint64
	timedOut      atomic.Uint64
	contentLoads  atomic.Uint64
	contentErrors atomic.Uint64

	// Shutdown control
	started      atomic.Bool
	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}
	loads        sync.WaitGroup

	logger logger.Logger
}

// New creates a sequencer reading requests from q and playing them on r.
func New(q queue.Queue, g *Graph, r Runner, opts ...Option) *Sequencer {
	s := &Sequencer{
		queue:          q,
		graph:          g,
		runner:         r,
		clock:          clockwork.NewRealClock(),
		settle:         defaultSettleDelay,
		contentTimeout: defaultContentTimeout,
		loaders:        make(map[screen.Screen]ContentLoader),
		current:        screen.Initial,
		shutdown:       make(chan struct{}),
		done:           make(chan struct{}),
		logger:         logger.Nop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// RequestScreen queues target. It never waits for the transition.
func (s *Sequencer) RequestScreen(ctx context.Context, target screen.Screen) error {
	if !target.Valid() {
		s.rejected.Add(1)
		return fmt.Errorf("request %q: %w", target, screen.ErrUnknownScreen)
	}
	if err := s.queue.Enqueue(ctx, target); err != nil {
		s.rejected.Add(1)
		s.logger.Warn(ctx, "screen request rejected",
			logger.String("screen", target.String()),
			logger.Error(err),
		)
		return fmt.Errorf("request %s: %w", target, err)
	}
	s.requested.Add(1)
	s.logger.Debug(ctx, "screen requested", logger.String("screen", target.String()))
	return nil
}

// Run drains the queue until ctx is done, Shutdown is called, or the queue
// is closed and empty. It must be called once.
func (s *Sequencer) Run(ctx context.Context) {
	s.started.Store(true)
	defer close(s.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.shutdown:
			cancel()
		case <-ctx.Done():
		}
	}()
	defer s.loads.Wait()

	metrics.UpdateCurrentScreen("", s.Current().String())

	for {
		target, ok := s.queue.Next(ctx)
		if !ok {
			return
		}
		s.execute(ctx, target)
		if ctx.Err() != nil {
			return
		}
		if !s.sleep(ctx, s.settle) {
			return
		}
	}
}

// Shutdown stops accepting requests and waits for Run to return. An
// in-flight transition is abandoned.
func (s *Sequencer) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		_ = s.queue.Close()
		close(s.shutdown)
	})

	if !s.started.Load() {
		return nil
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		s.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Current returns the screen currently shown.
func (s *Sequencer) Current() screen.Screen {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Busy reports whether a transition is playing.
func (s *Sequencer) Busy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.busy
}

// Pending returns the number of queued requests not yet started.
func (s *Sequencer) Pending() int {
	return s.queue.Len(context.Background())
}

// Status returns the current screen, whether a transition is playing and
// the queue depth.
func (s *Sequencer) Status() Status {
	s.mu.RLock()
	current, busy := s.current, s.busy
	s.mu.RUnlock()
	return Status{Current: current, Busy: busy, Pending: s.Pending()}
}

// Stats returns counters and the current state.
func (s *Sequencer) Stats() Stats {
	s.mu.RLock()
	current, busy := s.current, s.busy
	s.mu.RUnlock()

	return Stats{
		Current:       current,
		Busy:          busy,
		Pending:       s.Pending(),
		Requested:     s.requested.Load(),
		Rejected:      s.rejected.Load(),
		Completed:     s.completed.Load(),
		Noops:         s.noops.Load(),
		ViaHub:        s.viaHub.Load(),
		TimedOut:      s.timedOut.Load(),
		ContentLoads:  s.contentLoads.Load(),
		ContentErrors: s.contentErrors.Load(),
	}
}

// execute plays one request to completion.
func (s *Sequencer) execute(ctx context.Context, target screen.Screen) {
	from := s.Current()

	if target == from {
		s.noops.Add(1)
		metrics.RecordTransition(string(KindNoop), 0)
		s.notify(Transition{From: from, To: target, Kind: KindNoop})
		return
	}

	if loader, ok := s.loaders[target]; ok {
		s.loadContent(ctx, target, loader)
	}

	hops := s.graph.Route(from, target)
	kind := KindDirect
	if len(hops) > 1 {
		kind = KindViaHub
	}

	s.setBusy(true)
	defer s.setBusy(false)

	start := s.clock.Now()
	timedOut := false
	for _, hop := range hops {
		if err := s.runHop(ctx, hop); err != nil {
			if ctx.Err() != nil {
				s.logger.Info(ctx, "transition abandoned on shutdown",
					logger.String("from", hop.From.String()),
					logger.String("to", hop.To.String()),
				)
				return
			}
			timedOut = true
		}
		s.setCurrent(hop.To)
	}
	elapsed := s.clock.Since(start)

	s.completed.Add(1)
	if kind == KindViaHub {
		s.viaHub.Add(1)
	}
	metrics.RecordTransition(string(kind), float64(elapsed.Milliseconds()))
	s.logger.Info(ctx, "transition complete",
		logger.String("from", from.String()),
		logger.String("to", target.String()),
		logger.String("kind", string(kind)),
		logger.Duration("elapsed", elapsed),
	)
	s.notify(Transition{From: from, To: target, Kind: kind, Hops: hops, Duration: elapsed, TimedOut: timedOut})
}

// runHop plays a single hop, bounded by the transition timeout if set. A
// failed or timed-out hop still counts as arrived so the display cannot
// wedge on one bad animation.
func (s *Sequencer) runHop(ctx context.Context, hop Hop) error {
	hctx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithCancel(ctx)
		t := s.clock.AfterFunc(s.timeout, cancel)
		defer t.Stop()
		defer cancel()
	}

	err := s.runner.Run(hctx, hop)
	if err != nil && ctx.Err() == nil {
		s.timedOut.Add(1)
		metrics.RecordTransitionTimeout()
		metrics.RecordErrorByComponent("sequencer", "hop_failed")
		s.logger.Warn(ctx, "hop did not finish, snapping to target",
			logger.String("from", hop.From.String()),
			logger.String("to", hop.To.String()),
			logger.Error(err),
		)
	}
	return err
}

// loadContent starts loader on its own goroutine.
func (s *Sequencer) loadContent(ctx context.Context, target screen.Screen, loader ContentLoader) {
	s.contentLoads.Add(1)
	s.loads.Add(1)
	go func() {
		defer s.loads.Done()
		defer func() {
			if r := recover(); r != nil {
				s.contentErrors.Add(1)
				metrics.RecordContentLoad(target.String(), "panic")
				s.logger.Error(ctx, "content loader panicked",
					logger.String("screen", target.String()),
					logger.Any("panic", r),
				)
			}
		}()

		lctx := ctx
		if s.contentTimeout > 0 {
			var cancel context.CancelFunc
			lctx, cancel = context.WithTimeout(ctx, s.contentTimeout)
			defer cancel()
		}

		if err := loader.Load(lctx); err != nil {
			s.contentErrors.Add(1)
			metrics.RecordContentLoad(target.String(), "error")
			s.logger.Warn(ctx, "content load failed",
				logger.String("screen", target.String()),
				logger.Error(err),
			)
			return
		}
		metrics.RecordContentLoad(target.String(), "ok")
	}()
}

// sleep waits d on the clock. It reports false if ctx ended first.
func (s *Sequencer) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-s.clock.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Sequencer) setCurrent(sc screen.Screen) {
	s.mu.Lock()
	prev := s.current
	s.current = sc
	s.mu.Unlock()
	metrics.UpdateCurrentScreen(prev.String(), sc.String())
}

func (s *Sequencer) setBusy(b bool) {
	s.mu.Lock()
	s.busy = b
	s.mu.Unlock()
}

func (s *Sequencer) notify(t Transition) {
	if s.observer != nil {
		s.observer(t)
	}
}
