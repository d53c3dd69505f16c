package sequencer

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/fielddisplay/internal/domain/screen"
	"github.com/okian/fielddisplay/pkg/logger"
)

// Option applies a configuration option to the Sequencer.
type Option func(*Sequencer)

// WithClock sets the clock used for the settle delay and timeouts.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Sequencer) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithSettleDelay sets the pause between transitions. Zero disables it.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Sequencer) {
		if d >= 0 {
			s.settle = d
		}
	}
}

// WithTransitionTimeout bounds each hop. Zero, the default, disables it.
func WithTransitionTimeout(d time.Duration) Option {
	return func(s *Sequencer) {
		if d >= 0 {
			s.timeout = d
		}
	}
}

// WithContentLoader registers a loader to run whenever target is requested.
func WithContentLoader(target screen.Screen, loader ContentLoader) Option {
	return func(s *Sequencer) {
		if loader != nil {
			s.loaders[target] = loader
		}
	}
}

// WithContentTimeout bounds each content load. Zero disables it.
func WithContentTimeout(d time.Duration) Option {
	return func(s *Sequencer) {
		if d >= 0 {
			s.contentTimeout = d
		}
	}
}

// WithInitialScreen sets the screen shown before the first transition.
func WithInitialScreen(sc screen.Screen) Option {
	return func(s *Sequencer) {
		if sc.Valid() {
			s.current = sc
		}
	}
}

// WithObserver registers a callback for processed requests.
func WithObserver(o Observer) Option {
	return func(s *Sequencer) {
		s.observer = o
	}
}

// WithLogger sets a custom logger for the sequencer.
func WithLogger(l logger.Logger) Option {
	return func(s *Sequencer) {
		if l != nil {
			s.logger = l
		}
	}
}
