package sequencer

import (
	"context"

	"github.com/jonboulle/clockwork"

	"github.com/okian/fielddisplay/internal/domain/screen"
	"github.com/okian/fielddisplay/pkg/logger"
)

// Runner plays one hop to completion. It returns early only when ctx is
// done; a nil error means the hop finished.
type Runner interface {
	Run(ctx context.Context, hop Hop) error
}

// Stage receives a cue at the start of every step. Implementations must not
// block; the step duration is owned by the runner.
type Stage interface {
	Cue(ctx context.Context, from, to screen.Screen, step Step)
}

// TimedRunner cues each step on a Stage and then waits the step's duration.
type TimedRunner struct {
	clock clockwork.Clock
	stage Stage
}

// NewTimedRunner creates a runner on the given clock. A nil clock uses the
// real one.
func NewTimedRunner(clock clockwork.Clock, stage Stage) *TimedRunner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TimedRunner{clock: clock, stage: stage}
}

// Run plays hop.Spec step by step.
func (r *TimedRunner) Run(ctx context.Context, hop Hop) error {
	for _, st := range hop.Spec.Steps {
		if r.stage != nil {
			r.stage.Cue(ctx, hop.From, hop.To, st)
		}
		if st.Duration <= 0 {
			continue
		}
		select {
		case <-r.clock.After(st.Duration):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// LogStage is the headless stage: it only logs cues.
type LogStage struct {
	logger logger.Logger
}

// NewLogStage creates a stage that writes each cue at debug level.
func NewLogStage(l logger.Logger) *LogStage {
	if l == nil {
		l = logger.Nop()
	}
	return &LogStage{logger: l}
}

// Cue implements Stage.
func (s *LogStage) Cue(ctx context.Context, from, to screen.Screen, step Step) {
	s.logger.Debug(ctx, "cue",
		logger.String("from", from.String()),
		logger.String("to", to.String()),
		logger.String("cue", step.Cue),
		logger.Duration("duration", step.Duration),
	)
}
