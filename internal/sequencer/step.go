package sequencer

import (
	"time"

	"github.com/okian/fielddisplay/internal/domain/screen"
)

// Step is one timed stage of a transition. Cue names what the renderer
// should animate; the step is over when Duration has elapsed.
type Step struct {
	Cue      string
	Duration time.Duration
}

// Spec is the ordered choreography of one transition edge.
type Spec struct {
	Steps []Step
}

// Duration is the sum of all step durations.
func (s Spec) Duration() time.Duration {
	var total time.Duration
	for _, st := range s.Steps {
		total += st.Duration
	}
	return total
}

// Then returns a new spec running s followed by each of next.
func (s Spec) Then(next ...Spec) Spec {
	n := len(s.Steps)
	for _, sp := range next {
		n += len(sp.Steps)
	}
	steps := make([]Step, 0, n)
	steps = append(steps, s.Steps...)
	for _, sp := range next {
		steps = append(steps, sp.Steps...)
	}
	return Spec{Steps: steps}
}

// Hop is a single edge traversal handed to a Runner.
type Hop struct {
	From screen.Screen
	To   screen.Screen
	Spec Spec
}
