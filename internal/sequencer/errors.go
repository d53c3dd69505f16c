package sequencer

import "errors"

// Sentinel kinds for sequencer errors.
var (
	ErrMissingHubEdge = errors.New("missing edge through blank hub")
	ErrSelfEdge       = errors.New("edge from a screen to itself")
	ErrStopped        = errors.New("sequencer stopped")
)
