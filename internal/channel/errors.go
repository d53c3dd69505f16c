package channel

import "errors"

// Sentinel kinds for channel errors.
var (
	ErrInvalidLocation = errors.New("invalid page location")
	ErrNotConnected    = errors.New("channel not connected")
)
