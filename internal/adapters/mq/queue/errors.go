package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrQueueFull   = errors.New("screen queue is full")
	ErrQueueClosed = errors.New("screen queue is closed")
)
