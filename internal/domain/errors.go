package domain

import "errors"

// Sentinel errors used throughout the application.
// Job failures are classified with errors.Is via ReasonFor.
var (
	ErrConnection  = errors.New("broker connection failed")
	ErrDecode      = errors.New("payload is not valid UTF-8 text")
	ErrFetch       = errors.New("media fetch failed")
	ErrStorage     = errors.New("media storage failed")
	ErrPublish     = errors.New("notification publish failed")
	ErrQueueFull   = errors.New("job queue is at capacity")
	ErrQueueClosed = errors.New("job queue is closed")
	ErrNotFound    = errors.New("not found")
)
