package scheduler

import "sync/atomic"

// CancellationToken is a cooperative cancellation signal handed to a
// worker alongside the Job it's executing. Executors should check
// IsCancelled periodically during long-running work and return early if
// it flips true. The zero value is a valid, never-cancelled
// token.
type CancellationToken struct {
	cancelled *atomic.Bool
}

// NewCancellationToken creates a fresh, uncancelled token.
func NewCancellationToken() CancellationToken {
	return CancellationToken{cancelled: &atomic.Bool{}}
}

// Cancel marks the token as cancelled. Safe to call more than once or
// from any goroutine.
func (t CancellationToken) Cancel() {
	if t.cancelled != nil {
		t.cancelled.Store(true)
	}
}

// IsCancelled reports whether Cancel has been called.
func (t CancellationToken) IsCancelled() bool {
	return t.cancelled != nil && t.cancelled.Load()
}
