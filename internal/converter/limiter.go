package converter

// limiter.go implements concurrency control for conversion tasks.
//
// The limiter uses a semaphore pattern to restrict parallel conversion runs
// to a configurable maximum, preventing resource exhaustion when many
// uploads arrive at once. When all slots are occupied, new requests wait up
// to maxWait before failing with ErrTooManyTasks. It also supports graceful
// shutdown via WaitForDrain, which blocks until all active runs complete.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyTasks is returned when all conversion slots are occupied and the
// wait timeout expires. Clients should retry after a short delay.
var ErrTooManyTasks = errors.New("too many concurrent conversions, please try again later")

// DefaultMaxConcurrentTasks is the default limit for parallel conversion runs.
const DefaultMaxConcurrentTasks = 3

// DefaultTaskWaitTime is how long to wait for a slot before rejecting.
const DefaultTaskWaitTime = 30 * time.Second

// TaskLimiter controls concurrent conversion runs using a semaphore pattern.
type TaskLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewTaskLimiter creates a limiter that allows at most maxConcurrent
// simultaneous runs. Requests that cannot acquire a slot within maxWait
// receive ErrTooManyTasks.
func NewTaskLimiter(maxConcurrent int, maxWait time.Duration) *TaskLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentTasks
	}
	if maxWait <= 0 {
		maxWait = DefaultTaskWaitTime
	}

	return &TaskLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire attempts to acquire a conversion slot.
// Returns nil on success, ErrTooManyTasks if the timeout expires.
// The caller MUST call Release() when the run completes (use defer).
func (l *TaskLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyTasks

	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire attempts to acquire a slot without blocking.
func (l *TaskLimiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release releases a previously acquired slot.
// Must be called exactly once for each successful Acquire/TryAcquire.
func (l *TaskLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of currently active runs.
func (l *TaskLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// WaitForDrain blocks until all active runs complete or the context is
// cancelled. Used for graceful shutdown.
func (l *TaskLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.ActiveCount() == 0 {
				return nil
			}
		}
	}
}
