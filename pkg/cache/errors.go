package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Artifact kinds. They prefix keys and name entries in hooks and errors.
const (
	KindGraph   = "graph"
	KindTrace   = "trace"
	KindSummary = "summary"
	KindRender  = "render"
)

var (
	// ErrUnavailable is wrapped by backend failures that may clear up on
	// their own, such as an unreachable Redis.
	ErrUnavailable = errors.New("cache backend unavailable")

	// ErrCorrupt is wrapped when a stored entry no longer decodes, for
	// example a flowchart written by an older release.
	ErrCorrupt = errors.New("cached entry does not decode")
)

// Error is a failed read or write of one cached artifact. The pipeline
// treats it as a miss and logs it.
type Error struct {
	Kind string // KindGraph, KindTrace, KindSummary or KindRender
	Op   string // "get" or "set"
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s cache %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// RetryableError marks a failure worth another attempt: a Redis timeout,
// a rate-limited or malformed trace reply.
type RetryableError struct{ Err error }

// Retryable wraps err as a RetryableError. Retryable(nil) is nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is marked retryable.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// retryAttempts and retryDelay bound RetryWithBackoff: three tries, one
// second before the second and two before the third.
var (
	retryAttempts = 3
	retryDelay    = time.Second
)

// RetryWithBackoff calls fn until it succeeds, returns an error not marked
// with [Retryable], or runs out of attempts. The delay doubles after each
// failed attempt; cancelling ctx stops the wait.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	delay := retryDelay
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil || !IsRetryable(err) {
			return err
		}
		if attempt == retryAttempts {
			return err
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
}
