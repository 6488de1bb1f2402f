// Package session keeps step-through debugging sessions: a program, its
// flowchart, an execution trace and a cursor over the trace's steps.
//
// This package defines the Store interface for session persistence, with
// implementations for different backends:
//   - memory: in-process storage for the API server and tests
//   - file: JSON files for the CLI
//   - mongo: MongoDB for multi-instance deployments
//
// # Navigation
//
// The cursor never leaves the trace: [Session.Next] at the last step and
// [Session.Prev] at the first are no-ops, and [Session.Seek] clamps.
//
// # Usage
//
//	sess, err := session.New(code, graph, tr, inputs, session.DefaultTTL)
//	if err != nil {
//	    return err
//	}
//	store.Set(ctx, sess)
//
//	sess.Next()
//	view, err := sess.View(sess.Current)
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/codeflow/pkg/flow"
	"github.com/matzehuels/codeflow/pkg/trace"
)

// Sentinel errors for session operations.
var (
	// ErrNotFound is returned when a session does not exist or has expired.
	ErrNotFound = errors.New("session not found")

	// ErrStepOutOfRange is returned when a step index is outside the trace.
	ErrStepOutOfRange = errors.New("step out of range")
)

// DefaultTTL is the default session lifetime.
const DefaultTTL = 24 * time.Hour

// Session is one step-through of a traced program.
type Session struct {
	ID        string       `json:"id"`
	Code      string       `json:"code"`
	Inputs    []string     `json:"inputs,omitempty"`
	Graph     *flow.Graph  `json:"graph"`
	Trace     *trace.Trace `json:"trace"`
	Current   int          `json:"current"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// New creates a session positioned at the first step.
func New(code string, g *flow.Graph, t *trace.Trace, inputs []string, ttl time.Duration) (*Session, error) {
	if t.Len() == 0 {
		return nil, trace.ErrEmptyTrace
	}
	if g == nil {
		g = flow.ErrorGraph("no flowchart", 0)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		Code:      code,
		Inputs:    inputs,
		Graph:     g,
		Trace:     t,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Len returns the number of steps.
func (s *Session) Len() int { return s.Trace.Len() }

// Step returns the step under the cursor.
func (s *Session) Step() trace.Step {
	return s.Trace.Steps[s.Current]
}

// Next advances one step and reports whether the cursor moved.
func (s *Session) Next() bool {
	return s.move(s.Current + 1)
}

// Prev goes back one step and reports whether the cursor moved.
func (s *Session) Prev() bool {
	return s.move(s.Current - 1)
}

// Seek moves to step i, clamped to the trace, and returns the new index.
func (s *Session) Seek(i int) int {
	s.move(i)
	return s.Current
}

// AtStart reports whether the cursor is on the first step.
func (s *Session) AtStart() bool { return s.Current == 0 }

// AtEnd reports whether the cursor is on the last step.
func (s *Session) AtEnd() bool { return s.Current == s.Len()-1 }

func (s *Session) move(i int) bool {
	i = max(0, min(i, s.Len()-1))
	if i == s.Current {
		return false
	}
	s.Current = i
	s.UpdatedAt = time.Now()
	return true
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID. Missing and expired sessions return
	// ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Set stores a session, replacing any previous version.
	Set(ctx context.Context, s *Session) error

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// Cleanup removes expired sessions.
	Cleanup(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
