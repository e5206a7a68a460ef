// Package adapter abstracts pluggable playback backends behind one
// transport interface. Backends are selected once at daemon
// construction and never switched at runtime.
package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
)

// Adapter is the capability set every playback backend implements.
// Every operation either succeeds or fails with an *Error; a backend
// must never take the daemon down. Operations honor ctx cancellation
// where the underlying transport allows it; the timeout guard
// (WithTimeout) bounds the rest.
type Adapter interface {
	// Play starts playback of the given locator, replacing whatever
	// is currently playing.
	Play(ctx context.Context, uri string) error

	// Pause pauses the current playback.
	Pause(ctx context.Context) error

	// Resume resumes paused playback.
	Resume(ctx context.Context) error

	// Stop stops playback entirely.
	Stop(ctx context.Context) error

	// Status reports the backend's best-effort view of playback.
	Status(ctx context.Context) (Status, error)

	// Close releases the backend resource (terminates a child
	// process, closes a client connection).
	Close() error
}

// Playback states as reported by a backend. This is the backend's
// view; the session keeps the authoritative state.
const (
	StatePlaying = "playing"
	StatePaused  = "paused"
	StateStopped = "stopped"
)

// Status is a backend's best-effort playback report.
type Status struct {
	State    string        // playing, paused or stopped
	Track    string        // Locator of the active item, empty if none
	Position time.Duration // Elapsed position, zero if unknown
}

// Kind classifies adapter failures.
type Kind string

const (
	// KindNotImplemented marks operations a backend does not support
	// (the remote stub returns this for everything).
	KindNotImplemented Kind = "not_implemented"

	// KindUnavailable marks a backend that cannot be reached: missing
	// binary, dead subprocess, refused connection.
	KindUnavailable Kind = "unavailable"

	// KindTimeout marks an operation that exceeded the call timeout.
	KindTimeout Kind = "timeout"

	// KindBackend marks an error reported by the backend itself.
	KindBackend Kind = "backend"
)

// Error is the failure type every adapter operation reports.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("adapter %s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("adapter %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// NewError creates an adapter error.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError wraps a cause as an adapter error.
func WrapError(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// AsError extracts an *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr, true
	}
	return nil, false
}
