// Package domain defines domain-specific errors.
// These represent playback-engine failures independent of infrastructure.
package domain

import (
	"errors"
	"fmt"
)

// Common errors that the engine can return.
var (
	// ErrTrackNotFound is returned when a queue index or track cannot be found.
	ErrTrackNotFound = errors.New("track not found")

	// ErrInvalidIndex is returned when a queue index is out of bounds.
	ErrInvalidIndex = errors.New("invalid queue index")

	// ErrQueueEmpty is returned when an operation requires a non-empty queue.
	ErrQueueEmpty = errors.New("queue is empty")

	// ErrQueueExhausted is returned when sequential playback reaches the end
	// of the queue. This is a defined terminal state, not a failure.
	ErrQueueExhausted = errors.New("queue exhausted")

	// ErrResolutionFailed is returned when a remote track cannot be turned
	// into a locally playable file.
	ErrResolutionFailed = errors.New("track resolution failed")

	// ErrPreloadFailed is returned when a background prefetch fails.
	ErrPreloadFailed = errors.New("preload failed")

	// ErrPlaybackFailed is returned when the audio engine rejects a file or
	// the file is missing.
	ErrPlaybackFailed = errors.New("playback failed")

	// ErrNotRemote is returned when a remote-only operation is attempted on
	// a purely local track.
	ErrNotRemote = errors.New("track has no remote identifier")

	// ErrNoStreamURL is returned when the content provider has no playable
	// URL for a remote track.
	ErrNoStreamURL = errors.New("no stream url available")

	// ErrEngineClosed is returned when a command reaches a controller that
	// has been shut down.
	ErrEngineClosed = errors.New("engine closed")
)

// EngineError wraps a low-level audio engine failure with context.
type EngineError struct {
	Op   string // Operation that failed (e.g. "play", "preload", "switch")
	Path string // File path, if applicable
	Err  error  // Underlying error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("audio engine %s failed for %q: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("audio engine %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewEngineError creates a new EngineError.
func NewEngineError(op, path string, err error) *EngineError {
	return &EngineError{Op: op, Path: path, Err: err}
}

// StoreError wraps a persistence failure with context.
type StoreError struct {
	Op  string // Operation that failed (e.g. "record_play", "save_queue")
	Err error  // Underlying error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}
