// Package ports defines the interfaces between the playback engine and its
// external collaborators. The engine depends only on these interfaces, never
// on concrete adapters.
package ports

import (
	"time"

	"github.com/halcyon-player/halcyon/internal/domain"
)

// AudioEngine is the local audio output/decoding engine.
//
// The engine owns up to three decoded pipelines at a time: the current track
// plus one preloaded neighbor per direction. SwitchToNext/SwitchToPrev are
// the fast path that promotes a preloaded pipeline to current without a
// decode round-trip.
//
// Implementations must be safe for concurrent use; the controller calls from
// its own goroutines.
type AudioEngine interface {
	// Play starts playback of the file at path from the beginning,
	// replacing the current track.
	Play(path string) error

	// Pause pauses the current track, keeping its position.
	Pause() error

	// Resume continues a paused track.
	Resume() error

	// Stop halts playback and discards the current pipeline.
	Stop() error

	// Seek moves the current playback position.
	Seek(position time.Duration) error

	// PreloadNext prepares the file at path as the next-track pipeline.
	PreloadNext(path string) error

	// PreloadPrev prepares the file at path as the previous-track pipeline.
	PreloadPrev(path string) error

	// SwitchToNext promotes the preloaded next pipeline to current.
	// Returns false when no next pipeline is ready; the caller then falls
	// back to a regular Play.
	SwitchToNext() bool

	// SwitchToPrev promotes the preloaded previous pipeline to current.
	SwitchToPrev() bool

	// Info reports position, duration, volume and status of the current
	// track.
	Info() domain.PlayerInfo
}
