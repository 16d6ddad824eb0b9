// Package domain contains the core models of the playback continuity engine.
// It has no dependencies on adapters or external frameworks.
package domain

import (
	"strconv"
	"strings"
	"time"
)

// RemoteRefPrefix marks a file path that refers to a remote-only track
// rather than a file on disk, e.g. "remote://1989043".
const RemoteRefPrefix = "remote://"

// Track is a single playback queue entry.
//
// Locally catalogued tracks carry a non-negative ID and a file path on disk.
// Remote-only tracks carry a negative ID (the remote identifier, negated) or
// a RemoteRefPrefix file path; the resolver fills in FilePath and CoverPath
// once the track has been fetched and cached.
type Track struct {
	// ID is the stable track identifier. Negative values mark remote-only
	// tracks whose remote identifier is -ID.
	ID int64

	// FilePath is the playable file on disk, a remote:// reference, or empty
	// for a remote track that has not been resolved yet.
	FilePath string

	// Title is the display title.
	Title string

	// Artist is the performing artist.
	Artist string

	// Album is the album name.
	Album string

	// Duration is the total track length, if known.
	Duration time.Duration

	// CoverPath is a local cover image path, a remote http(s) URL that has
	// not been downloaded yet, or empty.
	CoverPath string
}

// IsRemote reports whether the track references remote content (it may still
// be locally cached; see the resolver).
func (t Track) IsRemote() bool {
	return t.ID < 0 || strings.HasPrefix(t.FilePath, RemoteRefPrefix)
}

// RemoteID returns the remote identifier for a remote track.
// The second return value is false for purely local tracks.
func (t Track) RemoteID() (int64, bool) {
	if t.ID < 0 {
		return -t.ID, true
	}
	if strings.HasPrefix(t.FilePath, RemoteRefPrefix) {
		id, err := strconv.ParseInt(strings.TrimPrefix(t.FilePath, RemoteRefPrefix), 10, 64)
		if err != nil || id <= 0 {
			return 0, false
		}
		return id, true
	}
	return 0, false
}

// HasRemoteCover reports whether the cover still points at a remote URL
// instead of a cached local file.
func (t Track) HasRemoteCover() bool {
	return strings.HasPrefix(t.CoverPath, "http://") || strings.HasPrefix(t.CoverPath, "https://")
}

// PlayMode selects how the queue advances between tracks.
type PlayMode int

const (
	// ModeSequential plays the queue in order and stops at the end.
	ModeSequential PlayMode = iota

	// ModeLoopAll plays the queue in order and wraps around.
	ModeLoopAll

	// ModeLoopOne repeats the current track.
	ModeLoopOne

	// ModeShuffle picks uniformly random indices.
	ModeShuffle
)

// String returns a human-readable representation of the play mode.
func (m PlayMode) String() string {
	switch m {
	case ModeSequential:
		return "sequential"
	case ModeLoopAll:
		return "loop-all"
	case ModeLoopOne:
		return "loop-one"
	case ModeShuffle:
		return "shuffle"
	default:
		return "unknown"
	}
}

// Cycle returns the mode a user-facing toggle advances to.
func (m PlayMode) Cycle() PlayMode {
	switch m {
	case ModeSequential:
		return ModeLoopAll
	case ModeLoopAll:
		return ModeLoopOne
	case ModeLoopOne:
		return ModeShuffle
	default:
		return ModeSequential
	}
}

// PlaybackStatus is the coarse state of the player controller.
type PlaybackStatus int

const (
	// StatusStopped indicates no track is active.
	StatusStopped PlaybackStatus = iota

	// StatusResolving indicates a remote track is being fetched before play.
	StatusResolving

	// StatusPlaying indicates playback is active.
	StatusPlaying

	// StatusPaused indicates playback is paused.
	StatusPaused
)

// String returns a human-readable representation of the status.
func (s PlaybackStatus) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusResolving:
		return "resolving"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Direction names a preload slot relative to the current track.
type Direction int

const (
	// DirNext is the slot for the upcoming track.
	DirNext Direction = iota

	// DirPrev is the slot for the preceding track.
	DirPrev
)

// String returns "next" or "prev".
func (d Direction) String() string {
	if d == DirNext {
		return "next"
	}
	return "prev"
}

// PlaybackState is a read-only snapshot of the controller state.
type PlaybackState struct {
	// CurrentTrack is the active track, nil when stopped.
	CurrentTrack *Track

	// CurrentIndex is the queue index of the active track, -1 when none.
	CurrentIndex int

	// QueueLength is the number of tracks in the queue.
	QueueLength int

	// Mode is the active play mode.
	Mode PlayMode

	// Status is the coarse playback status.
	Status PlaybackStatus

	// Position is the playback position within the current track.
	Position time.Duration

	// Duration is the current track duration as reported by the engine.
	Duration time.Duration
}

// PlayerInfo is the audio engine's report of its own state.
type PlayerInfo struct {
	Position time.Duration
	Duration time.Duration
	Volume   float64
	Status   PlaybackStatus
}

// PersistedPlayback is the playback position stored across restarts.
type PersistedPlayback struct {
	// SongID is the identifier of the track that was playing.
	SongID int64

	// QueueIndex is the queue position that was playing.
	QueueIndex int

	// PositionSecs is the playback offset in seconds.
	PositionSecs float64
}

// Resolution is the outcome of resolving a remote track: a playable local
// audio file and, when available, a cached cover image.
type Resolution struct {
	// AudioPath is the playable file in the audio cache.
	AudioPath string

	// CoverPath is the cached cover image, empty when unavailable.
	CoverPath string

	// FromCache is true when no network fetch was needed.
	FromCache bool

	// Title, Artist and Album are backfilled from embedded tags after a
	// fresh download, empty when the file carried no usable tags.
	Title  string
	Artist string
	Album  string
}
