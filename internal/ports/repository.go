package ports

import (
	"github.com/halcyon-player/halcyon/internal/domain"
)

// Store is the persistent on-disk store for playback state, play history and
// the queue. Implementations must be safe for concurrent use; the engine
// calls them from background goroutines and never blocks playback on them.
type Store interface {
	// UpdatePlaybackPosition persists the current playback position so a
	// restart can resume where the user left off.
	UpdatePlaybackPosition(songID int64, queueIndex int, positionSecs float64) error

	// LoadPlaybackPosition returns the last persisted position, or nil when
	// none was saved.
	LoadPlaybackPosition() (*domain.PersistedPlayback, error)

	// RecordPlay appends a play-history event. completed marks a track that
	// finished naturally rather than being skipped.
	RecordPlay(songID int64, listenedSecs int64, completed bool) error

	// SaveQueue replaces the persisted queue with the given tracks.
	SaveQueue(tracks []domain.Track) error

	// LoadQueue returns the persisted queue, empty (not an error) when none
	// was saved.
	LoadQueue() ([]domain.Track, error)

	// UpsertRemoteTrack stores or refreshes a remote track's metadata and
	// resolved paths, returning its stable local row id.
	UpsertRemoteTrack(track *domain.Track) (int64, error)
}
