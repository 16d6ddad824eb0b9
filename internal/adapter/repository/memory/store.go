// Package memory provides an in-memory Store implementation. It holds
// playback state, play history and the saved queue in plain maps and slices,
// which is what the service tests run against.
package memory

import (
	"errors"
	"sync"

	"github.com/halcyon-player/halcyon/internal/domain"
	"github.com/halcyon-player/halcyon/internal/ports"
)

var errInjected = errors.New("injected write failure")

// PlayRecord is one completed or abandoned listen (for testing).
type PlayRecord struct {
	SongID       int64
	ListenedSecs int64
	Completed    bool
}

// Store implements ports.Store in memory.
//
// Thread-safe: all operations are protected by a sync.RWMutex.
type Store struct {
	mu sync.RWMutex

	playback *domain.PersistedPlayback
	queue    []domain.Track
	plays    []PlayRecord
	remote   map[int64]domain.Track
	nextID   int64

	failWrites bool
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		remote: make(map[int64]domain.Track),
		nextID: 1,
	}
}

// SetFailWrites makes every mutating operation fail (for testing).
func (s *Store) SetFailWrites(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = fail
}

// UpdatePlaybackPosition records where playback currently stands.
func (s *Store) UpdatePlaybackPosition(songID int64, queueIndex int, positionSecs float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWrites {
		return domain.NewStoreError("update_playback_position", errInjected)
	}
	s.playback = &domain.PersistedPlayback{
		SongID:       songID,
		QueueIndex:   queueIndex,
		PositionSecs: positionSecs,
	}
	return nil
}

// LoadPlaybackPosition returns the last saved position, or nil when none was
// recorded.
func (s *Store) LoadPlaybackPosition() (*domain.PersistedPlayback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.playback == nil {
		return nil, nil
	}
	pb := *s.playback
	return &pb, nil
}

// RecordPlay appends one play history entry.
func (s *Store) RecordPlay(songID, listenedSecs int64, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWrites {
		return domain.NewStoreError("record_play", errInjected)
	}
	s.plays = append(s.plays, PlayRecord{SongID: songID, ListenedSecs: listenedSecs, Completed: completed})
	return nil
}

// SaveQueue replaces the persisted queue.
func (s *Store) SaveQueue(tracks []domain.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWrites {
		return domain.NewStoreError("save_queue", errInjected)
	}
	s.queue = make([]domain.Track, len(tracks))
	copy(s.queue, tracks)
	return nil
}

// LoadQueue returns the persisted queue. An empty store yields an empty slice.
func (s *Store) LoadQueue() ([]domain.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Track, len(s.queue))
	copy(out, s.queue)
	return out, nil
}

// UpsertRemoteTrack stores or refreshes a remote track's metadata and returns
// its row ID.
func (s *Store) UpsertRemoteTrack(track *domain.Track) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failWrites {
		return 0, domain.NewStoreError("upsert_remote_track", errInjected)
	}

	remoteID, ok := track.RemoteID()
	if !ok {
		return 0, domain.ErrNotRemote
	}
	s.remote[remoteID] = *track

	id := s.nextID
	s.nextID++
	return id, nil
}

// Plays returns the recorded play history (for testing).
func (s *Store) Plays() []PlayRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]PlayRecord, len(s.plays))
	copy(out, s.plays)
	return out
}

// RemoteTrack returns a stored remote track by its remote ID (for testing).
func (s *Store) RemoteTrack(remoteID int64) (domain.Track, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.remote[remoteID]
	return t, ok
}

var _ ports.Store = (*Store)(nil)
