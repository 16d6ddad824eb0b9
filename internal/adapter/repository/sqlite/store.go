// Package sqlite provides the persistent Store implementation backed by a
// SQLite database. It owns the schema for the playback state, play history,
// saved queue and cached remote track metadata.
package sqlite

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/halcyon-player/halcyon/internal/domain"
	"github.com/halcyon-player/halcyon/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS songs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	remote_id INTEGER UNIQUE,
	file_path TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	artist TEXT NOT NULL DEFAULT '',
	album TEXT NOT NULL DEFAULT '',
	duration_secs INTEGER NOT NULL DEFAULT 0,
	cover_path TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS play_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	song_id INTEGER NOT NULL,
	listened_secs INTEGER NOT NULL,
	completed INTEGER NOT NULL,
	played_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS playback_state (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	song_id INTEGER NOT NULL,
	queue_index INTEGER NOT NULL,
	position_secs REAL NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS queue_entries (
	position INTEGER PRIMARY KEY,
	song_id INTEGER NOT NULL,
	file_path TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	artist TEXT NOT NULL DEFAULT '',
	album TEXT NOT NULL DEFAULT '',
	duration_secs INTEGER NOT NULL DEFAULT 0,
	cover_path TEXT NOT NULL DEFAULT ''
);
`

// Store implements ports.Store on SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// The path may be ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, domain.NewStoreError("open", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, domain.NewStoreError("open", err)
	}
	// SQLite handles one writer at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, domain.NewStoreError("migrate", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpdatePlaybackPosition upserts the single playback state row.
func (s *Store) UpdatePlaybackPosition(songID int64, queueIndex int, positionSecs float64) error {
	query := `
		INSERT INTO playback_state (id, song_id, queue_index, position_secs, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			song_id = excluded.song_id,
			queue_index = excluded.queue_index,
			position_secs = excluded.position_secs,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.Exec(query, songID, queueIndex, positionSecs, time.Now()); err != nil {
		return domain.NewStoreError("update_playback_position", err)
	}
	return nil
}

// LoadPlaybackPosition returns the saved playback state, or nil when none has
// been recorded yet.
func (s *Store) LoadPlaybackPosition() (*domain.PersistedPlayback, error) {
	var pb domain.PersistedPlayback
	err := s.db.QueryRow(
		`SELECT song_id, queue_index, position_secs FROM playback_state WHERE id = 1`,
	).Scan(&pb.SongID, &pb.QueueIndex, &pb.PositionSecs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewStoreError("load_playback_position", err)
	}
	return &pb, nil
}

// RecordPlay appends one play history row.
func (s *Store) RecordPlay(songID, listenedSecs int64, completed bool) error {
	query := `INSERT INTO play_history (song_id, listened_secs, completed) VALUES (?, ?, ?)`
	if _, err := s.db.Exec(query, songID, listenedSecs, completed); err != nil {
		return domain.NewStoreError("record_play", err)
	}
	return nil
}

// SaveQueue replaces the persisted queue atomically.
func (s *Store) SaveQueue(tracks []domain.Track) error {
	tx, err := s.db.Begin()
	if err != nil {
		return domain.NewStoreError("save_queue", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM queue_entries`); err != nil {
		return domain.NewStoreError("save_queue", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO queue_entries (position, song_id, file_path, title, artist, album, duration_secs, cover_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return domain.NewStoreError("save_queue", err)
	}
	defer stmt.Close()

	for i, t := range tracks {
		_, err := stmt.Exec(i, t.ID, t.FilePath, t.Title, t.Artist, t.Album, int64(t.Duration.Seconds()), t.CoverPath)
		if err != nil {
			return domain.NewStoreError("save_queue", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStoreError("save_queue", err)
	}
	return nil
}

// LoadQueue returns the persisted queue in position order.
func (s *Store) LoadQueue() ([]domain.Track, error) {
	rows, err := s.db.Query(`
		SELECT song_id, file_path, title, artist, album, duration_secs, cover_path
		FROM queue_entries ORDER BY position ASC
	`)
	if err != nil {
		return nil, domain.NewStoreError("load_queue", err)
	}
	defer rows.Close()

	tracks := []domain.Track{}
	for rows.Next() {
		var t domain.Track
		var durationSecs int64
		if err := rows.Scan(&t.ID, &t.FilePath, &t.Title, &t.Artist, &t.Album, &durationSecs, &t.CoverPath); err != nil {
			return nil, domain.NewStoreError("load_queue", err)
		}
		t.Duration = time.Duration(durationSecs) * time.Second
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("load_queue", err)
	}
	return tracks, nil
}

// UpsertRemoteTrack stores or refreshes a remote track's metadata, keyed by
// its remote ID, and returns the local row ID.
func (s *Store) UpsertRemoteTrack(track *domain.Track) (int64, error) {
	remoteID, ok := track.RemoteID()
	if !ok {
		return 0, domain.ErrNotRemote
	}

	query := `
		INSERT INTO songs (remote_id, file_path, title, artist, album, duration_secs, cover_path, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(remote_id) DO UPDATE SET
			file_path = excluded.file_path,
			title = excluded.title,
			artist = excluded.artist,
			album = excluded.album,
			duration_secs = excluded.duration_secs,
			cover_path = excluded.cover_path,
			updated_at = excluded.updated_at
	`
	_, err := s.db.Exec(query,
		remoteID,
		track.FilePath,
		track.Title,
		track.Artist,
		track.Album,
		int64(track.Duration.Seconds()),
		track.CoverPath,
		time.Now(),
	)
	if err != nil {
		return 0, domain.NewStoreError("upsert_remote_track", err)
	}

	var id int64
	err = s.db.QueryRow(`SELECT id FROM songs WHERE remote_id = ?`, remoteID).Scan(&id)
	if err != nil {
		return 0, domain.NewStoreError("upsert_remote_track", err)
	}
	return id, nil
}

var _ ports.Store = (*Store)(nil)
