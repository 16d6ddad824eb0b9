// Package resolver turns remote-only queue entries into locally playable
// files. Resolution is cache-first: the content-addressed disk cache is
// consulted before any network call, so repeated plays and preloads of the
// same track are free after the first fetch.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dhowden/tag"

	"github.com/halcyon-player/halcyon/internal/cache"
	"github.com/halcyon-player/halcyon/internal/domain"
	"github.com/halcyon-player/halcyon/internal/ports"
)

// Resolver fetches remote tracks and their covers into the disk cache.
type Resolver struct {
	logger   *slog.Logger
	provider ports.ContentProvider
	cache    *cache.Cache
}

// New creates a resolver.
func New(logger *slog.Logger, provider ports.ContentProvider, c *cache.Cache) *Resolver {
	return &Resolver{logger: logger, provider: provider, cache: c}
}

// NeedsResolution reports whether a track must be resolved before it can be
// handed to the audio engine: it references remote content and carries no
// playable local file yet.
func (r *Resolver) NeedsResolution(track domain.Track) bool {
	if !track.IsRemote() {
		return false
	}
	if _, ok := r.LocalPath(track); ok {
		return false
	}
	return true
}

// LocalPath returns the playable file for a track without touching the
// network: the track's own file path for local tracks, the cache entry for
// remote ones. The second return value is false when nothing playable exists
// on disk.
func (r *Resolver) LocalPath(track domain.Track) (string, bool) {
	if id, ok := track.RemoteID(); ok {
		return r.cache.FindAudio(id)
	}
	if track.FilePath == "" {
		return "", false
	}
	if _, err := os.Stat(track.FilePath); err != nil {
		return "", false
	}
	return track.FilePath, true
}

// Resolve produces a playable file path (and cover path when available) for
// a remote track. The audio fetch is the operation's outcome; the cover is
// resolved independently and its failure never fails the resolution.
func (r *Resolver) Resolve(ctx context.Context, track domain.Track) (domain.Resolution, error) {
	remoteID, ok := track.RemoteID()
	if !ok {
		return domain.Resolution{}, domain.ErrNotRemote
	}

	coverPath := r.resolveCover(ctx, remoteID, track.CoverPath)

	if path, hit := r.cache.FindAudio(remoteID); hit {
		r.logger.Debug("audio cache hit",
			slog.Int64("remote_id", remoteID),
			slog.String("path", path))
		return domain.Resolution{AudioPath: path, CoverPath: coverPath, FromCache: true}, nil
	}

	url, err := r.provider.StreamURL(ctx, remoteID)
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("%w: stream url for %d: %v",
			domain.ErrResolutionFailed, remoteID, err)
	}
	if url == "" {
		return domain.Resolution{}, fmt.Errorf("%w: %v for %d",
			domain.ErrResolutionFailed, domain.ErrNoStreamURL, remoteID)
	}

	temp := r.cache.TempAudioPath()
	if err := r.provider.Download(ctx, url, temp); err != nil {
		_ = os.Remove(temp)
		return domain.Resolution{}, fmt.Errorf("%w: download %d: %v",
			domain.ErrResolutionFailed, remoteID, err)
	}

	final, err := r.cache.CommitAudio(remoteID, temp)
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("%w: commit %d: %v",
			domain.ErrResolutionFailed, remoteID, err)
	}

	r.logger.Info("resolved remote track",
		slog.Int64("remote_id", remoteID),
		slog.String("path", final))

	res := domain.Resolution{AudioPath: final, CoverPath: coverPath}
	r.backfillTags(final, &res)
	return res, nil
}

// ResolveCover returns a local cover path for the track, fetching into the
// cache when the track only carries a remote cover reference. Returns false
// when no cover could be produced.
func (r *Resolver) ResolveCover(ctx context.Context, track domain.Track) (string, bool) {
	remoteID, ok := track.RemoteID()
	if !ok {
		if track.CoverPath == "" || isHTTPURL(track.CoverPath) {
			return "", false
		}
		if _, err := os.Stat(track.CoverPath); err != nil {
			return "", false
		}
		return track.CoverPath, true
	}

	path := r.resolveCover(ctx, remoteID, track.CoverPath)
	return path, path != ""
}

// resolveCover returns a local cover path for the track, downloading and
// caching it when needed. Best effort: any failure is logged and yields "".
func (r *Resolver) resolveCover(ctx context.Context, remoteID int64, coverRef string) string {
	if path, hit := r.cache.FindCover(remoteID); hit {
		return path
	}

	url := ""
	if isHTTPURL(coverRef) {
		url = coverRef
	} else {
		fetched, err := r.provider.CoverURL(ctx, remoteID)
		if err != nil {
			r.logger.Debug("cover url lookup failed",
				slog.Int64("remote_id", remoteID),
				slog.Any("error", err))
			return ""
		}
		url = fetched
	}
	if url == "" {
		return ""
	}

	temp := r.cache.TempCoverPath()
	if err := r.provider.Download(ctx, url, temp); err != nil {
		_ = os.Remove(temp)
		r.logger.Debug("cover download failed",
			slog.Int64("remote_id", remoteID),
			slog.Any("error", err))
		return ""
	}

	final, err := r.cache.CommitCover(remoteID, temp)
	if err != nil {
		r.logger.Debug("cover commit failed",
			slog.Int64("remote_id", remoteID),
			slog.Any("error", err))
		return ""
	}
	return final
}

// backfillTags reads embedded metadata from a freshly downloaded file so the
// caller can fill in missing display fields. Missing or unreadable tags are
// fine.
func (r *Resolver) backfillTags(path string, res *domain.Resolution) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		if !errors.Is(err, tag.ErrNoTagsFound) {
			r.logger.Debug("tag read failed", slog.String("path", path), slog.Any("error", err))
		}
		return
	}
	res.Title = meta.Title()
	res.Artist = meta.Artist()
	res.Album = meta.Album()
}

func isHTTPURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}
