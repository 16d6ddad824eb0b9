package ports

import (
	"context"

	"github.com/halcyon-player/halcyon/internal/domain"
)

// ContentProvider is the remote metadata/stream-URL service. The engine only
// needs three operations from it; the wire protocol behind them is the
// adapter's business.
//
// All methods honor context cancellation; downloads may take long.
type ContentProvider interface {
	// StreamURL returns a short-lived streamable URL for a remote track.
	StreamURL(ctx context.Context, remoteID int64) (string, error)

	// CoverURL returns the cover image URL for a remote track, or an empty
	// string when the track has no cover.
	CoverURL(ctx context.Context, remoteID int64) (string, error)

	// Download streams the content at url into destPath, creating or
	// truncating the file. The caller owns destPath cleanup on failure.
	Download(ctx context.Context, url, destPath string) error
}

// LyricsPrefetcher warms the lyrics cache for a track. Lyrics rendering is
// an external pipeline; the engine fires a prefetch on track start and
// forgets about it.
type LyricsPrefetcher interface {
	Prefetch(track domain.Track)
}
