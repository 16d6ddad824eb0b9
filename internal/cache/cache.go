// Package cache implements the content-addressed disk cache for resolved
// audio files and cover images. Entries are keyed by remote identifier:
// audio lives at <root>/audio/<id>.<ext>, covers at <root>/covers/cover_<id>.<ext>.
// The extension records the real format sniffed from the downloaded bytes,
// and existence of the file is the sole cache-hit test.
//
// Writes go to a temporary file first and are renamed into place, so a
// half-finished download is never mistaken for a cache hit and concurrent
// writers for different identifiers never conflict.
package cache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// AudioExtensions are the audio formats the cache recognizes, in lookup order.
var AudioExtensions = []string{"mp3", "flac", "m4a", "aac", "ogg", "wav"}

// ImageExtensions are the cover formats the cache recognizes, in lookup order.
var ImageExtensions = []string{"jpg", "png", "gif", "webp", "bmp"}

// Cache is a directory pair holding cached audio and cover files.
type Cache struct {
	audioDir string
	coverDir string
}

// New creates the cache directories under root if needed.
func New(root string) (*Cache, error) {
	c := &Cache{
		audioDir: filepath.Join(root, "audio"),
		coverDir: filepath.Join(root, "covers"),
	}
	for _, dir := range []string{c.audioDir, c.coverDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
		}
	}
	return c, nil
}

// AudioDir returns the audio cache directory.
func (c *Cache) AudioDir() string { return c.audioDir }

// CoverDir returns the cover cache directory.
func (c *Cache) CoverDir() string { return c.coverDir }

func audioStem(remoteID int64) string { return fmt.Sprintf("%d", remoteID) }
func coverStem(remoteID int64) string { return fmt.Sprintf("cover_%d", remoteID) }

func findCached(dir, stem string, exts []string) (string, bool) {
	for _, ext := range exts {
		path := filepath.Join(dir, stem+"."+ext)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// FindAudio returns the cached audio file for a remote identifier, trying
// every supported extension.
func (c *Cache) FindAudio(remoteID int64) (string, bool) {
	return findCached(c.audioDir, audioStem(remoteID), AudioExtensions)
}

// FindCover returns the cached cover image for a remote identifier.
func (c *Cache) FindCover(remoteID int64) (string, bool) {
	return findCached(c.coverDir, coverStem(remoteID), ImageExtensions)
}

// TempAudioPath returns a fresh download destination inside the audio cache
// directory. Temp files live next to their final location so the commit
// rename never crosses filesystems.
func (c *Cache) TempAudioPath() string {
	return filepath.Join(c.audioDir, ".tmp-"+uuid.NewString())
}

// TempCoverPath returns a fresh download destination inside the cover cache
// directory.
func (c *Cache) TempCoverPath() string {
	return filepath.Join(c.coverDir, ".tmp-"+uuid.NewString())
}

// CommitAudio sniffs the real audio format of a downloaded temp file and
// renames it to its final content-addressed path. The temp file is removed
// on failure.
func (c *Cache) CommitAudio(remoteID int64, tempPath string) (string, error) {
	ext, err := sniffFile(tempPath, DetectAudioFormat)
	if err != nil {
		_ = os.Remove(tempPath)
		return "", err
	}
	final := filepath.Join(c.audioDir, audioStem(remoteID)+"."+ext)
	if err := os.Rename(tempPath, final); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("finalize audio cache entry: %w", err)
	}
	return final, nil
}

// CommitCover sniffs the real image format of a downloaded temp file and
// renames it to its final content-addressed path.
func (c *Cache) CommitCover(remoteID int64, tempPath string) (string, error) {
	ext, err := sniffFile(tempPath, DetectImageFormat)
	if err != nil {
		_ = os.Remove(tempPath)
		return "", err
	}
	final := filepath.Join(c.coverDir, coverStem(remoteID)+"."+ext)
	if err := os.Rename(tempPath, final); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("finalize cover cache entry: %w", err)
	}
	return final, nil
}

func sniffFile(path string, detect func([]byte) string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open downloaded file: %w", err)
	}
	defer f.Close()

	head := make([]byte, 16)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("read downloaded file: %w", err)
	}
	return detect(head[:n]), nil
}

// DetectAudioFormat returns the file extension for the audio format found in
// the leading bytes. Unknown data falls back to "mp3".
func DetectAudioFormat(b []byte) string {
	switch {
	case len(b) >= 3 && b[0] == 'I' && b[1] == 'D' && b[2] == '3':
		return "mp3"
	case len(b) >= 2 && b[0] == 0xFF && b[1]&0xE0 == 0xE0:
		return "mp3" // bare MPEG frame sync
	case len(b) >= 4 && string(b[:4]) == "fLaC":
		return "flac"
	case len(b) >= 4 && string(b[:4]) == "OggS":
		return "ogg"
	case len(b) >= 12 && string(b[4:8]) == "ftyp":
		return "m4a"
	case len(b) >= 12 && string(b[:4]) == "RIFF" && string(b[8:12]) == "WAVE":
		return "wav"
	default:
		return "mp3"
	}
}

// DetectImageFormat returns the file extension for the image format found in
// the leading bytes. Unknown data falls back to "jpg".
func DetectImageFormat(b []byte) string {
	switch {
	case len(b) >= 8 && b[0] == 0x89 && string(b[1:4]) == "PNG":
		return "png"
	case len(b) >= 3 && b[0] == 0xFF && b[1] == 0xD8 && b[2] == 0xFF:
		return "jpg"
	case len(b) >= 4 && string(b[:4]) == "GIF8":
		return "gif"
	case len(b) >= 12 && string(b[:4]) == "RIFF" && string(b[8:12]) == "WEBP":
		return "webp"
	case len(b) >= 2 && b[0] == 'B' && b[1] == 'M':
		return "bmp"
	default:
		return "jpg"
	}
}
