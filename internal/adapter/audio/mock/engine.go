// Package mock provides an in-memory implementation of the AudioEngine
// interface. It simulates playback and the gapless preload slots without
// touching any audio hardware, which is what the service tests run against.
package mock

import (
	"sync"
	"time"

	"github.com/halcyon-player/halcyon/internal/domain"
	"github.com/halcyon-player/halcyon/internal/ports"
)

// Engine simulates an audio backend. It tracks the current file, position and
// the two preload slots, and records every path handed to Play so tests can
// assert on playback order.
//
// Thread-safety: safe for concurrent use.
type Engine struct {
	mu sync.RWMutex

	current  string
	position time.Duration
	duration time.Duration
	volume   float64
	status   domain.PlaybackStatus

	preloadedNext string
	preloadedPrev string

	played []string

	// failure injection
	failPlay    bool
	failPreload bool
	failSeek    bool
}

// NewEngine creates a mock engine with a default simulated track length of
// three minutes.
func NewEngine() *Engine {
	return &Engine{
		duration: 3 * time.Minute,
		volume:   1.0,
		status:   domain.StatusStopped,
	}
}

// SetFailPlay makes subsequent Play calls fail.
func (m *Engine) SetFailPlay(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPlay = fail
}

// SetFailPreload makes subsequent PreloadNext/PreloadPrev calls fail.
func (m *Engine) SetFailPreload(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPreload = fail
}

// SetFailSeek makes subsequent Seek calls fail.
func (m *Engine) SetFailSeek(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSeek = fail
}

// SetDuration overrides the simulated track length for loads that follow.
func (m *Engine) SetDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration = d
}

// Play loads a file and starts simulated playback from the beginning.
// Loading a new file drops both preload slots.
func (m *Engine) Play(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failPlay {
		return domain.NewEngineError("play", path, domain.ErrPlaybackFailed)
	}
	if path == "" {
		return domain.NewEngineError("play", path, domain.ErrTrackNotFound)
	}

	m.current = path
	m.position = 0
	m.status = domain.StatusPlaying
	m.preloadedNext = ""
	m.preloadedPrev = ""
	m.played = append(m.played, path)
	return nil
}

// Pause pauses playback. Pausing while not playing is a no-op.
func (m *Engine) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == domain.StatusPlaying {
		m.status = domain.StatusPaused
	}
	return nil
}

// Resume resumes paused playback.
func (m *Engine) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status == domain.StatusPaused {
		m.status = domain.StatusPlaying
	}
	return nil
}

// Stop stops playback and clears the loaded file and both preload slots.
func (m *Engine) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = ""
	m.position = 0
	m.status = domain.StatusStopped
	m.preloadedNext = ""
	m.preloadedPrev = ""
	return nil
}

// Seek sets the simulated position, clamped to the track duration.
func (m *Engine) Seek(position time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failSeek {
		return domain.NewEngineError("seek", m.current, domain.ErrPlaybackFailed)
	}
	if m.current == "" {
		return domain.NewEngineError("seek", "", domain.ErrTrackNotFound)
	}
	if position < 0 {
		position = 0
	}
	if position > m.duration {
		position = m.duration
	}
	m.position = position
	return nil
}

// PreloadNext stages a file in the forward slot.
func (m *Engine) PreloadNext(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failPreload {
		return domain.NewEngineError("preload_next", path, domain.ErrPreloadFailed)
	}
	m.preloadedNext = path
	return nil
}

// PreloadPrev stages a file in the backward slot.
func (m *Engine) PreloadPrev(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failPreload {
		return domain.NewEngineError("preload_prev", path, domain.ErrPreloadFailed)
	}
	m.preloadedPrev = path
	return nil
}

// SwitchToNext promotes the forward preload slot to the playing track.
// Returns false when the slot is empty.
func (m *Engine) SwitchToNext() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.preloadedNext == "" {
		return false
	}
	m.current = m.preloadedNext
	m.preloadedNext = ""
	m.preloadedPrev = ""
	m.position = 0
	m.status = domain.StatusPlaying
	m.played = append(m.played, m.current)
	return true
}

// SwitchToPrev promotes the backward preload slot to the playing track.
// Returns false when the slot is empty.
func (m *Engine) SwitchToPrev() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.preloadedPrev == "" {
		return false
	}
	m.current = m.preloadedPrev
	m.preloadedNext = ""
	m.preloadedPrev = ""
	m.position = 0
	m.status = domain.StatusPlaying
	m.played = append(m.played, m.current)
	return true
}

// Info returns the simulated player state.
func (m *Engine) Info() domain.PlayerInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return domain.PlayerInfo{
		Position: m.position,
		Duration: m.duration,
		Volume:   m.volume,
		Status:   m.status,
	}
}

// CurrentPath returns the file currently loaded (for testing).
func (m *Engine) CurrentPath() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// PreloadedNext returns the staged forward path (for testing).
func (m *Engine) PreloadedNext() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.preloadedNext
}

// PreloadedPrev returns the staged backward path (for testing).
func (m *Engine) PreloadedPrev() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.preloadedPrev
}

// Played returns every path that has started playing, in order (for testing).
func (m *Engine) Played() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.played))
	copy(out, m.played)
	return out
}

// SimulateProgress advances the simulated position. When the position reaches
// the track duration the engine stops, which is how tests trigger the
// natural-finish path in the controller.
func (m *Engine) SimulateProgress(delta time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != domain.StatusPlaying {
		return
	}
	m.position += delta
	if m.position >= m.duration {
		m.position = m.duration
		m.status = domain.StatusStopped
	}
}

// SimulateFinish jumps the position to the end of the track.
func (m *Engine) SimulateFinish() {
	m.SimulateProgress(1<<62 - 1)
}

var _ ports.AudioEngine = (*Engine)(nil)
