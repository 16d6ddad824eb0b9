// Package preload tracks the state of background prefetches for the tracks
// adjacent to the one playing. One slot per direction (next, prev), each an
// independent state machine, gates duplicate fetches while still letting a
// different index be fetched immediately after the queue advances.
package preload

import (
	"github.com/halcyon-player/halcyon/internal/domain"
)

// MaxRetries bounds how many times a failed prefetch is retried before the
// direction is left failed until the track or queue context changes.
const MaxRetries = 2

// Phase is the lifecycle stage of a preload slot.
type Phase int

const (
	// PhaseIdle means no prefetch is tracked for the direction.
	PhaseIdle Phase = iota

	// PhasePending means a background fetch is in flight.
	PhasePending

	// PhaseReady means a playable file is cached and waiting.
	PhaseReady

	// PhaseFailed means the fetch failed; the slot carries a retry count.
	PhaseFailed
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePending:
		return "pending"
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// slot is the per-direction state. The index is only meaningful outside
// PhaseIdle; path only in PhaseReady; retries only in PhaseFailed.
type slot struct {
	phase   Phase
	index   int
	path    string
	retries int
}

// Manager holds both direction slots. It is pure and synchronous; the player
// controller owns it and serializes all access.
type Manager struct {
	next slot
	prev slot
}

// NewManager returns a manager with both directions idle.
func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) slotFor(dir domain.Direction) *slot {
	if dir == domain.DirNext {
		return &m.next
	}
	return &m.prev
}

// ShouldPreload reports whether a fetch for index should be issued in the
// given direction. True when the slot is idle, tracks a different index, or
// failed with retry budget left; false when a fetch for that exact index is
// already pending or ready.
func (m *Manager) ShouldPreload(index int, dir domain.Direction) bool {
	s := m.slotFor(dir)
	switch s.phase {
	case PhaseIdle:
		return true
	case PhaseFailed:
		if s.index != index {
			return true
		}
		return s.retries < MaxRetries
	default: // Pending or Ready
		return s.index != index
	}
}

// MarkPending records that a fetch for index has been issued. A retry of a
// failed fetch keeps its accumulated retry count.
func (m *Manager) MarkPending(index int, dir domain.Direction) {
	s := m.slotFor(dir)
	carried := 0
	if s.phase == PhaseFailed && s.index == index {
		carried = s.retries
	}
	*s = slot{phase: PhasePending, index: index, retries: carried}
}

// MarkReady records a completed fetch with its playable path.
func (m *Manager) MarkReady(index int, path string, dir domain.Direction) {
	*m.slotFor(dir) = slot{phase: PhaseReady, index: index, path: path}
}

// MarkFailed records a failed fetch and returns the new retry count. The
// count accumulates across failures of the same index and restarts at one
// when the index changed.
func (m *Manager) MarkFailed(index int, dir domain.Direction) int {
	s := m.slotFor(dir)
	retries := 1
	if s.index == index && s.phase != PhaseIdle {
		retries = s.retries + 1
	}
	*s = slot{phase: PhaseFailed, index: index, retries: retries}
	return retries
}

// ReadyFor returns the cached path only when the ready slot tracks exactly
// the queried index. This prevents consuming a preload computed for an
// adjacency that is no longer current.
func (m *Manager) ReadyFor(index int, dir domain.Direction) (string, bool) {
	s := m.slotFor(dir)
	if s.phase == PhaseReady && s.index == index {
		return s.path, true
	}
	return "", false
}

// InvalidateStale resets any slot whose tracked index no longer matches the
// freshly computed expected adjacency. Call after every track start and
// queue mutation. A direction with no expected index is always reset.
func (m *Manager) InvalidateStale(expectedNext int, hasNext bool, expectedPrev int, hasPrev bool) {
	if m.next.phase != PhaseIdle && (!hasNext || m.next.index != expectedNext) {
		m.next = slot{}
	}
	if m.prev.phase != PhaseIdle && (!hasPrev || m.prev.index != expectedPrev) {
		m.prev = slot{}
	}
}

// Reset forces both directions back to idle. Used on play-mode changes and
// destructive queue edits.
func (m *Manager) Reset() {
	m.next = slot{}
	m.prev = slot{}
}

// PhaseOf returns the current phase of a direction, for logging and tests.
func (m *Manager) PhaseOf(dir domain.Direction) Phase {
	return m.slotFor(dir).phase
}
