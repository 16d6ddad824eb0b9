package preload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-player/halcyon/internal/domain"
)

func TestShouldPreloadIdleSlot(t *testing.T) {
	m := NewManager()
	assert.True(t, m.ShouldPreload(3, domain.DirNext))
	assert.True(t, m.ShouldPreload(1, domain.DirPrev))
}

func TestShouldPreloadSuppressedWhilePendingOrReady(t *testing.T) {
	m := NewManager()

	m.MarkPending(3, domain.DirNext)
	assert.False(t, m.ShouldPreload(3, domain.DirNext), "pending same index")
	assert.True(t, m.ShouldPreload(4, domain.DirNext), "pending different index")

	m.MarkReady(3, "/cache/3.mp3", domain.DirNext)
	assert.False(t, m.ShouldPreload(3, domain.DirNext), "ready same index")
	assert.True(t, m.ShouldPreload(4, domain.DirNext), "ready different index")
}

func TestDirectionsAreIndependent(t *testing.T) {
	m := NewManager()
	m.MarkPending(3, domain.DirNext)

	assert.Equal(t, PhasePending, m.PhaseOf(domain.DirNext))
	assert.Equal(t, PhaseIdle, m.PhaseOf(domain.DirPrev))
	assert.True(t, m.ShouldPreload(3, domain.DirPrev))
}

func TestRetryBudget(t *testing.T) {
	m := NewManager()

	// First attempt.
	m.MarkPending(5, domain.DirNext)
	retries := m.MarkFailed(5, domain.DirNext)
	assert.Equal(t, 1, retries)
	require.True(t, m.ShouldPreload(5, domain.DirNext), "one retry left")

	// Retry keeps the accumulated count.
	m.MarkPending(5, domain.DirNext)
	retries = m.MarkFailed(5, domain.DirNext)
	assert.Equal(t, 2, retries)
	assert.False(t, m.ShouldPreload(5, domain.DirNext), "budget exhausted")

	// A different index is always allowed.
	assert.True(t, m.ShouldPreload(6, domain.DirNext))
}

func TestFailedCountRestartsOnNewIndex(t *testing.T) {
	m := NewManager()

	m.MarkPending(5, domain.DirNext)
	m.MarkFailed(5, domain.DirNext)
	m.MarkPending(5, domain.DirNext)
	m.MarkFailed(5, domain.DirNext)
	assert.False(t, m.ShouldPreload(5, domain.DirNext))

	m.MarkPending(7, domain.DirNext)
	retries := m.MarkFailed(7, domain.DirNext)
	assert.Equal(t, 1, retries)
	assert.True(t, m.ShouldPreload(7, domain.DirNext))
}

func TestReadyForExactIndexOnly(t *testing.T) {
	m := NewManager()
	m.MarkReady(3, "/cache/3.mp3", domain.DirNext)

	path, ok := m.ReadyFor(3, domain.DirNext)
	require.True(t, ok)
	assert.Equal(t, "/cache/3.mp3", path)

	_, ok = m.ReadyFor(4, domain.DirNext)
	assert.False(t, ok, "different index")
	_, ok = m.ReadyFor(3, domain.DirPrev)
	assert.False(t, ok, "different direction")
}

func TestInvalidateStale(t *testing.T) {
	m := NewManager()
	m.MarkReady(3, "/cache/3.mp3", domain.DirNext)
	m.MarkReady(1, "/cache/1.mp3", domain.DirPrev)

	// Matching adjacency keeps both slots.
	m.InvalidateStale(3, true, 1, true)
	assert.Equal(t, PhaseReady, m.PhaseOf(domain.DirNext))
	assert.Equal(t, PhaseReady, m.PhaseOf(domain.DirPrev))

	// Adjacency moved on: next retargeted, prev no longer exists.
	m.InvalidateStale(4, true, 0, false)
	assert.Equal(t, PhaseIdle, m.PhaseOf(domain.DirNext))
	assert.Equal(t, PhaseIdle, m.PhaseOf(domain.DirPrev))
}

func TestInvalidateStaleLeavesIdleAlone(t *testing.T) {
	m := NewManager()
	m.InvalidateStale(2, true, 0, true)
	assert.Equal(t, PhaseIdle, m.PhaseOf(domain.DirNext))
	assert.Equal(t, PhaseIdle, m.PhaseOf(domain.DirPrev))
}

func TestReset(t *testing.T) {
	m := NewManager()
	m.MarkReady(3, "/cache/3.mp3", domain.DirNext)
	m.MarkPending(1, domain.DirPrev)

	m.Reset()
	assert.Equal(t, PhaseIdle, m.PhaseOf(domain.DirNext))
	assert.Equal(t, PhaseIdle, m.PhaseOf(domain.DirPrev))
	_, ok := m.ReadyFor(3, domain.DirNext)
	assert.False(t, ok)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "pending", PhasePending.String())
	assert.Equal(t, "ready", PhaseReady.String())
	assert.Equal(t, "failed", PhaseFailed.String())
}
