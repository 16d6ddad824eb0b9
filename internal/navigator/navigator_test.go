package navigator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-player/halcyon/internal/domain"
)

func TestNextIndexSequential(t *testing.T) {
	tests := []struct {
		name     string
		queueLen int
		current  int
		want     int
		wantOK   bool
	}{
		{name: "middle of queue", queueLen: 5, current: 2, want: 3, wantOK: true},
		{name: "first track", queueLen: 5, current: 0, want: 1, wantOK: true},
		{name: "last track has no next", queueLen: 5, current: 4, wantOK: false},
		{name: "single track has no next", queueLen: 1, current: 0, wantOK: false},
		{name: "empty queue", queueLen: 0, current: 0, wantOK: false},
		{name: "nothing playing acts as index zero", queueLen: 3, current: -1, want: 1, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav := New(tt.queueLen, tt.current, domain.ModeSequential, &ShuffleCache{})
			got, ok := nav.NextIndex()
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestPrevIndexSequential(t *testing.T) {
	tests := []struct {
		name     string
		queueLen int
		current  int
		want     int
		wantOK   bool
	}{
		{name: "middle of queue", queueLen: 5, current: 2, want: 1, wantOK: true},
		{name: "first track has no prev", queueLen: 5, current: 0, wantOK: false},
		{name: "empty queue", queueLen: 0, current: 0, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav := New(tt.queueLen, tt.current, domain.ModeSequential, &ShuffleCache{})
			got, ok := nav.PrevIndex()
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestLoopAllWrapsBothWays(t *testing.T) {
	nav := New(4, 3, domain.ModeLoopAll, &ShuffleCache{})
	next, ok := nav.NextIndex()
	require.True(t, ok)
	assert.Equal(t, 0, next)

	nav = New(4, 0, domain.ModeLoopAll, &ShuffleCache{})
	prev, ok := nav.PrevIndex()
	require.True(t, ok)
	assert.Equal(t, 3, prev)
}

func TestLoopAllSingleTrack(t *testing.T) {
	nav := New(1, 0, domain.ModeLoopAll, &ShuffleCache{})

	next, ok := nav.NextIndex()
	require.True(t, ok)
	assert.Equal(t, 0, next)

	prev, ok := nav.PrevIndex()
	require.True(t, ok)
	assert.Equal(t, 0, prev)
}

func TestLoopOneReturnsCurrent(t *testing.T) {
	nav := New(5, 2, domain.ModeLoopOne, &ShuffleCache{})

	next, ok := nav.NextIndex()
	require.True(t, ok)
	assert.Equal(t, 2, next)

	prev, ok := nav.PrevIndex()
	require.True(t, ok)
	assert.Equal(t, 2, prev)
	assert.True(t, nav.IsLoopOne())
}

func TestShuffleUsesCache(t *testing.T) {
	cache := &ShuffleCache{}
	cache.Regenerate(10)

	cachedNext, ok := cache.Next()
	require.True(t, ok)
	cachedPrev, ok := cache.Prev()
	require.True(t, ok)

	nav := New(10, 4, domain.ModeShuffle, cache)

	// Repeated reads must return the memoized values, never fresh draws.
	for i := 0; i < 20; i++ {
		next, ok := nav.NextIndex()
		require.True(t, ok)
		assert.Equal(t, cachedNext, next)

		prev, ok := nav.PrevIndex()
		require.True(t, ok)
		assert.Equal(t, cachedPrev, prev)
	}
}

func TestShuffleFallbackWithoutCache(t *testing.T) {
	cache := &ShuffleCache{}
	nav := New(10, 4, domain.ModeShuffle, cache)

	next, ok := nav.NextIndex()
	require.True(t, ok)
	assert.GreaterOrEqual(t, next, 0)
	assert.Less(t, next, 10)
}

func TestShuffleCacheClear(t *testing.T) {
	cache := &ShuffleCache{}
	cache.Regenerate(5)

	_, ok := cache.Next()
	require.True(t, ok)

	cache.Clear()
	_, ok = cache.Next()
	assert.False(t, ok)
	_, ok = cache.Prev()
	assert.False(t, ok)
}

func TestShuffleCacheRegenerateBounds(t *testing.T) {
	cache := &ShuffleCache{}
	for i := 0; i < 100; i++ {
		cache.Regenerate(3)
		next, ok := cache.Next()
		require.True(t, ok)
		assert.GreaterOrEqual(t, next, 0)
		assert.Less(t, next, 3)

		prev, ok := cache.Prev()
		require.True(t, ok)
		assert.GreaterOrEqual(t, prev, 0)
		assert.Less(t, prev, 3)
	}
}

func TestShuffleCacheRegenerateEmptyQueue(t *testing.T) {
	cache := &ShuffleCache{}
	cache.Regenerate(0)
	_, ok := cache.Next()
	assert.False(t, ok)
}

func TestAdjacentIndicesMatchSingleCalls(t *testing.T) {
	for _, mode := range []domain.PlayMode{
		domain.ModeSequential, domain.ModeLoopAll, domain.ModeLoopOne,
	} {
		nav := New(6, 3, mode, &ShuffleCache{})
		adj := nav.AdjacentIndices()

		next, hasNext := nav.NextIndex()
		prev, hasPrev := nav.PrevIndex()
		assert.Equal(t, hasNext, adj.HasNext, mode.String())
		assert.Equal(t, hasPrev, adj.HasPrev, mode.String())
		if hasNext {
			assert.Equal(t, next, adj.Next, mode.String())
		}
		if hasPrev {
			assert.Equal(t, prev, adj.Prev, mode.String())
		}
	}
}
