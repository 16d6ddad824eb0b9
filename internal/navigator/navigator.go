// Package navigator computes next/previous queue indices for every play mode.
// It is the single source of truth for index calculations: playback, preload
// and UI code must all go through it so that a prefetch decision and the
// later navigation that consumes it agree on the target index.
package navigator

import (
	"math/rand/v2"

	"github.com/halcyon-player/halcyon/internal/domain"
)

// ShuffleCache memoizes the next/prev indices used in shuffle mode.
//
// The cache is regenerated once per track start, not on every read, so the
// index used to prefetch matches the index consumed when the user actually
// advances. Both values are unset whenever the mode is not shuffle or the
// queue is empty.
type ShuffleCache struct {
	next    int
	prev    int
	hasNext bool
	hasPrev bool
}

// Regenerate draws two independent uniform indices in [0, queueLen).
func (c *ShuffleCache) Regenerate(queueLen int) {
	if queueLen == 0 {
		c.Clear()
		return
	}
	c.next, c.hasNext = rand.IntN(queueLen), true
	c.prev, c.hasPrev = rand.IntN(queueLen), true
}

// Clear unsets both cached indices. Call on queue or play-mode changes.
func (c *ShuffleCache) Clear() {
	c.hasNext, c.hasPrev = false, false
	c.next, c.prev = 0, 0
}

// Next returns the cached next index, if set.
func (c *ShuffleCache) Next() (int, bool) {
	return c.next, c.hasNext
}

// Prev returns the cached previous index, if set.
func (c *ShuffleCache) Prev() (int, bool) {
	return c.prev, c.hasPrev
}

// Adjacent holds both adjacent indices of the current track. A false flag
// means the direction has no target (empty queue, or sequential edge).
type Adjacent struct {
	Next    int
	HasNext bool
	Prev    int
	HasPrev bool
}

// Navigator computes adjacent indices for a queue snapshot. It performs no
// I/O and mutates nothing; shuffle results depend only on the supplied cache.
type Navigator struct {
	queueLen int
	current  int
	mode     domain.PlayMode
	shuffle  *ShuffleCache
}

// New creates a navigator for the given queue snapshot. A currentIndex of -1
// (nothing playing) navigates as if index 0 were current.
func New(queueLen, currentIndex int, mode domain.PlayMode, shuffle *ShuffleCache) Navigator {
	if currentIndex < 0 {
		currentIndex = 0
	}
	return Navigator{
		queueLen: queueLen,
		current:  currentIndex,
		mode:     mode,
		shuffle:  shuffle,
	}
}

// NextIndex computes the index of the track that follows the current one.
func (n Navigator) NextIndex() (int, bool) {
	if n.queueLen == 0 {
		return 0, false
	}

	switch n.mode {
	case domain.ModeShuffle:
		if idx, ok := n.shuffle.Next(); ok {
			return idx, true
		}
		// Fallback only: the controller populates the cache on track start.
		return rand.IntN(n.queueLen), true
	case domain.ModeLoopOne:
		return n.current, true
	case domain.ModeLoopAll:
		return (n.current + 1) % n.queueLen, true
	default: // ModeSequential stops at the end, no wrap
		next := n.current + 1
		if next >= n.queueLen {
			return 0, false
		}
		return next, true
	}
}

// PrevIndex computes the index of the track that precedes the current one.
func (n Navigator) PrevIndex() (int, bool) {
	if n.queueLen == 0 {
		return 0, false
	}

	switch n.mode {
	case domain.ModeShuffle:
		if idx, ok := n.shuffle.Prev(); ok {
			return idx, true
		}
		return rand.IntN(n.queueLen), true
	case domain.ModeLoopOne:
		return n.current, true
	case domain.ModeLoopAll:
		if n.current == 0 {
			return n.queueLen - 1, true
		}
		return n.current - 1, true
	default: // ModeSequential
		if n.current == 0 {
			return 0, false
		}
		return n.current - 1, true
	}
}

// AdjacentIndices returns both adjacent indices in one call, so the prefetch
// trigger does not recompute them separately.
func (n Navigator) AdjacentIndices() Adjacent {
	next, hasNext := n.NextIndex()
	prev, hasPrev := n.PrevIndex()
	return Adjacent{Next: next, HasNext: hasNext, Prev: prev, HasPrev: hasPrev}
}

// IsLoopOne reports whether the mode repeats the current track; prefetching
// is pointless then.
func (n Navigator) IsLoopOne() bool {
	return n.mode == domain.ModeLoopOne
}
