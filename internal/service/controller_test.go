package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyon-player/halcyon/internal/adapter/audio/mock"
	"github.com/halcyon-player/halcyon/internal/adapter/eventbus"
	"github.com/halcyon-player/halcyon/internal/adapter/repository/memory"
	"github.com/halcyon-player/halcyon/internal/cache"
	"github.com/halcyon-player/halcyon/internal/domain"
	"github.com/halcyon-player/halcyon/internal/logger"
	"github.com/halcyon-player/halcyon/internal/resolver"
	"github.com/halcyon-player/halcyon/internal/testutil"
)

const (
	waitFor = 2 * time.Second
	tick    = 10 * time.Millisecond
)

// testProvider serves canned audio bytes. Downloads can be gated on a channel
// to simulate a slow network.
type testProvider struct {
	mu           sync.Mutex
	failStream   map[int64]bool
	blockRelease chan struct{}
}

func newTestProvider() *testProvider {
	return &testProvider{failStream: make(map[int64]bool)}
}

func (p *testProvider) setFailStream(remoteID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failStream[remoteID] = true
}

func (p *testProvider) blockDownloads() chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blockRelease = make(chan struct{})
	return p.blockRelease
}

func (p *testProvider) StreamURL(_ context.Context, remoteID int64) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failStream[remoteID] {
		return "", errors.New("no stream available")
	}
	return "http://api.test/audio", nil
}

func (p *testProvider) CoverURL(_ context.Context, _ int64) (string, error) {
	return "", nil
}

func (p *testProvider) Download(ctx context.Context, _ string, destPath string) error {
	p.mu.Lock()
	release := p.blockRelease
	p.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return os.WriteFile(destPath, []byte("ID3\x04audio"), 0o644)
}

// lyricsSpy records which tracks had a lyrics prefetch fired.
type lyricsSpy struct {
	mu  sync.Mutex
	ids []int64
}

func (s *lyricsSpy) Prefetch(track domain.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, track.ID)
}

func (s *lyricsSpy) prefetched() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.ids...)
}

// eventLog records every published event type in order.
type eventLog struct {
	mu     sync.Mutex
	events []domain.Event
}

func (l *eventLog) record(e domain.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) has(eventType domain.EventType) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e.Type() == eventType {
			return true
		}
	}
	return false
}

type fixture struct {
	controller *Controller
	engine     *mock.Engine
	store      *memory.Store
	provider   *testProvider
	events     *eventLog
	lyrics     *lyricsSpy
	audioDir   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	// Runs after the shutdown cleanup below, once every controller
	// goroutine has exited.
	t.Cleanup(func() { testutil.VerifyNoLeaks(t) })

	log := logger.NewTestLogger()
	bus := eventbus.NewSyncEventBus(log)
	engine := mock.NewEngine()
	store := memory.NewStore()
	provider := newTestProvider()

	contentCache, err := cache.New(t.TempDir())
	require.NoError(t, err)

	events := &eventLog{}
	bus.SubscribeAll(events.record)

	lyrics := &lyricsSpy{}
	controller := NewController(log, engine, bus, store, resolver.New(log, provider, contentCache), Options{
		ProgressInterval: 20 * time.Millisecond,
		RestorePosition:  true,
		Lyrics:           lyrics,
	})
	t.Cleanup(func() {
		require.NoError(t, controller.Shutdown())
	})

	return &fixture{
		controller: controller,
		engine:     engine,
		store:      store,
		provider:   provider,
		events:     events,
		lyrics:     lyrics,
		audioDir:   contentCache.AudioDir(),
	}
}

// localTracks creates n playable files on disk and returns tracks for them.
func localTracks(t *testing.T, n int) []domain.Track {
	t.Helper()
	dir := t.TempDir()
	tracks := make([]domain.Track, n)
	for i := range tracks {
		path := filepath.Join(dir, "track"+string(rune('a'+i))+".mp3")
		require.NoError(t, os.WriteFile(path, []byte("ID3\x04audio"), 0o644))
		tracks[i] = domain.Track{ID: int64(i + 1), FilePath: path, Title: "Track"}
	}
	return tracks
}

func TestPlayAtLocalTrack(t *testing.T) {
	f := newFixture(t)

	tracks := localTracks(t, 3)
	f.controller.SetQueue(tracks)

	require.NoError(t, f.controller.PlayAt(0))

	state := f.controller.State()
	assert.Equal(t, domain.StatusPlaying, state.Status)
	assert.Equal(t, 0, state.CurrentIndex)
	assert.Equal(t, tracks[0].FilePath, f.engine.CurrentPath())
	assert.True(t, f.events.has(domain.EventPlaybackStarted))
}

func TestTrackStartFiresLyricsPrefetch(t *testing.T) {
	f := newFixture(t)

	tracks := localTracks(t, 2)
	f.controller.SetQueue(tracks)

	require.NoError(t, f.controller.PlayAt(0))
	require.NoError(t, f.controller.PlayNext())

	assert.Equal(t, []int64{tracks[0].ID, tracks[1].ID}, f.lyrics.prefetched())
}

func TestPlayAtValidation(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.controller.PlayAt(0), domain.ErrQueueEmpty)

	f.controller.SetQueue(localTracks(t, 2))
	assert.ErrorIs(t, f.controller.PlayAt(-1), domain.ErrInvalidIndex)
	assert.ErrorIs(t, f.controller.PlayAt(2), domain.ErrInvalidIndex)
}

func TestPlayAtRemoteTrackResolves(t *testing.T) {
	f := newFixture(t)

	release := f.provider.blockDownloads()

	f.controller.SetQueue([]domain.Track{{ID: -42, Title: "Remote"}})
	require.NoError(t, f.controller.PlayAt(0))

	assert.Equal(t, domain.StatusResolving, f.controller.State().Status)
	close(release)

	assert.Eventually(t, func() bool {
		return f.controller.State().Status == domain.StatusPlaying
	}, waitFor, tick)

	assert.Equal(t, filepath.Join(f.audioDir, "42.mp3"), f.engine.CurrentPath())
	assert.True(t, f.events.has(domain.EventTrackResolved))

	// The resolved file lands in the queue entry and the store.
	assert.Eventually(t, func() bool {
		_, ok := f.store.RemoteTrack(42)
		return ok
	}, waitFor, tick)
}

func TestStaleResolutionIgnored(t *testing.T) {
	f := newFixture(t)

	release := f.provider.blockDownloads()
	local := localTracks(t, 1)

	f.controller.SetQueue([]domain.Track{{ID: -42, Title: "Remote"}, local[0]})
	require.NoError(t, f.controller.PlayAt(0))

	// The user moves on before the download finishes.
	require.NoError(t, f.controller.PlayAt(1))
	assert.Equal(t, local[0].FilePath, f.engine.CurrentPath())

	close(release)

	// The finished resolution must not steal playback back, but the
	// downloaded file is kept on the queue entry.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, local[0].FilePath, f.engine.CurrentPath())
	assert.Equal(t, 1, f.controller.State().CurrentIndex)
	assert.Eventually(t, func() bool {
		return f.controller.Queue()[0].FilePath != ""
	}, waitFor, tick)
}

func TestAdjacentPreloadSequential(t *testing.T) {
	f := newFixture(t)

	tracks := localTracks(t, 3)
	f.controller.SetQueue(tracks)
	require.NoError(t, f.controller.PlayAt(1))

	assert.Eventually(t, func() bool {
		return f.engine.PreloadedNext() == tracks[2].FilePath &&
			f.engine.PreloadedPrev() == tracks[0].FilePath
	}, waitFor, tick)
	assert.True(t, f.events.has(domain.EventPreloadReady))
}

func TestPlayNextUsesPreloadedTrack(t *testing.T) {
	f := newFixture(t)

	tracks := localTracks(t, 3)
	f.controller.SetQueue(tracks)
	require.NoError(t, f.controller.PlayAt(0))

	assert.Eventually(t, func() bool {
		return f.engine.PreloadedNext() == tracks[1].FilePath
	}, waitFor, tick)

	require.NoError(t, f.controller.PlayNext())
	assert.Equal(t, tracks[1].FilePath, f.engine.CurrentPath())
	assert.Equal(t, 1, f.controller.State().CurrentIndex)

	// The switch consumed the slot without a fresh engine.Play call.
	assert.Equal(t, []string{tracks[0].FilePath, tracks[1].FilePath}, f.engine.Played())
}

func TestPlayNextSequentialEndExhausts(t *testing.T) {
	f := newFixture(t)

	tracks := localTracks(t, 2)
	f.controller.SetQueue(tracks)
	require.NoError(t, f.controller.PlayAt(1))

	err := f.controller.PlayNext()
	assert.ErrorIs(t, err, domain.ErrQueueExhausted)
	assert.True(t, f.events.has(domain.EventQueueExhausted))
	assert.Equal(t, 1, f.controller.State().CurrentIndex, "current track unchanged")
}

func TestPlayNextWrapsInLoopAll(t *testing.T) {
	f := newFixture(t)

	tracks := localTracks(t, 2)
	f.controller.SetQueue(tracks)
	f.controller.SetPlayMode(domain.ModeLoopAll)
	require.NoError(t, f.controller.PlayAt(1))

	require.NoError(t, f.controller.PlayNext())
	assert.Equal(t, 0, f.controller.State().CurrentIndex)
}

func TestSkipToNextPlayable(t *testing.T) {
	f := newFixture(t)

	good := localTracks(t, 1)
	broken := domain.Track{ID: 99, FilePath: "/nonexistent/broken.mp3"}

	f.controller.SetQueue([]domain.Track{broken, good[0]})
	require.NoError(t, f.controller.PlayAt(0))

	assert.Equal(t, 1, f.controller.State().CurrentIndex)
	assert.Equal(t, good[0].FilePath, f.engine.CurrentPath())
	assert.True(t, f.events.has(domain.EventPlaybackError))
}

func TestSkipGivesUpOnSingleBrokenTrack(t *testing.T) {
	f := newFixture(t)

	f.controller.SetQueue([]domain.Track{{ID: 99, FilePath: "/nonexistent/broken.mp3"}})
	require.NoError(t, f.controller.PlayAt(0))

	assert.Equal(t, domain.StatusStopped, f.controller.State().Status)
	assert.True(t, f.events.has(domain.EventQueueExhausted))
}

func TestSkipGivesUpWhenNothingPlayable(t *testing.T) {
	f := newFixture(t)

	f.controller.SetQueue([]domain.Track{
		{ID: 98, FilePath: "/nonexistent/a.mp3"},
		{ID: 99, FilePath: "/nonexistent/b.mp3"},
	})
	require.NoError(t, f.controller.PlayAt(0))

	assert.Eventually(t, func() bool {
		return f.controller.State().Status == domain.StatusStopped
	}, waitFor, tick)
	assert.True(t, f.events.has(domain.EventQueueExhausted))
}

func TestSkipPastBrokenToRemote(t *testing.T) {
	f := newFixture(t)

	broken := domain.Track{ID: 99, FilePath: "/nonexistent/broken.mp3"}
	f.controller.SetQueue([]domain.Track{broken, {ID: -42, Title: "Remote"}})
	require.NoError(t, f.controller.PlayAt(0))

	assert.Eventually(t, func() bool {
		state := f.controller.State()
		return state.Status == domain.StatusPlaying && state.CurrentIndex == 1
	}, waitFor, tick)
	assert.Equal(t, filepath.Join(f.audioDir, "42.mp3"), f.engine.CurrentPath())
}

func TestNaturalFinishAdvances(t *testing.T) {
	f := newFixture(t)

	tracks := localTracks(t, 2)
	f.controller.SetQueue(tracks)
	require.NoError(t, f.controller.PlayAt(0))

	f.engine.SimulateFinish()

	assert.Eventually(t, func() bool {
		state := f.controller.State()
		return state.CurrentIndex == 1 && state.Status == domain.StatusPlaying
	}, waitFor, tick)

	assert.True(t, f.events.has(domain.EventPlaybackFinished))

	plays := f.store.Plays()
	require.NotEmpty(t, plays)
	assert.Equal(t, tracks[0].ID, plays[0].SongID)
	assert.True(t, plays[0].Completed)
}

func TestNaturalFinishLoopOneReplays(t *testing.T) {
	f := newFixture(t)

	tracks := localTracks(t, 2)
	f.controller.SetQueue(tracks)
	f.controller.SetPlayMode(domain.ModeLoopOne)
	require.NoError(t, f.controller.PlayAt(0))

	f.engine.SimulateFinish()

	assert.Eventually(t, func() bool {
		return len(f.engine.Played()) >= 2
	}, waitFor, tick)
	assert.Equal(t, 0, f.controller.State().CurrentIndex)
	assert.Equal(t, tracks[0].FilePath, f.engine.CurrentPath())
}

func TestLoopOneDoesNotPreload(t *testing.T) {
	f := newFixture(t)

	tracks := localTracks(t, 3)
	f.controller.SetQueue(tracks)
	f.controller.SetPlayMode(domain.ModeLoopOne)
	require.NoError(t, f.controller.PlayAt(1))

	// The playing track is already loaded; no slot may fill.
	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, f.engine.PreloadedNext())
	assert.Empty(t, f.engine.PreloadedPrev())
}

func TestNaturalFinishSequentialEndStops(t *testing.T) {
	f := newFixture(t)

	tracks := localTracks(t, 2)
	f.controller.SetQueue(tracks)
	require.NoError(t, f.controller.PlayAt(1))

	f.engine.SimulateFinish()

	assert.Eventually(t, func() bool {
		return f.controller.State().Status == domain.StatusStopped
	}, waitFor, tick)
	assert.True(t, f.events.has(domain.EventQueueExhausted))

	// The queue rewinds to the top, ready for a fresh start.
	assert.Equal(t, 0, f.controller.State().CurrentIndex)
}

func TestShufflePreloadMatchesNavigation(t *testing.T) {
	f := newFixture(t)

	tracks := localTracks(t, 5)
	f.controller.SetQueue(tracks)
	f.controller.SetPlayMode(domain.ModeShuffle)
	require.NoError(t, f.controller.PlayAt(2))

	// Whatever index was drawn for the forward direction, the preloaded
	// file and the track PlayNext lands on must agree.
	assert.Eventually(t, func() bool {
		return f.engine.PreloadedNext() != ""
	}, waitFor, tick)
	preloaded := f.engine.PreloadedNext()

	require.NoError(t, f.controller.PlayNext())
	assert.Equal(t, preloaded, f.engine.CurrentPath())
}

func TestTogglePause(t *testing.T) {
	f := newFixture(t)

	f.controller.SetQueue(localTracks(t, 1))
	require.NoError(t, f.controller.PlayAt(0))

	require.NoError(t, f.controller.TogglePause())
	assert.Equal(t, domain.StatusPaused, f.controller.State().Status)
	assert.True(t, f.events.has(domain.EventPlaybackPaused))

	require.NoError(t, f.controller.TogglePause())
	assert.Equal(t, domain.StatusPlaying, f.controller.State().Status)
	assert.True(t, f.events.has(domain.EventPlaybackResumed))
}

func TestPausePersistsPositionImmediately(t *testing.T) {
	f := newFixture(t)

	tracks := localTracks(t, 1)
	f.controller.SetQueue(tracks)
	require.NoError(t, f.controller.PlayAt(0))

	f.engine.SimulateProgress(30 * time.Second)
	require.NoError(t, f.controller.TogglePause())

	saved, err := f.store.LoadPlaybackPosition()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, tracks[0].ID, saved.SongID)
	assert.InDelta(t, 30.0, saved.PositionSecs, 0.5)
}

func TestStopRecordsPartialListen(t *testing.T) {
	f := newFixture(t)

	f.controller.SetQueue(localTracks(t, 1))
	require.NoError(t, f.controller.PlayAt(0))

	require.NoError(t, f.controller.Stop())
	assert.Equal(t, domain.StatusStopped, f.controller.State().Status)
	assert.True(t, f.events.has(domain.EventPlaybackStopped))

	plays := f.store.Plays()
	require.Len(t, plays, 1)
	assert.False(t, plays[0].Completed)
}

func TestCyclePlayMode(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, domain.ModeSequential, f.controller.Mode())
	assert.Equal(t, domain.ModeLoopAll, f.controller.CyclePlayMode())
	assert.Equal(t, domain.ModeLoopOne, f.controller.CyclePlayMode())
	assert.Equal(t, domain.ModeShuffle, f.controller.CyclePlayMode())
	assert.Equal(t, domain.ModeSequential, f.controller.CyclePlayMode())
	assert.True(t, f.events.has(domain.EventPlayModeChanged))
}

func TestSetQueuePersists(t *testing.T) {
	f := newFixture(t)

	tracks := localTracks(t, 3)
	f.controller.SetQueue(tracks)

	saved, err := f.store.LoadQueue()
	require.NoError(t, err)
	assert.Len(t, saved, 3)
	assert.True(t, f.events.has(domain.EventQueueChanged))
}

func TestRestoreSession(t *testing.T) {
	f := newFixture(t)

	tracks := localTracks(t, 3)
	require.NoError(t, f.store.SaveQueue(tracks))
	require.NoError(t, f.store.UpdatePlaybackPosition(tracks[1].ID, 1, 42.5))

	index, err := f.controller.RestoreSession()
	require.NoError(t, err)
	require.Equal(t, 1, index)

	require.NoError(t, f.controller.PlayAt(index))
	assert.Equal(t, tracks[1].FilePath, f.engine.CurrentPath())

	info := f.engine.Info()
	assert.InDelta(t, 42.5, info.Position.Seconds(), 0.01, "restored position applied")
}

func TestRestoreSessionNothingSaved(t *testing.T) {
	f := newFixture(t)

	index, err := f.controller.RestoreSession()
	require.NoError(t, err)
	assert.Equal(t, -1, index)
}

func TestSeekPersistsPosition(t *testing.T) {
	f := newFixture(t)

	tracks := localTracks(t, 1)
	f.controller.SetQueue(tracks)
	require.NoError(t, f.controller.PlayAt(0))

	require.NoError(t, f.controller.Seek(30*time.Second))
	assert.Equal(t, 30*time.Second, f.engine.Info().Position)

	// The write lands right away, not on the next throttled flush.
	saved, err := f.store.LoadPlaybackPosition()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.InDelta(t, 30.0, saved.PositionSecs, 0.5)
}

func TestModeChangeClearsShuffleCache(t *testing.T) {
	f := newFixture(t)

	tracks := localTracks(t, 4)
	f.controller.SetQueue(tracks)
	f.controller.SetPlayMode(domain.ModeShuffle)
	require.NoError(t, f.controller.PlayAt(1))

	f.controller.mu.Lock()
	_, hasNext := f.controller.shuffle.Next()
	f.controller.mu.Unlock()
	assert.True(t, hasNext)

	f.controller.SetPlayMode(domain.ModeSequential)

	f.controller.mu.Lock()
	_, hasNext = f.controller.shuffle.Next()
	_, hasPrev := f.controller.shuffle.Prev()
	f.controller.mu.Unlock()
	assert.False(t, hasNext)
	assert.False(t, hasPrev)

	// Track starts outside shuffle must leave the cache empty too.
	require.NoError(t, f.controller.PlayNext())

	f.controller.mu.Lock()
	_, hasNext = f.controller.shuffle.Next()
	f.controller.mu.Unlock()
	assert.False(t, hasNext)
}

func TestShutdownStopsCleanly(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	log := logger.NewTestLogger()
	bus := eventbus.NewSyncEventBus(log)
	engine := mock.NewEngine()
	store := memory.NewStore()
	contentCache, err := cache.New(t.TempDir())
	require.NoError(t, err)

	controller := NewController(log, engine, bus, store, resolver.New(log, newTestProvider(), contentCache), Options{})

	tracks := localTracks(t, 1)
	controller.SetQueue(tracks)
	require.NoError(t, controller.PlayAt(0))

	require.NoError(t, controller.Shutdown())
	assert.Equal(t, domain.StatusStopped, engine.Info().Status)

	assert.ErrorIs(t, controller.PlayAt(0), domain.ErrEngineClosed)
	assert.ErrorIs(t, controller.Shutdown(), domain.ErrEngineClosed)
}
