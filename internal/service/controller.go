// Package service provides the playback orchestration logic: queue
// navigation, track resolution, adjacent-track preloading and persistence
// all meet in the Controller.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/halcyon-player/halcyon/internal/domain"
	"github.com/halcyon-player/halcyon/internal/navigator"
	"github.com/halcyon-player/halcyon/internal/ports"
	"github.com/halcyon-player/halcyon/internal/preload"
	"github.com/halcyon-player/halcyon/internal/resolver"
)

const persistInterval = 5 * time.Second

type completionKind int

const (
	playbackResolved completionKind = iota
	preloadResolved
	coverResolved
	trackFinished
)

// completion is the result of asynchronous work, delivered to the single
// drain goroutine. Each completion carries the queue index it was computed
// for; handlers re-validate that index against current state before acting,
// which is how stale results are discarded without cancellation plumbing.
type completion struct {
	kind    completionKind
	index   int
	dir     domain.Direction
	trackID int64
	res     domain.Resolution
	cover   string
	err     error
}

// Controller owns playback state and serializes every transition. User
// operations take the mutex directly; async results are funneled through the
// completions channel and applied by one drain goroutine.
//
// Event handlers run synchronously on the publishing goroutine and must not
// call back into the Controller.
type Controller struct {
	logger   *slog.Logger
	engine   ports.AudioEngine
	bus      ports.EventBus
	store    ports.Store
	resolver *resolver.Resolver
	lyrics   ports.LyricsPrefetcher

	mu           sync.Mutex
	queue        []domain.Track
	currentIndex int
	mode         domain.PlayMode
	status       domain.PlaybackStatus
	shuffle      *navigator.ShuffleCache
	preloads     *preload.Manager

	// pendingResolve is the single queue index allowed to start playback
	// when its resolution completes, -1 when none.
	pendingResolve int

	// restore holds a saved session position to seek to once the matching
	// track starts, nil when consumed.
	restore *domain.PersistedPlayback

	// skipStreak counts consecutive failed start attempts so a queue of
	// all-broken tracks cannot skip forever.
	skipStreak int

	closed bool

	lastPersist time.Time

	ctx         context.Context
	cancel      context.CancelFunc
	completions chan completion
	wg          sync.WaitGroup

	progressInterval time.Duration
	restoreEnabled   bool
}

// Options tune controller behavior.
type Options struct {
	// ProgressInterval is how often position is sampled and published.
	ProgressInterval time.Duration

	// RestorePosition enables seeking to the persisted position when the
	// saved track starts after RestoreSession.
	RestorePosition bool

	// Lyrics, when set, is notified on every track start.
	Lyrics ports.LyricsPrefetcher
}

// NewController creates a controller and starts its drain and progress
// goroutines. Call Shutdown to stop them.
func NewController(
	logger *slog.Logger,
	engine ports.AudioEngine,
	bus ports.EventBus,
	store ports.Store,
	res *resolver.Resolver,
	opts Options,
) *Controller {
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = 500 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		logger:           logger,
		engine:           engine,
		bus:              bus,
		store:            store,
		resolver:         res,
		lyrics:           opts.Lyrics,
		currentIndex:     -1,
		mode:             domain.ModeSequential,
		status:           domain.StatusStopped,
		shuffle:          &navigator.ShuffleCache{},
		preloads:         preload.NewManager(),
		pendingResolve:   -1,
		ctx:              ctx,
		cancel:           cancel,
		completions:      make(chan completion, 16),
		progressInterval: opts.ProgressInterval,
		restoreEnabled:   opts.RestorePosition,
	}

	c.wg.Add(2)
	go c.drainCompletions()
	go c.watchProgress()

	logger.Debug("playback controller initialized")
	return c
}

// SetQueue replaces the queue. Playback keeps running if the current track
// is unchanged at the same index; otherwise it stops. The queue is persisted
// best effort.
func (c *Controller) SetQueue(tracks []domain.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sameCurrent := c.currentIndex >= 0 &&
		c.currentIndex < len(tracks) &&
		c.currentIndex < len(c.queue) &&
		tracks[c.currentIndex].ID == c.queue[c.currentIndex].ID

	c.queue = make([]domain.Track, len(tracks))
	copy(c.queue, tracks)

	if !sameCurrent {
		c.stopLocked(false)
		c.currentIndex = -1
	}
	c.shuffle.Clear()
	c.preloads.Reset()
	c.skipStreak = 0

	if err := c.store.SaveQueue(c.queue); err != nil {
		c.logger.Warn("failed to persist queue", slog.Any("error", err))
	}
	c.bus.Publish(domain.NewQueueChangedEvent(len(c.queue), c.currentIndex))
}

// RestoreSession loads the persisted queue and playback position. The
// position is applied when PlayAt next starts the saved track. Returns the
// saved queue index to resume at, or -1 when there is nothing to restore.
func (c *Controller) RestoreSession() (int, error) {
	tracks, err := c.store.LoadQueue()
	if err != nil {
		return -1, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.queue = tracks
	c.bus.Publish(domain.NewQueueChangedEvent(len(c.queue), c.currentIndex))

	pb, err := c.store.LoadPlaybackPosition()
	if err != nil {
		return -1, err
	}
	if pb == nil || len(c.queue) == 0 {
		return -1, nil
	}
	if pb.QueueIndex < 0 || pb.QueueIndex >= len(c.queue) {
		return -1, nil
	}
	if c.restoreEnabled {
		c.restore = pb
	}
	return pb.QueueIndex, nil
}

// PlayAt starts playback of the track at the given queue index. Remote
// tracks without a local file resolve asynchronously first; a later PlayAt
// supersedes any resolution still in flight.
func (c *Controller) PlayAt(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrEngineClosed
	}
	if len(c.queue) == 0 {
		return domain.ErrQueueEmpty
	}
	if index < 0 || index >= len(c.queue) {
		return domain.ErrInvalidIndex
	}
	c.skipStreak = 0
	c.playAtLocked(index)
	return nil
}

// PlayNext advances to the next track for the active mode. In sequential
// mode at the end of the queue it publishes QueueExhausted and keeps the
// current track.
func (c *Controller) PlayNext() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrEngineClosed
	}
	if len(c.queue) == 0 {
		return domain.ErrQueueEmpty
	}

	nav := c.navigatorLocked()
	next, ok := nav.NextIndex()
	if !ok {
		c.bus.Publish(domain.NewQueueExhaustedEvent())
		return domain.ErrQueueExhausted
	}

	c.skipStreak = 0
	if path, ready := c.preloads.ReadyFor(next, domain.DirNext); ready {
		if c.engine.SwitchToNext() {
			c.logger.Debug("switched to preloaded next",
				slog.Int("index", next),
				slog.String("path", path))
			c.onTrackStarted(next, path)
			return nil
		}
	}
	c.playAtLocked(next)
	return nil
}

// PlayPrev moves to the previous track for the active mode.
func (c *Controller) PlayPrev() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrEngineClosed
	}
	if len(c.queue) == 0 {
		return domain.ErrQueueEmpty
	}

	nav := c.navigatorLocked()
	prev, ok := nav.PrevIndex()
	if !ok {
		c.bus.Publish(domain.NewQueueExhaustedEvent())
		return domain.ErrQueueExhausted
	}

	c.skipStreak = 0
	if path, ready := c.preloads.ReadyFor(prev, domain.DirPrev); ready {
		if c.engine.SwitchToPrev() {
			c.logger.Debug("switched to preloaded prev",
				slog.Int("index", prev),
				slog.String("path", path))
			c.onTrackStarted(prev, path)
			return nil
		}
	}
	c.playAtLocked(prev)
	return nil
}

// TogglePause pauses playing audio or resumes paused audio. A no-op in any
// other state.
func (c *Controller) TogglePause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrEngineClosed
	}
	switch c.status {
	case domain.StatusPlaying:
		if err := c.engine.Pause(); err != nil {
			return err
		}
		c.status = domain.StatusPaused
		pos := c.engine.Info().Position
		c.lastPersist = time.Time{}
		c.persistPositionLocked(pos)
		c.bus.Publish(domain.NewPlaybackPausedEvent(c.queue[c.currentIndex], pos))

	case domain.StatusPaused:
		if err := c.engine.Resume(); err != nil {
			return err
		}
		c.status = domain.StatusPlaying
		c.bus.Publish(domain.NewPlaybackResumedEvent(c.queue[c.currentIndex], c.engine.Info().Position))
	}
	return nil
}

// Stop halts playback, records the partial listen and clears the current
// track.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrEngineClosed
	}
	c.stopLocked(true)
	return nil
}

// Seek moves within the current track.
func (c *Controller) Seek(position time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrEngineClosed
	}
	if c.currentIndex < 0 {
		return domain.ErrTrackNotFound
	}
	if err := c.engine.Seek(position); err != nil {
		return err
	}
	c.lastPersist = time.Time{}
	c.persistPositionLocked(position)
	return nil
}

// SetPlayMode switches the play mode. Preload slots are reset and refilled
// for the new mode's adjacency; the shuffle cache only holds values while
// shuffle is active.
func (c *Controller) SetPlayMode(mode domain.PlayMode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if mode == c.mode {
		return
	}
	c.mode = mode
	c.preloads.Reset()
	if mode == domain.ModeShuffle && c.currentIndex >= 0 {
		c.shuffle.Regenerate(len(c.queue))
	} else {
		c.shuffle.Clear()
	}
	c.bus.Publish(domain.NewPlayModeChangedEvent(mode))

	if c.currentIndex >= 0 {
		c.refreshPreloadsLocked()
	}
}

// CyclePlayMode advances to the next play mode in the fixed rotation and
// returns it.
func (c *Controller) CyclePlayMode() domain.PlayMode {
	c.mu.Lock()
	next := c.mode.Cycle()
	c.mu.Unlock()

	c.SetPlayMode(next)
	return next
}

// Mode returns the active play mode.
func (c *Controller) Mode() domain.PlayMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// State returns a snapshot of the controller state.
func (c *Controller) State() domain.PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()

	info := c.engine.Info()
	state := domain.PlaybackState{
		CurrentIndex: c.currentIndex,
		QueueLength:  len(c.queue),
		Mode:         c.mode,
		Status:       c.status,
		Position:     info.Position,
		Duration:     info.Duration,
	}
	if c.currentIndex >= 0 && c.currentIndex < len(c.queue) {
		track := c.queue[c.currentIndex]
		state.CurrentTrack = &track
	}
	return state
}

// Queue returns a copy of the queue.
func (c *Controller) Queue() []domain.Track {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.Track, len(c.queue))
	copy(out, c.queue)
	return out
}

// Shutdown stops the background goroutines, halts the engine and persists
// the final position. Commands issued afterwards return ErrEngineClosed.
func (c *Controller) Shutdown() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.ErrEngineClosed
	}
	c.closed = true
	pos := c.engine.Info().Position
	if c.currentIndex >= 0 && c.currentIndex < len(c.queue) {
		c.lastPersist = time.Time{}
		c.persistPositionLocked(pos)
	}
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = domain.StatusStopped
	return c.engine.Stop()
}

// playAtLocked begins the start sequence for a queue index: immediate
// playback when a local file exists, asynchronous resolution otherwise.
func (c *Controller) playAtLocked(index int) {
	track := c.queue[index]

	if c.resolver.NeedsResolution(track) {
		c.status = domain.StatusResolving
		c.pendingResolve = index
		c.logger.Info("resolving track",
			slog.Int("index", index),
			slog.Int64("track_id", track.ID))

		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			res, err := c.resolver.Resolve(c.ctx, track)
			c.deliver(completion{kind: playbackResolved, index: index, trackID: track.ID, res: res, err: err})
		}()
		return
	}

	path, ok := c.resolver.LocalPath(track)
	if !ok {
		c.logger.Warn("track has no playable file",
			slog.Int("index", index),
			slog.String("path", track.FilePath))
		c.bus.Publish(domain.NewPlaybackErrorEvent(track, domain.ErrTrackNotFound))
		c.skipToNextPlayableLocked(index)
		return
	}
	c.startPlaybackLocked(index, path)
}

// startPlaybackLocked hands a playable file to the engine.
func (c *Controller) startPlaybackLocked(index int, path string) {
	if err := c.engine.Play(path); err != nil {
		c.logger.Error("engine refused track",
			slog.Int("index", index),
			slog.String("path", path),
			slog.Any("error", err))
		c.bus.Publish(domain.NewPlaybackErrorEvent(c.queue[index], err))
		c.skipToNextPlayableLocked(index)
		return
	}
	c.onTrackStarted(index, path)
}

// onTrackStarted runs the start fan-out after audio is actually playing:
// state update, session restore seek, persistence, shuffle regeneration,
// preload refresh, cover and lyrics fetches.
func (c *Controller) onTrackStarted(index int, path string) {
	c.currentIndex = index
	c.status = domain.StatusPlaying
	c.pendingResolve = -1
	c.skipStreak = 0
	track := c.queue[index]

	if c.restore != nil && c.restore.QueueIndex == index && c.restore.SongID == track.ID {
		pos := time.Duration(c.restore.PositionSecs * float64(time.Second))
		if err := c.engine.Seek(pos); err != nil {
			c.logger.Warn("failed to restore position", slog.Any("error", err))
		}
		c.restore = nil
	} else if c.restore != nil {
		// A different track started; the saved position no longer applies.
		c.restore = nil
	}

	c.lastPersist = time.Time{}
	c.persistPositionLocked(c.engine.Info().Position)

	if c.mode == domain.ModeShuffle {
		c.shuffle.Regenerate(len(c.queue))
	} else {
		c.shuffle.Clear()
	}
	c.refreshPreloadsLocked()

	if track.HasRemoteCover() || (track.IsRemote() && track.CoverPath == "") {
		c.fetchCoverAsync(track)
	}
	if c.lyrics != nil {
		c.lyrics.Prefetch(track)
	}

	c.logger.Info("track started",
		slog.Int("index", index),
		slog.Int64("track_id", track.ID),
		slog.String("title", track.Title),
		slog.String("path", path))
	c.bus.Publish(domain.NewPlaybackStartedEvent(track, index))
}

// refreshPreloadsLocked drops preload slots that no longer match the
// adjacency of the current track and kicks off fetches for the ones that
// should be filled. Repeat-one never prefetches; the current track is
// already loaded.
func (c *Controller) refreshPreloadsLocked() {
	nav := c.navigatorLocked()
	if nav.IsLoopOne() {
		return
	}

	adj := nav.AdjacentIndices()
	c.preloads.InvalidateStale(adj.Next, adj.HasNext, adj.Prev, adj.HasPrev)

	if adj.HasNext && c.preloads.ShouldPreload(adj.Next, domain.DirNext) {
		c.preloadAsync(adj.Next, domain.DirNext)
	}
	if adj.HasPrev && adj.Prev != adj.Next && c.preloads.ShouldPreload(adj.Prev, domain.DirPrev) {
		c.preloadAsync(adj.Prev, domain.DirPrev)
	}
}

// preloadAsync resolves the track at index in the background and reports the
// outcome as a preload completion.
func (c *Controller) preloadAsync(index int, dir domain.Direction) {
	track := c.queue[index]
	c.preloads.MarkPending(index, dir)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		if path, ok := c.resolver.LocalPath(track); ok {
			c.deliver(completion{kind: preloadResolved, index: index, dir: dir, res: domain.Resolution{AudioPath: path, FromCache: true}})
			return
		}
		if !track.IsRemote() {
			c.deliver(completion{kind: preloadResolved, index: index, dir: dir, err: domain.ErrTrackNotFound})
			return
		}
		res, err := c.resolver.Resolve(c.ctx, track)
		c.deliver(completion{kind: preloadResolved, index: index, dir: dir, res: res, err: err})
	}()
}

// fetchCoverAsync fetches the current track's cover art in the background.
func (c *Controller) fetchCoverAsync(track domain.Track) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		path, ok := c.resolver.ResolveCover(c.ctx, track)
		if !ok {
			return
		}
		c.deliver(completion{kind: coverResolved, trackID: track.ID, cover: path})
	}()
}

func (c *Controller) deliver(comp completion) {
	select {
	case c.completions <- comp:
	case <-c.ctx.Done():
	}
}

func (c *Controller) drainCompletions() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case comp := <-c.completions:
			c.handleCompletion(comp)
		}
	}
}

func (c *Controller) handleCompletion(comp completion) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch comp.kind {
	case playbackResolved:
		c.handlePlaybackResolvedLocked(comp)
	case preloadResolved:
		c.handlePreloadResolvedLocked(comp)
	case coverResolved:
		c.handleCoverResolvedLocked(comp)
	case trackFinished:
		c.handleTrackFinishedLocked(comp.index)
	}
}

// handlePlaybackResolvedLocked applies the outcome of a resolution that was
// started to play a track. Results for any index other than the single
// pending one are stale and dropped.
func (c *Controller) handlePlaybackResolvedLocked(comp completion) {
	if comp.index != c.pendingResolve {
		// The download already happened; keep the metadata and local path
		// on the queue entry even though nothing will play it now.
		if comp.err == nil && comp.index >= 0 && comp.index < len(c.queue) &&
			c.queue[comp.index].ID == comp.trackID {
			c.applyResolutionLocked(comp.index, comp.res)
		}
		c.logger.Debug("dropping stale resolution",
			slog.Int("index", comp.index),
			slog.Int("pending", c.pendingResolve))
		return
	}
	c.pendingResolve = -1

	if comp.err != nil {
		c.logger.Warn("resolution failed",
			slog.Int("index", comp.index),
			slog.Any("error", comp.err))
		c.bus.Publish(domain.NewResolveFailedEvent(comp.index, comp.err))
		c.skipToNextPlayableLocked(comp.index)
		return
	}

	c.applyResolutionLocked(comp.index, comp.res)
	c.bus.Publish(domain.NewTrackResolvedEvent(comp.index, comp.res.AudioPath, comp.res.CoverPath))
	c.startPlaybackLocked(comp.index, comp.res.AudioPath)
}

// handlePreloadResolvedLocked applies the outcome of a background preload.
func (c *Controller) handlePreloadResolvedLocked(comp completion) {
	if comp.err != nil {
		retries := c.preloads.MarkFailed(comp.index, comp.dir)
		c.logger.Debug("preload failed",
			slog.Int("index", comp.index),
			slog.String("direction", comp.dir.String()),
			slog.Int("retries", retries),
			slog.Any("error", comp.err))
		c.bus.Publish(domain.NewPreloadFailedEvent(comp.index, comp.dir, retries))
		return
	}

	// The slot may have been retargeted while the fetch ran.
	adj := c.navigatorLocked().AdjacentIndices()
	want, has := adj.Next, adj.HasNext
	if comp.dir == domain.DirPrev {
		want, has = adj.Prev, adj.HasPrev
	}
	if !has || want != comp.index {
		c.logger.Debug("dropping stale preload",
			slog.Int("index", comp.index),
			slog.String("direction", comp.dir.String()))
		return
	}

	c.applyResolutionLocked(comp.index, comp.res)
	c.preloads.MarkReady(comp.index, comp.res.AudioPath, comp.dir)

	var err error
	if comp.dir == domain.DirNext {
		err = c.engine.PreloadNext(comp.res.AudioPath)
	} else {
		err = c.engine.PreloadPrev(comp.res.AudioPath)
	}
	if err != nil {
		c.logger.Debug("engine preload failed",
			slog.String("direction", comp.dir.String()),
			slog.Any("error", err))
	}
	c.bus.Publish(domain.NewPreloadReadyEvent(comp.index, comp.dir, comp.res.AudioPath))
}

// handleCoverResolvedLocked records a fetched cover on every queue entry for
// that track.
func (c *Controller) handleCoverResolvedLocked(comp completion) {
	for i := range c.queue {
		if c.queue[i].ID == comp.trackID {
			c.queue[i].CoverPath = comp.cover
		}
	}
	c.bus.Publish(domain.NewCoverReadyEvent(comp.trackID, comp.cover))
}

// handleTrackFinishedLocked reacts to a track reaching its end: record the
// full listen, then advance according to the play mode.
func (c *Controller) handleTrackFinishedLocked(index int) {
	if index != c.currentIndex || c.status != domain.StatusPlaying {
		return
	}
	track := c.queue[index]

	listened := int64(c.engine.Info().Duration.Seconds())
	if err := c.store.RecordPlay(track.ID, listened, true); err != nil {
		c.logger.Warn("failed to record play", slog.Any("error", err))
	}
	c.bus.Publish(domain.NewPlaybackFinishedEvent(track, index))

	if c.mode == domain.ModeLoopOne {
		c.playAtLocked(index)
		return
	}

	nav := c.navigatorLocked()
	next, ok := nav.NextIndex()
	if !ok {
		// Queue finished: rewind to the top without starting playback.
		c.status = domain.StatusStopped
		c.currentIndex = 0
		c.preloads.Reset()
		c.persistPositionAtLocked(c.queue[0].ID, 0, 0)
		c.bus.Publish(domain.NewQueueExhaustedEvent())
		return
	}

	if path, ready := c.preloads.ReadyFor(next, domain.DirNext); ready {
		if c.engine.SwitchToNext() {
			c.onTrackStarted(next, path)
			return
		}
	}
	c.playAtLocked(next)
}

// skipToNextPlayableLocked advances past a track that failed to start. The
// candidate is always the immediately following index, wrapping at the end
// of the queue regardless of mode. Gives up once every track failed in a
// row, and immediately on a single-track queue.
func (c *Controller) skipToNextPlayableLocked(failed int) {
	if len(c.queue) <= 1 {
		c.status = domain.StatusStopped
		c.bus.Publish(domain.NewQueueExhaustedEvent())
		return
	}

	c.skipStreak++
	if c.skipStreak >= len(c.queue) {
		c.logger.Warn("no playable track in queue", slog.Int("queue_length", len(c.queue)))
		c.status = domain.StatusStopped
		c.skipStreak = 0
		c.bus.Publish(domain.NewQueueExhaustedEvent())
		return
	}

	candidate := (failed + 1) % len(c.queue)
	c.logger.Info("skipping to next playable",
		slog.Int("failed_index", failed),
		slog.Int("candidate", candidate))
	c.playAtLocked(candidate)
}

// applyResolutionLocked backfills queue entry metadata from a resolution and
// refreshes the stored remote track record.
func (c *Controller) applyResolutionLocked(index int, res domain.Resolution) {
	if index < 0 || index >= len(c.queue) {
		return
	}
	t := &c.queue[index]
	t.FilePath = res.AudioPath
	if res.CoverPath != "" {
		t.CoverPath = res.CoverPath
	}
	if t.Title == "" && res.Title != "" {
		t.Title = res.Title
	}
	if t.Artist == "" && res.Artist != "" {
		t.Artist = res.Artist
	}
	if t.Album == "" && res.Album != "" {
		t.Album = res.Album
	}

	if t.IsRemote() && !res.FromCache {
		if _, err := c.store.UpsertRemoteTrack(t); err != nil {
			c.logger.Warn("failed to store remote track", slog.Any("error", err))
		}
	}
}

// stopLocked halts the engine and records a partial listen when requested.
func (c *Controller) stopLocked(recordPartial bool) {
	if c.currentIndex < 0 || c.status == domain.StatusStopped {
		c.status = domain.StatusStopped
		return
	}
	track := c.queue[c.currentIndex]
	pos := c.engine.Info().Position

	if recordPartial {
		if err := c.store.RecordPlay(track.ID, int64(pos.Seconds()), false); err != nil {
			c.logger.Warn("failed to record play", slog.Any("error", err))
		}
		c.persistPositionLocked(pos)
	}

	if err := c.engine.Stop(); err != nil {
		c.logger.Warn("engine stop failed", slog.Any("error", err))
	}
	c.status = domain.StatusStopped
	c.pendingResolve = -1
	c.preloads.Reset()
	c.bus.Publish(domain.NewPlaybackStoppedEvent(track))
}

// persistPositionLocked saves the current position, throttled so the ticker
// does not write on every sample.
func (c *Controller) persistPositionLocked(pos time.Duration) {
	if c.currentIndex < 0 || c.currentIndex >= len(c.queue) {
		return
	}
	if time.Since(c.lastPersist) < persistInterval {
		return
	}
	c.persistPositionAtLocked(c.queue[c.currentIndex].ID, c.currentIndex, pos.Seconds())
}

func (c *Controller) persistPositionAtLocked(songID int64, index int, positionSecs float64) {
	if err := c.store.UpdatePlaybackPosition(songID, index, positionSecs); err != nil {
		c.logger.Warn("failed to persist position", slog.Any("error", err))
		return
	}
	c.lastPersist = time.Now()
}

func (c *Controller) navigatorLocked() navigator.Navigator {
	return navigator.New(len(c.queue), c.currentIndex, c.mode, c.shuffle)
}

// watchProgress samples the engine, publishes progress and detects natural
// track end.
func (c *Controller) watchProgress() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.sampleProgress()
		}
	}
}

func (c *Controller) sampleProgress() {
	c.mu.Lock()
	if c.status != domain.StatusPlaying || c.currentIndex < 0 {
		c.mu.Unlock()
		return
	}
	index := c.currentIndex
	info := c.engine.Info()
	finished := info.Status == domain.StatusStopped && info.Duration > 0 && info.Position >= info.Duration
	if !finished {
		c.persistPositionLocked(info.Position)
	}
	c.mu.Unlock()

	c.bus.Publish(domain.NewPlaybackProgressEvent(info.Position, info.Duration))
	if finished {
		c.deliver(completion{kind: trackFinished, index: index})
	}
}

var _ interface {
	SetQueue([]domain.Track)
	PlayAt(int) error
	PlayNext() error
	PlayPrev() error
	TogglePause() error
	Stop() error
	Seek(time.Duration) error
	SetPlayMode(domain.PlayMode)
	CyclePlayMode() domain.PlayMode
	State() domain.PlaybackState
	Shutdown() error
} = (*Controller)(nil)
