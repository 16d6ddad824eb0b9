// Package domain defines the events published by the playback engine.
// Events decouple the engine from its observers (UI shells, tray handles,
// logging) and carry the queue index they were computed for, so consumers
// can discard results that no longer match the live state.
package domain

import (
	"time"
)

// Event is the base interface for all engine events.
type Event interface {
	// Type returns the event type identifier.
	Type() EventType

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Event type constants.
const (
	EventPlaybackStarted  EventType = "playback.started"
	EventPlaybackPaused   EventType = "playback.paused"
	EventPlaybackResumed  EventType = "playback.resumed"
	EventPlaybackStopped  EventType = "playback.stopped"
	EventPlaybackFinished EventType = "playback.finished"
	EventPlaybackProgress EventType = "playback.progress"
	EventPlaybackError    EventType = "playback.error"

	EventTrackResolved EventType = "track.resolved"
	EventResolveFailed EventType = "track.resolve_failed"

	EventPreloadReady  EventType = "preload.ready"
	EventPreloadFailed EventType = "preload.failed"

	EventCoverReady EventType = "cover.ready"

	EventPlayModeChanged EventType = "playmode.changed"
	EventQueueChanged    EventType = "queue.changed"
	EventQueueExhausted  EventType = "queue.exhausted"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// PlaybackStartedEvent is published when a track starts playing.
type PlaybackStartedEvent struct {
	baseEvent
	Track Track
	Index int
}

// Type returns the event type.
func (e PlaybackStartedEvent) Type() EventType { return EventPlaybackStarted }

// NewPlaybackStartedEvent creates a new PlaybackStartedEvent.
func NewPlaybackStartedEvent(track Track, index int) PlaybackStartedEvent {
	return PlaybackStartedEvent{baseEvent: newBaseEvent(), Track: track, Index: index}
}

// PlaybackPausedEvent is published when playback is paused.
type PlaybackPausedEvent struct {
	baseEvent
	Track    Track
	Position time.Duration
}

// Type returns the event type.
func (e PlaybackPausedEvent) Type() EventType { return EventPlaybackPaused }

// NewPlaybackPausedEvent creates a new PlaybackPausedEvent.
func NewPlaybackPausedEvent(track Track, position time.Duration) PlaybackPausedEvent {
	return PlaybackPausedEvent{baseEvent: newBaseEvent(), Track: track, Position: position}
}

// PlaybackResumedEvent is published when paused playback resumes.
type PlaybackResumedEvent struct {
	baseEvent
	Track    Track
	Position time.Duration
}

// Type returns the event type.
func (e PlaybackResumedEvent) Type() EventType { return EventPlaybackResumed }

// NewPlaybackResumedEvent creates a new PlaybackResumedEvent.
func NewPlaybackResumedEvent(track Track, position time.Duration) PlaybackResumedEvent {
	return PlaybackResumedEvent{baseEvent: newBaseEvent(), Track: track, Position: position}
}

// PlaybackStoppedEvent is published when playback stops.
type PlaybackStoppedEvent struct {
	baseEvent
	Track Track
}

// Type returns the event type.
func (e PlaybackStoppedEvent) Type() EventType { return EventPlaybackStopped }

// NewPlaybackStoppedEvent creates a new PlaybackStoppedEvent.
func NewPlaybackStoppedEvent(track Track) PlaybackStoppedEvent {
	return PlaybackStoppedEvent{baseEvent: newBaseEvent(), Track: track}
}

// PlaybackFinishedEvent is published when a track finishes naturally.
type PlaybackFinishedEvent struct {
	baseEvent
	Track Track
	Index int
}

// Type returns the event type.
func (e PlaybackFinishedEvent) Type() EventType { return EventPlaybackFinished }

// NewPlaybackFinishedEvent creates a new PlaybackFinishedEvent.
func NewPlaybackFinishedEvent(track Track, index int) PlaybackFinishedEvent {
	return PlaybackFinishedEvent{baseEvent: newBaseEvent(), Track: track, Index: index}
}

// PlaybackProgressEvent is published periodically during playback.
type PlaybackProgressEvent struct {
	baseEvent
	Position time.Duration
	Duration time.Duration
}

// Type returns the event type.
func (e PlaybackProgressEvent) Type() EventType { return EventPlaybackProgress }

// NewPlaybackProgressEvent creates a new PlaybackProgressEvent.
func NewPlaybackProgressEvent(position, duration time.Duration) PlaybackProgressEvent {
	return PlaybackProgressEvent{baseEvent: newBaseEvent(), Position: position, Duration: duration}
}

// PlaybackErrorEvent is published when a foreground playback attempt fails.
// Background prefetch failures never produce this event.
type PlaybackErrorEvent struct {
	baseEvent
	Track Track
	Err   error
}

// Type returns the event type.
func (e PlaybackErrorEvent) Type() EventType { return EventPlaybackError }

// NewPlaybackErrorEvent creates a new PlaybackErrorEvent.
func NewPlaybackErrorEvent(track Track, err error) PlaybackErrorEvent {
	return PlaybackErrorEvent{baseEvent: newBaseEvent(), Track: track, Err: err}
}

// TrackResolvedEvent is published when a remote track has been resolved to a
// locally playable file. Index is the queue index the resolution was issued
// for; it may be stale by the time the event arrives.
type TrackResolvedEvent struct {
	baseEvent
	Index     int
	AudioPath string
	CoverPath string
}

// Type returns the event type.
func (e TrackResolvedEvent) Type() EventType { return EventTrackResolved }

// NewTrackResolvedEvent creates a new TrackResolvedEvent.
func NewTrackResolvedEvent(index int, audioPath, coverPath string) TrackResolvedEvent {
	return TrackResolvedEvent{baseEvent: newBaseEvent(), Index: index, AudioPath: audioPath, CoverPath: coverPath}
}

// ResolveFailedEvent is published when a foreground resolution fails.
type ResolveFailedEvent struct {
	baseEvent
	Index int
	Err   error
}

// Type returns the event type.
func (e ResolveFailedEvent) Type() EventType { return EventResolveFailed }

// NewResolveFailedEvent creates a new ResolveFailedEvent.
func NewResolveFailedEvent(index int, err error) ResolveFailedEvent {
	return ResolveFailedEvent{baseEvent: newBaseEvent(), Index: index, Err: err}
}

// PreloadReadyEvent is published when a background prefetch completes.
type PreloadReadyEvent struct {
	baseEvent
	Index     int
	Direction Direction
	Path      string
}

// Type returns the event type.
func (e PreloadReadyEvent) Type() EventType { return EventPreloadReady }

// NewPreloadReadyEvent creates a new PreloadReadyEvent.
func NewPreloadReadyEvent(index int, dir Direction, path string) PreloadReadyEvent {
	return PreloadReadyEvent{baseEvent: newBaseEvent(), Index: index, Direction: dir, Path: path}
}

// PreloadFailedEvent is published when a background prefetch fails.
type PreloadFailedEvent struct {
	baseEvent
	Index     int
	Direction Direction
	Retries   int
}

// Type returns the event type.
func (e PreloadFailedEvent) Type() EventType { return EventPreloadFailed }

// NewPreloadFailedEvent creates a new PreloadFailedEvent.
func NewPreloadFailedEvent(index int, dir Direction, retries int) PreloadFailedEvent {
	return PreloadFailedEvent{baseEvent: newBaseEvent(), Index: index, Direction: dir, Retries: retries}
}

// CoverReadyEvent is published when a cover image has been cached locally.
type CoverReadyEvent struct {
	baseEvent
	TrackID int64
	Path    string
}

// Type returns the event type.
func (e CoverReadyEvent) Type() EventType { return EventCoverReady }

// NewCoverReadyEvent creates a new CoverReadyEvent.
func NewCoverReadyEvent(trackID int64, path string) CoverReadyEvent {
	return CoverReadyEvent{baseEvent: newBaseEvent(), TrackID: trackID, Path: path}
}

// PlayModeChangedEvent is published when the play mode changes.
type PlayModeChangedEvent struct {
	baseEvent
	Mode PlayMode
}

// Type returns the event type.
func (e PlayModeChangedEvent) Type() EventType { return EventPlayModeChanged }

// NewPlayModeChangedEvent creates a new PlayModeChangedEvent.
func NewPlayModeChangedEvent(mode PlayMode) PlayModeChangedEvent {
	return PlayModeChangedEvent{baseEvent: newBaseEvent(), Mode: mode}
}

// QueueChangedEvent is published when the queue contents or current index
// change.
type QueueChangedEvent struct {
	baseEvent
	Length int
	Index  int
}

// Type returns the event type.
func (e QueueChangedEvent) Type() EventType { return EventQueueChanged }

// NewQueueChangedEvent creates a new QueueChangedEvent.
func NewQueueChangedEvent(length, index int) QueueChangedEvent {
	return QueueChangedEvent{baseEvent: newBaseEvent(), Length: length, Index: index}
}

// QueueExhaustedEvent is published when sequential playback reaches the end
// of the queue and resets.
type QueueExhaustedEvent struct {
	baseEvent
}

// Type returns the event type.
func (e QueueExhaustedEvent) Type() EventType { return EventQueueExhausted }

// NewQueueExhaustedEvent creates a new QueueExhaustedEvent.
func NewQueueExhaustedEvent() QueueExhaustedEvent {
	return QueueExhaustedEvent{baseEvent: newBaseEvent()}
}
