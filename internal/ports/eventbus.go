package ports

import (
	"github.com/halcyon-player/halcyon/internal/domain"
)

// EventBus publishes engine events to subscribers. It decouples the engine
// from whatever observes it (a UI shell, tray integration, logging).
//
// Implementations must be thread-safe: events are published from the
// controller's goroutines and subscriptions may change concurrently.
type EventBus interface {
	// Publish delivers an event to all subscribers of its type. Handlers
	// should return quickly; long work belongs on their own goroutines.
	Publish(event domain.Event)

	// Subscribe registers a handler for one event type and returns an id
	// for Unsubscribe. The same handler may be registered more than once.
	Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID

	// Unsubscribe removes a subscription; unknown ids are a no-op.
	Unsubscribe(id domain.SubscriptionID)

	// SubscribeAll registers a handler for every event regardless of type.
	SubscribeAll(handler domain.EventHandler) domain.SubscriptionID

	// Close shuts the bus down; further publishes are dropped.
	Close() error
}
