// Package events fans analysis notifications out to registered observers.
package events

import (
	"context"
	"log/slog"
	"sync"
)

// Event is a notification with an optional typed payload.
type Event struct {
	// Type is the event type, e.g. "deck:analyzed".
	Type string

	// Data is the payload, usually one of the message types in this package.
	Data any

	Context context.Context
}

// Observer receives events it has asked for.
type Observer interface {
	// OnEvent handles one event. Errors are logged by the dispatcher.
	OnEvent(event Event) error

	// Name identifies the observer in logs.
	Name() string

	// ShouldHandle filters by event type.
	ShouldHandle(eventType string) bool
}

// Dispatcher delivers events to observers. It is safe for concurrent use.
type Dispatcher struct {
	mu        sync.RWMutex
	observers []Observer
	logger    *slog.Logger
}

// NewDispatcher creates a Dispatcher. A nil logger uses slog.Default().
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger.With(slog.String("component", "events"))}
}

// Register adds an observer for all future events.
func (d *Dispatcher) Register(observer Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.observers = append(d.observers, observer)
	d.logger.Debug("observer registered", slog.String("observer", observer.Name()))
}

// Unregister removes an observer.
func (d *Dispatcher) Unregister(observer Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, obs := range d.observers {
		if obs == observer {
			d.observers = append(d.observers[:i], d.observers[i+1:]...)
			return
		}
	}
}

// Dispatch notifies observers in registration order. A failing observer does
// not stop delivery to the rest.
func (d *Dispatcher) Dispatch(event Event) {
	for _, obs := range d.snapshot() {
		if !obs.ShouldHandle(event.Type) {
			continue
		}
		if err := obs.OnEvent(event); err != nil {
			d.logger.Warn("observer failed",
				slog.String("observer", obs.Name()),
				slog.String("event", event.Type),
				slog.Any("error", err),
			)
		}
	}
}

// ObserverCount returns the number of registered observers.
func (d *Dispatcher) ObserverCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.observers)
}

func (d *Dispatcher) snapshot() []Observer {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Observer, len(d.observers))
	copy(out, d.observers)
	return out
}

// NewTypedEvent creates an Event carrying data.
func NewTypedEvent[T any](ctx context.Context, eventType string, data T) Event {
	return Event{Type: eventType, Data: data, Context: ctx}
}

// GetTypedData extracts the payload as T.
func GetTypedData[T any](event Event) (T, bool) {
	typed, ok := event.Data.(T)
	return typed, ok
}
