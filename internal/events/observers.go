package events

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
)

// LoggingObserver logs every event through slog.
type LoggingObserver struct {
	logger *slog.Logger
}

// NewLoggingObserver creates a LoggingObserver. A nil logger uses slog.Default().
func NewLoggingObserver(logger *slog.Logger) *LoggingObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{logger: logger}
}

// OnEvent logs the event type and payload.
func (o *LoggingObserver) OnEvent(event Event) error {
	o.logger.Debug("event", slog.String("type", event.Type), slog.Any("data", event.Data))
	return nil
}

// Name returns "logging".
func (o *LoggingObserver) Name() string { return "logging" }

// ShouldHandle accepts every event.
func (o *LoggingObserver) ShouldHandle(string) bool { return true }

// JSONObserver writes one JSON line per event to w.
type JSONObserver struct {
	mu    sync.Mutex
	enc   *json.Encoder
	types map[string]struct{}
}

// NewJSONObserver creates a JSONObserver. With no types it handles every event.
func NewJSONObserver(w io.Writer, types ...string) *JSONObserver {
	o := &JSONObserver{enc: json.NewEncoder(w)}
	if len(types) > 0 {
		o.types = make(map[string]struct{}, len(types))
		for _, t := range types {
			o.types[t] = struct{}{}
		}
	}
	return o
}

// OnEvent encodes {"type": ..., "data": ...}.
func (o *JSONObserver) OnEvent(event Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.enc.Encode(struct {
		Type string `json:"type"`
		Data any    `json:"data"`
	}{event.Type, event.Data})
}

// Name returns "json".
func (o *JSONObserver) Name() string { return "json" }

// ShouldHandle reports whether the event type was requested.
func (o *JSONObserver) ShouldHandle(eventType string) bool {
	if o.types == nil {
		return true
	}
	_, ok := o.types[eventType]
	return ok
}
