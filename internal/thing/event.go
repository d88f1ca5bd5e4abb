package thing

import "time"

// Event is an immutable, timestamped occurrence record emitted by a Thing.
// Events are fire-and-forget: subscribers connected at emission time get a
// push, later readers only see what remains in the thing's bounded log.
type Event struct {
	Name      string
	Data      any
	Timestamp time.Time
}

// NewEvent stamps an event with the current time.
func NewEvent(name string, data any) Event {
	return Event{
		Name:      name,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// describe renders the wire shape: the event name mapping to its payload
// and RFC 3339 timestamp.
func (e Event) describe() map[string]any {
	body := map[string]any{
		"timestamp": e.Timestamp.Format(time.RFC3339),
	}
	if e.Data != nil {
		body["data"] = e.Data
	}
	return map[string]any{e.Name: body}
}
