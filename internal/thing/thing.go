package thing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Push-channel message types.
const (
	MessagePropertyStatus = "propertyStatus"
	MessageActionStatus   = "actionStatus"
	MessageAddEvent       = "addEvent"
	MessageError          = "error"
)

// Message is one push-channel notification, tagged by messageType.
type Message struct {
	MessageType string `json:"messageType"`
	Data        any    `json:"data"`
}

// Subscriber is a live connection interested in a thing's changes.
//
// Send must not block: implementations buffer internally and drop or
// disconnect on overflow. A dead subscriber is removed by whoever owns the
// connection; the thing never learns about transport failures.
type Subscriber interface {
	Send(data []byte)
}

// Default retention caps for the in-memory logs.
const (
	DefaultEventLogSize  = 100
	DefaultActionLogSize = 100
)

// availableAction pairs a registered action schema with its executor.
type availableAction struct {
	metadata Schema
	executor Executor
}

// validateInput checks input against the schema's "input" subschema, if one
// is declared.
func (a availableAction) validateInput(input any) error {
	raw, ok := a.metadata["input"]
	if !ok {
		return nil
	}
	sub, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	return Schema(sub).validateAs(input, ErrInvalidActionInput)
}

// Thing is the aggregate device model: identity and metadata, a set of
// properties, registries of action and event schemas, bounded action and
// event logs, and the set of live subscribers.
//
// Things are created once at startup and live for the process lifetime.
type Thing struct {
	id          string
	title       string
	types       []string
	description string

	mu               sync.RWMutex
	hrefPrefix       string
	properties       map[string]*Property
	propertyOrder    []string
	availableActions map[string]availableAction
	availableEvents  map[string]Schema
	actions          []*Action
	events           []Event
	eventLogSize     int
	actionLogSize    int
	subscribers      map[Subscriber]struct{}
	logger           Logger
}

// New creates an empty thing with the given identity and metadata.
func New(id, title string, types []string, description string) *Thing {
	if types == nil {
		types = []string{}
	}
	return &Thing{
		id:               id,
		title:            title,
		types:            types,
		description:      description,
		properties:       make(map[string]*Property),
		availableActions: make(map[string]availableAction),
		availableEvents:  make(map[string]Schema),
		subscribers:      make(map[Subscriber]struct{}),
		eventLogSize:     DefaultEventLogSize,
		actionLogSize:    DefaultActionLogSize,
		logger:           noopLogger{},
	}
}

// ID returns the thing's identifier.
func (t *Thing) ID() string { return t.id }

// Title returns the human-readable name.
func (t *Thing) Title() string { return t.title }

// Types returns the semantic type annotations.
func (t *Thing) Types() []string { return t.types }

// SetLogger sets the logger for the thing and its values.
func (t *Thing) SetLogger(logger Logger) {
	t.mu.Lock()
	t.logger = logger
	props := make([]*Property, 0, len(t.properties))
	for _, p := range t.properties {
		props = append(props, p)
	}
	t.mu.Unlock()

	for _, p := range props {
		p.value.SetLogger(logger)
	}
}

// SetRetention overrides the bounded log caps. Values below one are ignored.
func (t *Thing) SetRetention(events, actions int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if events > 0 {
		t.eventLogSize = events
	}
	if actions > 0 {
		t.actionLogSize = actions
	}
}

// SetHrefPrefix sets the path prefix this thing is mounted under. The server
// assigns "/0", "/1", … in multi-thing deployments and "" for a single thing.
func (t *Thing) SetHrefPrefix(prefix string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hrefPrefix = prefix
}

// HrefPrefix returns the assigned path prefix.
func (t *Thing) HrefPrefix() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.hrefPrefix
}

// AddProperty registers a property and wires its value's change
// notifications into the thing's subscriber fan-out.
func (t *Thing) AddProperty(p *Property) error {
	t.mu.Lock()
	if _, exists := t.properties[p.name]; exists {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPropertyExists, p.name)
	}
	t.properties[p.name] = p
	t.propertyOrder = append(t.propertyOrder, p.name)
	logger := t.logger
	t.mu.Unlock()

	p.value.SetLogger(logger)
	name := p.name
	p.value.OnUpdate(func(v any) {
		t.propertyNotify(name, v)
	})
	return nil
}

// Property returns the named property, or nil if absent.
func (t *Thing) Property(name string) *Property {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.properties[name]
}

// GetProperty returns the current value of the named property.
func (t *Thing) GetProperty(name string) (any, error) {
	p := t.Property(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrPropertyNotFound, name)
	}
	return p.Get(), nil
}

// SetProperty validates and commits a client-requested write.
func (t *Thing) SetProperty(name string, v any) error {
	p := t.Property(name)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrPropertyNotFound, name)
	}
	return p.Set(v)
}

// Properties returns a name-to-value snapshot of every property.
func (t *Thing) Properties() map[string]any {
	t.mu.RLock()
	order := make([]string, len(t.propertyOrder))
	copy(order, t.propertyOrder)
	props := make(map[string]*Property, len(t.properties))
	for name, p := range t.properties {
		props[name] = p
	}
	t.mu.RUnlock()

	// Values are read outside the thing lock; Value has its own mutex.
	out := make(map[string]any, len(order))
	for _, name := range order {
		out[name] = props[name].Get()
	}
	return out
}

// AddAvailableAction registers an action schema and the executor invoked for
// each request of it.
func (t *Thing) AddAvailableAction(name string, metadata Schema, executor Executor) {
	if metadata == nil {
		metadata = Schema{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.availableActions[name] = availableAction{metadata: metadata, executor: executor}
}

// AddAvailableEvent registers an event schema.
func (t *Thing) AddAvailableEvent(name string, metadata Schema) {
	if metadata == nil {
		metadata = Schema{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.availableEvents[name] = metadata
}

// RequestAction validates input against the named action's schema, appends a
// new action record, and schedules the executor on its own goroutine. It
// returns as soon as the action is pending; callers observe completion via
// the action log or the push channel.
//
// No record is created when the name is unknown or the input is invalid.
func (t *Thing) RequestAction(name string, input any) (*Action, error) {
	t.mu.RLock()
	avail, ok := t.availableActions[name]
	t.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}
	if err := avail.validateInput(input); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	a := newAction(t.id, name, input)

	t.mu.Lock()
	t.actions = append(t.actions, a)
	t.pruneActionsLocked()
	t.mu.Unlock()

	t.actionNotify(a)
	if a.transition(StatusPending) {
		t.actionNotify(a)
	}

	go t.runAction(a, avail.executor)
	return a, nil
}

// runAction drives one action to its terminal status.
func (t *Thing) runAction(a *Action, executor Executor) {
	err := t.executeIsolated(a, executor)

	switch {
	case errors.Is(err, context.Canceled):
		if a.transition(StatusCancelled) {
			t.actionNotify(a)
		}
	case err != nil:
		t.logger.Warn("action failed", "thing", t.id, "action", a.name, "id", a.id, "error", err)
		if a.fail(err.Error()) {
			t.actionNotify(a)
		}
	default:
		if a.transition(StatusCompleted) {
			t.actionNotify(a)
		}
		// Continuations run after the completed status is visible, so
		// subscribers see completion before its effects.
		for _, fn := range a.takeCompletions() {
			fn()
		}
	}
}

// executeIsolated runs the executor with panic isolation so a buggy strategy
// lands in the error status instead of crashing the process.
func (t *Thing) executeIsolated(a *Action, executor Executor) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action %s panicked: %v", a.name, r)
		}
	}()
	return executor.Execute(a.ctx, t, a.input)
}

// pruneActionsLocked evicts the oldest terminal records beyond the retention
// cap. In-flight actions are never evicted. Caller holds t.mu.
func (t *Thing) pruneActionsLocked() {
	excess := len(t.actions) - t.actionLogSize
	if excess <= 0 {
		return
	}
	kept := make([]*Action, 0, len(t.actions))
	for _, a := range t.actions {
		if excess > 0 && a.Status().Terminal() {
			excess--
			continue
		}
		kept = append(kept, a)
	}
	t.actions = kept
}

// GetAction returns the action record with the given name and id.
func (t *Thing) GetAction(name, id string) (*Action, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, a := range t.actions {
		if a.name == name && a.id == id {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrActionNotFound, name, id)
}

// CancelAction requests cancellation of an in-flight action. Cancelling an
// action already in a terminal state reports not-found: the caller is too
// late, the record is immutable.
func (t *Thing) CancelAction(name, id string) error {
	a, err := t.GetAction(name, id)
	if err != nil {
		return err
	}
	if a.Status().Terminal() {
		return fmt.Errorf("%w: %s/%s already %s", ErrActionNotFound, name, id, a.Status())
	}
	a.Cancel()
	return nil
}

// Actions returns descriptions of logged actions, newest last. An empty name
// selects all actions.
func (t *Thing) Actions(name string) []map[string]any {
	t.mu.RLock()
	prefix := t.hrefPrefix
	actions := make([]*Action, 0, len(t.actions))
	for _, a := range t.actions {
		if name == "" || a.name == name {
			actions = append(actions, a)
		}
	}
	t.mu.RUnlock()

	out := make([]map[string]any, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.Describe(prefix))
	}
	return out
}

// AddEvent emits an event. The event name must have been registered with
// AddAvailableEvent; if the registered schema declares a type, the payload
// is validated against it. The log keeps the newest eventLogSize entries.
func (t *Thing) AddEvent(name string, data any) error {
	t.mu.RLock()
	meta, ok := t.availableEvents[name]
	t.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEvent, name)
	}
	if data != nil {
		if err := meta.validateAs(data, ErrInvalidEventData); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	ev := NewEvent(name, data)

	t.mu.Lock()
	t.events = append(t.events, ev)
	if len(t.events) > t.eventLogSize {
		t.events = t.events[len(t.events)-t.eventLogSize:]
	}
	t.mu.Unlock()

	t.eventNotify(ev)
	return nil
}

// Events returns descriptions of retained events, oldest first. An empty
// name selects all events.
func (t *Thing) Events(name string) []map[string]any {
	t.mu.RLock()
	events := make([]Event, 0, len(t.events))
	for _, ev := range t.events {
		if name == "" || ev.Name == name {
			events = append(events, ev)
		}
	}
	t.mu.RUnlock()

	out := make([]map[string]any, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.describe())
	}
	return out
}

// Subscribe registers a live connection for change notifications.
func (t *Thing) Subscribe(s Subscriber) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subscribers[s] = struct{}{}
}

// Unsubscribe removes a connection. Removing an unknown subscriber is a
// no-op, so transport teardown paths can call it unconditionally.
func (t *Thing) Unsubscribe(s Subscriber) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.subscribers, s)
}

// SubscriberCount returns the number of live subscribers.
func (t *Thing) SubscriberCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subscribers)
}

// propertyNotify pushes a propertyStatus message.
func (t *Thing) propertyNotify(name string, v any) {
	t.broadcast(Message{
		MessageType: MessagePropertyStatus,
		Data:        map[string]any{name: v},
	})
}

// actionNotify pushes an actionStatus message with the current description.
func (t *Thing) actionNotify(a *Action) {
	t.broadcast(Message{
		MessageType: MessageActionStatus,
		Data:        a.Describe(t.HrefPrefix()),
	})
}

// eventNotify pushes an addEvent message.
func (t *Thing) eventNotify(ev Event) {
	t.broadcast(Message{
		MessageType: MessageAddEvent,
		Data:        ev.describe(),
	})
}

// broadcast serialises the message once, snapshots the subscriber set, and
// writes outside the thing lock. Subscriber.Send never blocks, so one dead
// or slow connection cannot stall the others or the producer.
func (t *Thing) broadcast(m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		t.logger.Error("failed to marshal notification", "thing", t.id, "error", err)
		return
	}

	t.mu.RLock()
	subs := make([]Subscriber, 0, len(t.subscribers))
	for s := range t.subscribers {
		subs = append(subs, s)
	}
	t.mu.RUnlock()

	for _, s := range subs {
		s.Send(data)
	}
}

// Description renders the schema-bearing description document served at the
// thing's root path. Output is deterministic for a fixed configuration.
func (t *Thing) Description() map[string]any {
	t.mu.RLock()
	prefix := t.hrefPrefix
	order := make([]string, len(t.propertyOrder))
	copy(order, t.propertyOrder)
	props := make(map[string]*Property, len(t.properties))
	for name, p := range t.properties {
		props[name] = p
	}
	actions := make(map[string]availableAction, len(t.availableActions))
	for name, a := range t.availableActions {
		actions[name] = a
	}
	events := make(map[string]Schema, len(t.availableEvents))
	for name, meta := range t.availableEvents {
		events[name] = meta
	}
	t.mu.RUnlock()

	properties := make(map[string]any, len(order))
	for _, name := range order {
		properties[name] = props[name].describe(prefix)
	}

	actionDescs := make(map[string]any, len(actions))
	for name, a := range actions {
		desc := a.metadata.clone()
		desc["links"] = []map[string]any{
			{"rel": "action", "href": prefix + "/actions/" + name},
		}
		actionDescs[name] = desc
	}

	eventDescs := make(map[string]any, len(events))
	for name, meta := range events {
		desc := meta.clone()
		desc["links"] = []map[string]any{
			{"rel": "event", "href": prefix + "/events/" + name},
		}
		eventDescs[name] = desc
	}

	base := prefix
	if base == "" {
		base = "/"
	}

	return map[string]any{
		"id":          t.id,
		"title":       t.title,
		"@context":    "https://iot.mozilla.org/schemas",
		"@type":       t.types,
		"description": t.description,
		"properties":  properties,
		"actions":     actionDescs,
		"events":      eventDescs,
		"links": []map[string]any{
			{"rel": "properties", "href": prefix + "/properties"},
			{"rel": "actions", "href": prefix + "/actions"},
			{"rel": "events", "href": prefix + "/events"},
			{"rel": "alternate", "href": base},
		},
		"href": base,
	}
}
