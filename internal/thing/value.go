package thing

import (
	"reflect"
	"sync"
)

// Observer receives the new value after a committed change.
type Observer func(v any)

// Value is a reactive storage cell. It holds the current reading for a
// property and notifies registered observers when the reading actually
// changes.
//
// Two write paths exist:
//
//   - Set is the client-requested path. The owning Property validates the
//     value against its schema before calling Set.
//   - NotifyOfExternalUpdate is the device-driven path (polling loops,
//     interrupt handlers). It bypasses schema validation because the device
//     is authoritative for its own state.
//
// Both paths are equality-gated: a write equal to the current value commits
// nothing and fires no observers. Values decoded from JSON contain maps and
// slices, so the gate uses structural equality rather than ==.
type Value struct {
	mu        sync.Mutex
	current   any
	observers []Observer
	logger    Logger
}

// NewValue creates a cell holding initial. Observers registered with
// OnUpdate are invoked for every subsequent committed change.
func NewValue(initial any) *Value {
	return &Value{
		current: initial,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger used to report observer failures.
func (v *Value) SetLogger(logger Logger) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.logger = logger
}

// OnUpdate registers an observer. Observers run synchronously on the
// writer's goroutine, in registration order.
func (v *Value) OnUpdate(fn Observer) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.observers = append(v.observers, fn)
}

// Get returns the current value.
func (v *Value) Get() any {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Set commits a client-requested write. The caller is responsible for
// schema validation; see Property.Set.
func (v *Value) Set(val any) {
	v.commit(val)
}

// NotifyOfExternalUpdate commits a device-driven write.
func (v *Value) NotifyOfExternalUpdate(val any) {
	v.commit(val)
}

// commit stores val and dispatches observers if the value changed.
//
// Dispatch happens under the cell lock so that concurrent writers cannot
// interleave notifications: observers see changes in commit order. Observers
// must therefore be fast and must not write the same Value re-entrantly.
// An observer panic is logged and absorbed; it does not undo the state
// change and does not prevent later observers from running.
func (v *Value) commit(val any) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if reflect.DeepEqual(v.current, val) {
		return
	}
	v.current = val

	for _, fn := range v.observers {
		v.dispatch(fn, val)
	}
}

// dispatch invokes a single observer with panic isolation.
func (v *Value) dispatch(fn Observer, val any) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("value observer panicked", "panic", r)
		}
	}()
	fn(val)
}
