// Package thing implements the device-abstraction runtime for webthingd.
//
// A Thing models a single physical or simulated device as a set of typed,
// observable properties, asynchronous cancellable actions, and emitted
// events. Device drivers construct Things, wire hardware reads into Values
// and hardware behaviour into action Executors, and hand the Things to the
// API server, which exposes them over HTTP and WebSocket.
//
// # Key Types
//
//   - Value: reactive storage cell with equality-gated change notification
//   - Property: named, JSON Schema validated wrapper around a Value
//   - Action: asynchronous unit of work with a forward-only status machine
//   - Event: immutable, timestamped occurrence record
//   - Thing: the aggregate tying the above together with a subscriber set
//
// # Usage
//
//	lamp := thing.New("urn:dev:ops:lamp-1", "My Lamp",
//		[]string{"OnOffSwitch", "Light"}, "A web connected lamp")
//
//	level := thing.NewValue(float64(50))
//	lamp.AddProperty(thing.NewProperty("level", level, thing.Schema{
//		"type":    "number",
//		"minimum": float64(0),
//		"maximum": float64(100),
//	}))
//
//	lamp.AddAvailableAction("fade", fadeMeta, thing.ExecutorFunc(runFade))
//	lamp.AddAvailableEvent("overheated", thing.Schema{"type": "number"})
//
// Client-requested writes go through Property.Set and are validated against
// the declared schema before the Value is touched. Device-driven updates go
// through Value.NotifyOfExternalUpdate and bypass validation, since the
// device is authoritative for its own state. Both paths share the same
// notification pipeline once committed.
//
// # Thread Safety
//
// All exported methods are safe for concurrent use. A Thing's internal
// registries, logs, and subscriber set are guarded by a per-Thing mutex;
// operations on independent Things never contend. Notification fan-out
// serialises the message first and writes to subscribers outside the
// Thing lock, so a slow subscriber cannot stall the device runtime.
package thing
