// Package mqtt provides the optional broker mirror for thing updates.
//
// When enabled, every push notification a thing produces is also published
// to the broker under webthings/{thingID}/updates, so dashboards and
// automations that already speak MQTT can follow device state without
// holding a WebSocket open. The mirror is strictly one-way and best-effort:
// request handling never waits on the broker, and a broker outage costs
// nothing but the mirrored copies.
package mqtt
