// Package api provides the HTTP REST API and WebSocket push channel for
// webthingd.
//
// It multiplexes one or more Things behind a single listener: a lone thing
// is addressed at the root path, multiple things under index-prefixed paths
// with a listing endpoint at the root. Each thing's path also accepts a
// WebSocket upgrade, turning the connection into a push channel for live
// property, action, and event notifications.
//
// The server follows the standard lifecycle pattern:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Stop()
//
// Start and Stop are idempotent. Stop closes every live push connection,
// withdraws mDNS presence, and releases the listener.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
