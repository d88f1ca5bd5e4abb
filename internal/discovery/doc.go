// Package discovery advertises a running webthingd server on the local
// network via multicast DNS, so gateways and controllers can find it without
// configuration. The service is registered under the _webthing._tcp type
// while the server runs and withdrawn on shutdown.
package discovery
