package discovery

import (
	"fmt"
	"sync"

	"github.com/grandcat/zeroconf"

	"github.com/openhomelab/webthingd/internal/infrastructure/logging"
)

// ServiceType is the mDNS service type for Web of Things servers.
const ServiceType = "_webthing._tcp"

// MDNS advertises a service record for the lifetime of the server.
type MDNS struct {
	domain string
	logger *logging.Logger

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewMDNS creates an advertiser for the given mDNS domain. An empty domain
// defaults to "local.".
func NewMDNS(domain string, logger *logging.Logger) *MDNS {
	if domain == "" {
		domain = "local."
	}
	return &MDNS{domain: domain, logger: logger}
}

// Advertise registers the service record. A second call replaces the
// previous registration.
func (m *MDNS) Advertise(instance string, port int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.server != nil {
		m.server.Shutdown()
		m.server = nil
	}

	srv, err := zeroconf.Register(instance, ServiceType, m.domain, port, []string{"path=/"}, nil)
	if err != nil {
		return fmt.Errorf("registering mdns service: %w", err)
	}
	m.server = srv

	m.logger.Info("mdns service advertised",
		"instance", instance,
		"type", ServiceType,
		"port", port,
	)
	return nil
}

// Withdraw removes the service record. Safe to call when nothing is
// advertised.
func (m *MDNS) Withdraw() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.server == nil {
		return
	}
	m.server.Shutdown()
	m.server = nil
	m.logger.Info("mdns service withdrawn")
}

// Noop is an advertiser that does nothing, used when discovery is disabled.
type Noop struct{}

// Advertise implements the advertiser contract without side effects.
func (Noop) Advertise(string, int) error { return nil }

// Withdraw implements the advertiser contract without side effects.
func (Noop) Withdraw() {}
