package discovery

import (
	"testing"

	"github.com/openhomelab/webthingd/internal/infrastructure/logging"
)

func TestNewMDNS_DefaultDomain(t *testing.T) {
	m := NewMDNS("", logging.Default())
	if m.domain != "local." {
		t.Errorf("domain = %q, want local.", m.domain)
	}

	m = NewMDNS("lan.", logging.Default())
	if m.domain != "lan." {
		t.Errorf("domain = %q, want lan.", m.domain)
	}
}

func TestMDNS_WithdrawWithoutAdvertise(t *testing.T) {
	m := NewMDNS("", logging.Default())
	// Must not panic or block when nothing is registered.
	m.Withdraw()
	m.Withdraw()
}

func TestNoop(t *testing.T) {
	var n Noop
	if err := n.Advertise("anything", 8888); err != nil {
		t.Errorf("Advertise() error = %v", err)
	}
	n.Withdraw()
}
