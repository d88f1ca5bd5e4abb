package mqtt

import "testing"

func TestTopics(t *testing.T) {
	topics := Topics{}

	if got := topics.ThingUpdates("my-lamp-1234"); got != "webthings/my-lamp-1234/updates" {
		t.Errorf("ThingUpdates() = %q, want webthings/my-lamp-1234/updates", got)
	}
	if got := topics.SystemStatus(); got != "webthings/system/status" {
		t.Errorf("SystemStatus() = %q, want webthings/system/status", got)
	}
}
