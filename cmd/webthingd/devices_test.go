package main

import (
	"testing"
	"time"

	"github.com/openhomelab/webthingd/internal/infrastructure/config"
	"github.com/openhomelab/webthingd/internal/infrastructure/logging"
	"github.com/openhomelab/webthingd/internal/thing"
)

func testLog() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"}, "test")
}

func TestMakeLight(t *testing.T) {
	lamp := makeLight(testLog())

	if lamp.ID() != "urn:dev:ops:my-lamp-1234" {
		t.Errorf("ID = %q", lamp.ID())
	}

	props := lamp.Properties()
	if props["on"] != true {
		t.Errorf("on = %v, want true", props["on"])
	}
	if props["level"] != 50 {
		t.Errorf("level = %v, want 50", props["level"])
	}

	desc := lamp.Description()
	actions := desc["actions"].(map[string]any)
	if _, ok := actions["fade"]; !ok {
		t.Error("fade action missing from description")
	}
	events := desc["events"].(map[string]any)
	if _, ok := events["overheated"]; !ok {
		t.Error("overheated event missing from description")
	}
}

func TestFade(t *testing.T) {
	t.Run("applies level and emits overheated", func(t *testing.T) {
		lamp := makeLight(testLog())

		a, err := lamp.RequestAction("fade", map[string]any{"level": 100.0, "duration": 20.0})
		if err != nil {
			t.Fatalf("RequestAction() error = %v", err)
		}

		waitStatus(t, a, thing.StatusCompleted)
		waitLevel(t, lamp, 100.0)

		events := lamp.Events("overheated")
		if len(events) != 1 {
			t.Fatalf("overheated events = %d, want 1", len(events))
		}
		body := events[0]["overheated"].(map[string]any)
		if body["data"] != overheatedTemperature {
			t.Errorf("overheated data = %v, want %v", body["data"], overheatedTemperature)
		}
	})

	t.Run("rejects input missing duration", func(t *testing.T) {
		lamp := makeLight(testLog())
		if _, err := lamp.RequestAction("fade", map[string]any{"level": 100.0}); err == nil {
			t.Error("RequestAction() without duration succeeded")
		}
	})

	t.Run("cancelled fade changes nothing", func(t *testing.T) {
		lamp := makeLight(testLog())

		a, err := lamp.RequestAction("fade", map[string]any{"level": 100.0, "duration": 60000.0})
		if err != nil {
			t.Fatalf("RequestAction() error = %v", err)
		}
		if err := lamp.CancelAction("fade", a.ID()); err != nil {
			t.Fatalf("CancelAction() error = %v", err)
		}

		waitStatus(t, a, thing.StatusCancelled)

		if got, _ := lamp.GetProperty("level"); got != 50 {
			t.Errorf("level after cancelled fade = %v, want 50", got)
		}
		if got := len(lamp.Events("overheated")); got != 0 {
			t.Errorf("overheated events after cancelled fade = %d, want 0", got)
		}
	})
}

func TestHumiditySensorPoller(t *testing.T) {
	sensor := makeHumiditySensor(testLog())

	if err := sensor.SetProperty("level", 10.0); err == nil {
		t.Error("client write to read-only level succeeded")
	}

	// The poller pushes readings through the device-driven path.
	level := sensor.Property("level").Value()
	level.NotifyOfExternalUpdate(33.3)
	if got, _ := sensor.GetProperty("level"); got != 33.3 {
		t.Errorf("level after external update = %v, want 33.3", got)
	}
}

func TestReadHumidity(t *testing.T) {
	for i := 0; i < 100; i++ {
		if v := readHumidity(); v < 0 || v > 100 {
			t.Fatalf("readHumidity() = %v, want within 0-100", v)
		}
	}
}

func waitStatus(t *testing.T, a *thing.Action, want thing.Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if a.Status() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("status = %s, want %s", a.Status(), want)
}

func waitLevel(t *testing.T, lamp *thing.Thing, want float64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got, _ := lamp.GetProperty("level"); got == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	got, _ := lamp.GetProperty("level")
	t.Fatalf("level = %v, want %v", got, want)
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("WEBTHINGD_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("WEBTHINGD_CONFIG", "/etc/webthingd.yaml")
	if got := getConfigPath(); got != "/etc/webthingd.yaml" {
		t.Errorf("getConfigPath() = %q, want env override", got)
	}
}
