package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/openhomelab/webthingd/internal/infrastructure/logging"
	"github.com/openhomelab/webthingd/internal/thing"
)

// sensorPollInterval is how often the fake humidity hardware is read.
const sensorPollInterval = 3 * time.Second

// overheatedTemperature is the temperature reported by the lamp's overheated
// event after a fade completes.
const overheatedTemperature = 102

// makeLight builds a dimmable lamp: on/off and level properties, a fade
// action, and an overheated event.
func makeLight(log *logging.Logger) *thing.Thing {
	t := thing.New(
		"urn:dev:ops:my-lamp-1234",
		"My Lamp",
		[]string{"OnOffSwitch", "Light"},
		"A web connected lamp",
	)

	on := thing.NewValue(true)
	on.OnUpdate(func(v any) {
		log.Debug("lamp on/off changed", "value", v)
	})
	//nolint:errcheck // properties are unique at construction time
	t.AddProperty(thing.NewProperty("on", on, thing.Schema{
		"@type":       "OnOffProperty",
		"title":       "On/Off",
		"type":        "boolean",
		"description": "Whether the lamp is turned on",
	}))

	level := thing.NewValue(50)
	level.OnUpdate(func(v any) {
		log.Debug("lamp level changed", "value", v)
	})
	//nolint:errcheck
	t.AddProperty(thing.NewProperty("level", level, thing.Schema{
		"@type":       "BrightnessProperty",
		"title":       "Brightness",
		"type":        "integer",
		"description": "The level of light from 0-100",
		"minimum":     0,
		"maximum":     100,
		"unit":        "percent",
	}))

	t.AddAvailableEvent("overheated", thing.Schema{
		"description": "The lamp has exceeded its safe operating temperature",
		"type":        "number",
		"unit":        "degree celsius",
	})

	t.AddAvailableAction("fade", thing.Schema{
		"title":       "Fade",
		"description": "Fade the lamp to a given level",
		"input": map[string]any{
			"type":     "object",
			"required": []any{"level", "duration"},
			"properties": map[string]any{
				"level": map[string]any{
					"type":    "integer",
					"minimum": 0,
					"maximum": 100,
					"unit":    "percent",
				},
				"duration": map[string]any{
					"type":    "integer",
					"minimum": 1,
					"unit":    "milliseconds",
				},
			},
		},
	}, thing.ExecutorFunc(fadeExecutor))

	return t
}

// fadeExecutor waits the requested duration, then applies the level change
// and emits the overheated event as a completion continuation. A cancelled
// fade changes nothing.
func fadeExecutor(ctx context.Context, t *thing.Thing, input any) error {
	params, ok := input.(map[string]any)
	if !ok {
		return fmt.Errorf("fade: input must be an object")
	}
	level, err := numberParam(params, "level")
	if err != nil {
		return err
	}
	duration, err := numberParam(params, "duration")
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(duration) * time.Millisecond):
	}

	thing.OnComplete(ctx, func() {
		if setErr := t.SetProperty("level", level); setErr != nil {
			return
		}
		//nolint:errcheck // overheated is registered at construction time
		t.AddEvent("overheated", overheatedTemperature)
	})
	return nil
}

// numberParam extracts a numeric field from decoded JSON input.
func numberParam(params map[string]any, name string) (float64, error) {
	raw, ok := params[name]
	if !ok {
		return 0, fmt.Errorf("fade: missing %s", name)
	}
	n, ok := raw.(float64)
	if !ok {
		return 0, fmt.Errorf("fade: %s must be a number", name)
	}
	return n, nil
}

// makeHumiditySensor builds a fake sensor with a single read-only level
// property fed by a polling loop.
func makeHumiditySensor(log *logging.Logger) *thing.Thing {
	t := thing.New(
		"urn:dev:ops:my-humidity-sensor-1234",
		"My Humidity Sensor",
		[]string{"MultiLevelSensor"},
		"A web connected humidity sensor",
	)

	level := thing.NewValue(0.0)
	level.OnUpdate(func(v any) {
		log.Debug("humidity changed", "value", v)
	})
	//nolint:errcheck
	t.AddProperty(thing.NewProperty("level", level, thing.Schema{
		"@type":       "LevelProperty",
		"title":       "Humidity",
		"type":        "number",
		"description": "The current humidity in %",
		"minimum":     0,
		"maximum":     100,
		"unit":        "percent",
		"readOnly":    true,
	}))

	return t
}

// startSensorPoller reads the fake hardware on a ticker and pushes each
// reading into the sensor's level cell. Read-only means read-only to
// clients; the device-driven path bypasses validation.
func startSensorPoller(ctx context.Context, sensor *thing.Thing, log *logging.Logger) func() {
	level := sensor.Property("level").Value()

	pollCtx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(sensorPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				reading := readHumidity()
				log.Debug("humidity sampled", "value", reading)
				level.NotifyOfExternalUpdate(reading)
			}
		}
	}()
	return cancel
}

// readHumidity samples the pretend hardware.
func readHumidity() float64 {
	//nolint:gosec // demo data, not security sensitive
	return math.Abs(70.0 * rand.Float64() * (rand.Float64() - 0.5))
}
