package thing

import (
	"errors"
	"testing"
)

func TestProperty_Set(t *testing.T) {
	t.Run("valid value commits", func(t *testing.T) {
		p := NewProperty("level", NewValue(50.0), Schema{
			"type":    "number",
			"minimum": 0,
			"maximum": 100,
		})

		if err := p.Set(75.0); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if got := p.Get(); got != 75.0 {
			t.Errorf("Get() = %v, want 75", got)
		}
	})

	t.Run("above maximum rejected, value untouched", func(t *testing.T) {
		p := NewProperty("level", NewValue(50.0), Schema{
			"type":    "number",
			"maximum": 100,
		})
		notified := false
		p.Value().OnUpdate(func(any) { notified = true })

		err := p.Set(150.0)
		if !errors.Is(err, ErrInvalidValue) {
			t.Fatalf("Set() error = %v, want ErrInvalidValue", err)
		}
		if got := p.Get(); got != 50.0 {
			t.Errorf("Get() after rejected write = %v, want 50", got)
		}
		if notified {
			t.Error("observer fired for rejected write")
		}
	})

	t.Run("wrong type rejected", func(t *testing.T) {
		p := NewProperty("on", NewValue(true), Schema{"type": "boolean"})

		if err := p.Set("yes"); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("Set() error = %v, want ErrInvalidValue", err)
		}
	})

	t.Run("enum violation rejected", func(t *testing.T) {
		p := NewProperty("mode", NewValue("auto"), Schema{
			"type": "string",
			"enum": []any{"auto", "heat", "cool"},
		})

		if err := p.Set("defrost"); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("Set() error = %v, want ErrInvalidValue", err)
		}
		if err := p.Set("heat"); err != nil {
			t.Errorf("Set() of allowed enum value error = %v", err)
		}
	})

	t.Run("read-only rejects client writes", func(t *testing.T) {
		p := NewProperty("level", NewValue(30.0), Schema{
			"type":     "number",
			"readOnly": true,
		})

		if err := p.Set(40.0); !errors.Is(err, ErrReadOnlyProperty) {
			t.Errorf("Set() error = %v, want ErrReadOnlyProperty", err)
		}
		if got := p.Get(); got != 30.0 {
			t.Errorf("Get() = %v, want 30", got)
		}
	})

	t.Run("read-only allows device-driven updates", func(t *testing.T) {
		p := NewProperty("level", NewValue(30.0), Schema{
			"type":     "number",
			"readOnly": true,
		})

		p.Value().NotifyOfExternalUpdate(41.5)
		if got := p.Get(); got != 41.5 {
			t.Errorf("Get() after external update = %v, want 41.5", got)
		}
	})

	t.Run("empty schema accepts anything", func(t *testing.T) {
		p := NewProperty("free", NewValue(nil), Schema{})

		if err := p.Set(map[string]any{"nested": []any{1.0, 2.0}}); err != nil {
			t.Errorf("Set() error = %v", err)
		}
	})
}

func TestProperty_Describe(t *testing.T) {
	p := NewProperty("on", NewValue(true), Schema{"type": "boolean"})

	desc := p.describe("/3")
	links, ok := desc["links"].([]map[string]any)
	if !ok || len(links) != 1 {
		t.Fatalf("links = %v, want one entry", desc["links"])
	}
	if got := links[0]["href"]; got != "/3/properties/on" {
		t.Errorf("href = %v, want /3/properties/on", got)
	}
	if _, shared := p.metadata["links"]; shared {
		t.Error("describe mutated the property metadata")
	}
}
