package thing

import (
	"errors"
	"testing"
)

func TestSchema_Validate(t *testing.T) {
	tests := []struct {
		name    string
		schema  Schema
		value   any
		wantErr bool
	}{
		{"nil schema accepts anything", nil, "whatever", false},
		{"empty schema accepts anything", Schema{}, 3.14, false},
		{"boolean accepts bool", Schema{"type": "boolean"}, true, false},
		{"boolean rejects string", Schema{"type": "boolean"}, "true", true},
		{"number within range", Schema{"type": "number", "minimum": 0, "maximum": 100}, 50.0, false},
		{"number below minimum", Schema{"type": "number", "minimum": 0}, -1.0, true},
		{"number above maximum", Schema{"type": "number", "maximum": 100}, 150.0, true},
		{"integer accepts whole float", Schema{"type": "integer"}, 42.0, false},
		{"integer rejects fraction", Schema{"type": "integer"}, 42.5, true},
		{"object with required fields", Schema{
			"type":     "object",
			"required": []any{"level"},
			"properties": map[string]any{
				"level": map[string]any{"type": "integer"},
			},
		}, map[string]any{"level": 10.0}, false},
		{"object missing required field", Schema{
			"type":     "object",
			"required": []any{"level"},
		}, map[string]any{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate(tt.value)
			if tt.wantErr && !errors.Is(err, ErrInvalidValue) {
				t.Errorf("Validate() error = %v, want ErrInvalidValue", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
		})
	}
}

func TestSchema_ReadOnly(t *testing.T) {
	if (Schema{"readOnly": true}).ReadOnly() != true {
		t.Error("ReadOnly() = false, want true")
	}
	if (Schema{}).ReadOnly() != false {
		t.Error("ReadOnly() = true, want false")
	}
	if (Schema{"readOnly": "yes"}).ReadOnly() != false {
		t.Error("ReadOnly() with non-bool = true, want false")
	}
}

func TestSchema_CloneIsolation(t *testing.T) {
	s := Schema{"type": "number"}
	c := s.clone()
	c["links"] = "mutated"
	if _, ok := s["links"]; ok {
		t.Error("clone() shares storage with the schema")
	}
}
