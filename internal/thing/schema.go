package thing

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is a JSON Schema fragment describing a property value, an action's
// input, or an event payload. It is stored as decoded JSON so that device
// drivers can declare metadata exactly as it appears on the wire:
//
//	thing.Schema{
//	    "type":        "number",
//	    "unit":        "percent",
//	    "minimum":     float64(0),
//	    "maximum":     float64(100),
//	    "description": "The level of light from 0-100",
//	}
//
// Annotation keys the validator does not understand (unit, @type, links,
// readOnly, description) are carried through to the description document
// untouched.
type Schema map[string]any

// ReadOnly reports whether the schema declares the value read-only.
func (s Schema) ReadOnly() bool {
	ro, _ := s["readOnly"].(bool)
	return ro
}

// Validate checks v against the schema. A nil or empty schema accepts any
// value. Violations are reported wrapped in ErrInvalidValue.
func (s Schema) Validate(v any) error {
	return s.validateAs(v, ErrInvalidValue)
}

// validateAs runs JSON Schema validation and wraps violations in the given
// sentinel so callers can distinguish property, action, and event failures.
func (s Schema) validateAs(v any, sentinel error) error {
	if len(s) == 0 {
		return nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(map[string]any(s)),
		gojsonschema.NewGoLoader(v),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", sentinel, err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return fmt.Errorf("%w: %s", sentinel, strings.Join(details, "; "))
	}
	return nil
}

// clone returns a shallow copy of the schema so description rendering cannot
// mutate registered metadata.
func (s Schema) clone() map[string]any {
	out := make(map[string]any, len(s)+1)
	for k, v := range s {
		out[k] = v
	}
	return out
}
