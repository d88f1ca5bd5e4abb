package thing

import "fmt"

// Property is a named, schema-described attribute of a Thing. It exclusively
// owns its Value; all client writes flow through Set so that every committed
// value satisfies the declared schema.
type Property struct {
	name     string
	value    *Value
	metadata Schema
}

// NewProperty creates a property wrapping value with the given schema
// metadata. The metadata map is retained; callers must not mutate it after
// construction.
func NewProperty(name string, value *Value, metadata Schema) *Property {
	return &Property{
		name:     name,
		value:    value,
		metadata: metadata,
	}
}

// Name returns the property name.
func (p *Property) Name() string {
	return p.name
}

// Metadata returns the declared schema.
func (p *Property) Metadata() Schema {
	return p.metadata
}

// Value returns the underlying cell. Device drivers use this to push
// external updates.
func (p *Property) Value() *Value {
	return p.value
}

// Get returns the current value.
func (p *Property) Get() any {
	return p.value.Get()
}

// Set validates v against the schema and commits it on success. Read-only
// properties reject every write. On failure the stored value is untouched
// and no notification fires.
func (p *Property) Set(v any) error {
	if p.metadata.ReadOnly() {
		return fmt.Errorf("%w: %s", ErrReadOnlyProperty, p.name)
	}
	if err := p.metadata.Validate(v); err != nil {
		return fmt.Errorf("%s: %w", p.name, err)
	}
	p.value.Set(v)
	return nil
}

// describe renders the schema plus a link to the property endpoint.
func (p *Property) describe(hrefPrefix string) map[string]any {
	desc := p.metadata.clone()
	desc["links"] = []map[string]any{
		{"rel": "property", "href": hrefPrefix + "/properties/" + p.name},
	}
	return desc
}
