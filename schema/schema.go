// Package schema validates values against declared JSON-Schema descriptors
// and renders them to a portable form for discovery documents (agent cards).
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"

	"github.com/agentweave/a2a/protocol"
)

// Schema is a JSON-Schema-like descriptor. It is typically a map[string]any
// decoded from a skill definition, but any value that encoding/json encodes
// to a JSON-Schema document works.
type Schema struct {
	raw any
}

// New wraps a raw JSON-Schema-shaped value (map[string]any, []byte holding
// JSON, or a *jsonschema.Schema such as FromStruct reflects) as a Schema.
func New(raw any) *Schema {
	if raw == nil {
		return nil
	}
	if b, ok := raw.([]byte); ok {
		raw = json.RawMessage(b)
	}
	return &Schema{raw: raw}
}

// FromStruct derives a JSON-Schema descriptor from a Go type via reflection,
// for callers who want typed skill I/O without hand-writing schemas.
func FromStruct(v any) *Schema {
	r := &jsonschema.Reflector{ExpandedStruct: true, DoNotReference: true}
	doc := r.Reflect(v)
	return &Schema{raw: doc}
}

// Validate checks value against the schema. It returns the canonical value
// (JSON round-tripped) on success, or a list of issues on failure.
func Validate(s *Schema, value any) (canonical any, issues []protocol.Issue, err error) {
	if s == nil {
		return value, nil, nil
	}

	schemaJSON, err := json.Marshal(s.raw)
	if err != nil {
		return nil, nil, fmt.Errorf("schema: marshal descriptor: %w", err)
	}
	valueJSON, err := json.Marshal(value)
	if err != nil {
		return nil, nil, fmt.Errorf("schema: marshal value: %w", err)
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaJSON)
	docLoader := gojsonschema.NewBytesLoader(valueJSON)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, nil, fmt.Errorf("schema: validate: %w", err)
	}

	if !result.Valid() {
		issues = make([]protocol.Issue, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			issues = append(issues, protocol.Issue{
				Path:    re.Field(),
				Code:    re.Type(),
				Message: re.Description(),
			})
		}
		return nil, issues, nil
	}

	var out any
	if err := json.Unmarshal(valueJSON, &out); err != nil {
		return nil, nil, fmt.Errorf("schema: decode canonical value: %w", err)
	}
	return out, nil, nil
}

// ToPortable renders s as a JSON-Schema-like object suitable for a discovery
// document. Failures are silent — an unrenderable schema simply contributes
// nothing to the agent card, per §4.A.
func ToPortable(s *Schema) any {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(s.raw)
	if err != nil {
		return nil
	}
	var portable any
	if err := json.Unmarshal(data, &portable); err != nil {
		return nil
	}
	return portable
}
