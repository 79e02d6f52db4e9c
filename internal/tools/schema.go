package tools

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/soyeahso/mcpchat/internal/domain"
)

// Kind is the type of a tool parameter.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
	KindAny     Kind = "any"
)

// Field is one converted tool parameter.
type Field struct {
	Kind        Kind
	Description string
	Optional    bool
}

// FieldFromProperty converts a JSON Schema property. Unknown or missing
// types become KindAny. The result is required; callers set Optional.
func FieldFromProperty(prop map[string]any) Field {
	f := Field{Kind: KindAny}
	if d, ok := prop["description"].(string); ok {
		f.Description = d
	}
	switch t, _ := prop["type"].(string); t {
	case "string":
		f.Kind = KindString
	case "number":
		f.Kind = KindNumber
	case "boolean":
		f.Kind = KindBoolean
	case "array":
		f.Kind = KindArray
	case "object":
		f.Kind = KindObject
	}
	return f
}

// ObjectSchema is the converted parameter object of a tool. It is open:
// keys without a field are accepted as-is.
type ObjectSchema struct {
	Fields map[string]Field
}

// ObjectSchemaFrom converts an MCP input schema. A schema without
// properties yields an empty object.
func ObjectSchemaFrom(in mcp.ToolInputSchema) ObjectSchema {
	s := ObjectSchema{Fields: map[string]Field{}}
	required := make(map[string]bool, len(in.Required))
	for _, name := range in.Required {
		required[name] = true
	}
	for name, raw := range in.Properties {
		prop, _ := raw.(map[string]any)
		f := FieldFromProperty(prop)
		f.Optional = !required[name]
		s.Fields[name] = f
	}
	return s
}

// Validate checks args against the schema.
func (s ObjectSchema) Validate(args map[string]any) error {
	for _, name := range s.fieldNames() {
		f := s.Fields[name]
		v, present := args[name]
		if !present || v == nil {
			if f.Optional || f.Kind == KindAny {
				continue
			}
			return domain.Invalid(name, "is required")
		}
		if !f.accepts(v) {
			return domain.Invalid(name, fmt.Sprintf("expected %s", f.Kind))
		}
	}
	return nil
}

func (f Field) accepts(v any) bool {
	switch f.Kind {
	case KindString:
		_, ok := v.(string)
		return ok
	case KindNumber:
		switch v.(type) {
		case float64, float32, int, int32, int64, uint, uint32, uint64, json.Number:
			return true
		}
		return false
	case KindBoolean:
		_, ok := v.(bool)
		return ok
	case KindArray:
		_, ok := v.([]any)
		return ok
	case KindObject:
		_, ok := v.(map[string]any)
		return ok
	}
	return true
}

// JSONSchema renders the converted schema as a JSON Schema object.
func (s ObjectSchema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Fields))
	required := []string{}
	for _, name := range s.fieldNames() {
		f := s.Fields[name]
		p := map[string]any{}
		switch f.Kind {
		case KindAny:
		case KindArray:
			p["type"] = "array"
			p["items"] = map[string]any{}
		default:
			p["type"] = string(f.Kind)
		}
		if f.Description != "" {
			p["description"] = f.Description
		}
		props[name] = p
		if !f.Optional {
			required = append(required, name)
		}
	}
	out := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": true,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func (s ObjectSchema) fieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
