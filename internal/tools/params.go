package tools

import (
	"fmt"
	"strconv"
)

// Kind is the declared type of a tool parameter
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBoolean
	KindEnum
	// KindJSONArray is a string argument that must hold a JSON array
	KindJSONArray
	// KindJSONObject is a string argument that must hold a JSON object
	KindJSONObject
)

// Param declares one named tool parameter
type Param struct {
	Name        string
	Wire        string // upstream parameter name when it differs from Name
	Description string
	Kind        Kind
	Required    bool
	Default     any
	Enum        []string
}

// WireName returns the name the parameter is sent under
func (p Param) WireName() string {
	if p.Wire != "" {
		return p.Wire
	}
	return p.Name
}

func (p Param) jsonType() string {
	switch p.Kind {
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	default:
		return "string"
	}
}

// Args holds validated arguments keyed by parameter name
type Args map[string]any

// Has reports whether name carries a usable value
func (a Args) Has(name string) bool {
	v, ok := a[name]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

// Positive reports whether name holds a number greater than zero
func (a Args) Positive(name string) bool {
	switch v := a[name].(type) {
	case float64:
		return v > 0
	case int:
		return v > 0
	default:
		return false
	}
}

// String returns the wire form of an argument and whether it is present
func (a Args) String(name string) (string, bool) {
	if !a.Has(name) {
		return "", false
	}
	switch v := a[name].(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return fmt.Sprint(v), true
	}
}

// inputSchema renders params as the JSON Schema object advertised in tools/list
// and used for per-field validation.
func inputSchema(params []Param) map[string]interface{} {
	properties := make(map[string]interface{}, len(params))
	requiredNames := []string{}

	for _, p := range params {
		prop := map[string]interface{}{
			"type":        p.jsonType(),
			"description": p.Description,
		}
		if p.Kind == KindEnum && len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		properties[p.Name] = prop
		if p.Required {
			requiredNames = append(requiredNames, p.Name)
		}
	}

	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(requiredNames) > 0 {
		schema["required"] = requiredNames
	}
	return schema
}
