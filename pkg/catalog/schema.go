package catalog

import (
	"bytes"
	"fmt"
	"slices"
	"sort"

	"github.com/goccy/go-json"

	cerrors "github.com/blueberrycongee/llmcoach/pkg/errors"
)

// JSON Schema primitive types used by descriptors.
const (
	TypeObject  = "object"
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeArray   = "array"
)

// Schema is the parameter schema of a function: always a JSON object.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property is a single JSON Schema property.
type Property struct {
	Type        string              `json:"type"`
	Description string              `json:"description,omitempty"`
	Enum        []string            `json:"enum,omitempty"`
	Minimum     *float64            `json:"minimum,omitempty"`
	Maximum     *float64            `json:"maximum,omitempty"`
	Items       *Property           `json:"items,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
	Required    []string            `json:"required,omitempty"`
}

// Bound returns a pointer to v, for Minimum and Maximum.
func Bound(v float64) *float64 { return &v }

// Clone returns a deep copy of d.
func (d Descriptor) Clone() Descriptor {
	d.Parameters = d.Parameters.Clone()
	return d
}

// Clone returns a deep copy of s.
func (s Schema) Clone() Schema {
	s.Properties = cloneProperties(s.Properties)
	s.Required = slices.Clone(s.Required)
	return s
}

// Clone returns a deep copy of p.
func (p Property) Clone() Property {
	p.Enum = slices.Clone(p.Enum)
	p.Required = slices.Clone(p.Required)
	p.Properties = cloneProperties(p.Properties)
	if p.Minimum != nil {
		p.Minimum = Bound(*p.Minimum)
	}
	if p.Maximum != nil {
		p.Maximum = Bound(*p.Maximum)
	}
	if p.Items != nil {
		items := p.Items.Clone()
		p.Items = &items
	}
	return p
}

func cloneProperties(m map[string]Property) map[string]Property {
	if m == nil {
		return nil
	}
	out := make(map[string]Property, len(m))
	for k, v := range m {
		out[k] = v.Clone()
	}
	return out
}

// ValidateArguments checks raw against the descriptor registered under name.
// Arguments must decode to a JSON object carrying every required field;
// declared types, enums and numeric bounds are enforced. Undeclared fields
// are tolerated.
func (c *Catalog) ValidateArguments(name string, raw json.RawMessage) error {
	i, ok := c.index[name]
	if !ok {
		return cerrors.NewUnknownFunctionError(name)
	}
	d := c.list[i]
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("{}")
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return cerrors.NewMalformedArgumentsError(name, fmt.Errorf("arguments are not a JSON object: %w", err))
	}
	if args == nil {
		return cerrors.NewMalformedArgumentsError(name, fmt.Errorf("arguments are null"))
	}
	if err := validateObject("", args, d.Parameters.Properties, d.Parameters.Required); err != nil {
		return cerrors.NewMalformedArgumentsError(name, err)
	}
	return nil
}

func validateObject(path string, obj map[string]any, props map[string]Property, required []string) error {
	for _, r := range required {
		v, ok := obj[r]
		if !ok || v == nil {
			return fmt.Errorf("missing required field %q", join(path, r))
		}
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p, declared := props[k]
		if !declared || obj[k] == nil {
			continue
		}
		if err := validateValue(join(path, k), obj[k], p); err != nil {
			return err
		}
	}
	return nil
}

func validateValue(path string, v any, p Property) error {
	switch p.Type {
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("field %q must be a string", path)
		}
		if len(p.Enum) > 0 && !slices.Contains(p.Enum, s) {
			return fmt.Errorf("field %q must be one of %v, got %q", path, p.Enum, s)
		}
	case TypeNumber, TypeInteger:
		n, ok := v.(float64)
		if !ok {
			return fmt.Errorf("field %q must be a number", path)
		}
		if p.Type == TypeInteger && n != float64(int64(n)) {
			return fmt.Errorf("field %q must be an integer", path)
		}
		if p.Minimum != nil && n < *p.Minimum {
			return fmt.Errorf("field %q must be >= %g", path, *p.Minimum)
		}
		if p.Maximum != nil && n > *p.Maximum {
			return fmt.Errorf("field %q must be <= %g", path, *p.Maximum)
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("field %q must be a boolean", path)
		}
	case TypeArray:
		items, ok := v.([]any)
		if !ok {
			return fmt.Errorf("field %q must be an array", path)
		}
		if p.Items != nil {
			for i, item := range items {
				if err := validateValue(fmt.Sprintf("%s[%d]", path, i), item, *p.Items); err != nil {
					return err
				}
			}
		}
	case TypeObject:
		obj, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("field %q must be an object", path)
		}
		return validateObject(path, obj, p.Properties, p.Required)
	}
	return nil
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
