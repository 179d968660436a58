package openapi

import (
	"strings"

	"github.com/pb33f/libopenapi/datamodel/high/base"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	yaml "go.yaml.in/yaml/v4"
)

const componentSchemaPrefix = "#/components/schemas/"

// knownFormats are the format names OpenAPI 3.0 defines for its primitive
// types. A recognized format is emitted lower-cased; anything else is
// carried through verbatim as a custom format.
var knownFormats = map[string]bool{
	"int32": true, "int64": true,
	"float": true, "double": true,
	"byte": true, "binary": true,
	"date": true, "date-time": true, "password": true,
}

// ResolveSchema resolves a schema or reference into a plain JSON Schema
// value. Resolution never fails: unresolvable or circular references
// degrade to descriptive stub objects. The result is freshly built on
// every call and is a pure function of (proxy, doc).
func ResolveSchema(proxy *base.SchemaProxy, doc *v3.Document) map[string]any {
	visited := make(map[string]bool)
	return resolveSchemaRef(proxy, doc, visited)
}

// resolveSchemaRef follows a reference if present. The visited set only
// guards against active recursion: a reference is removed once its target
// has been resolved, so sibling branches may resolve the same reference
// independently.
func resolveSchemaRef(proxy *base.SchemaProxy, doc *v3.Document, visited map[string]bool) map[string]any {
	if proxy == nil {
		return map[string]any{}
	}

	ref := proxy.GetReference()
	if ref == "" {
		return resolveSchemaObject(proxy.Schema(), doc, visited)
	}

	if visited[ref] {
		return map[string]any{
			"type":        "object",
			"description": "Circular reference to " + ref,
		}
	}
	visited[ref] = true
	defer delete(visited, ref)

	if name, ok := strings.CutPrefix(ref, componentSchemaPrefix); ok {
		if doc.Components != nil && doc.Components.Schemas != nil {
			if target := doc.Components.Schemas.GetOrZero(name); target != nil {
				return resolveSchemaObject(target.Schema(), doc, visited)
			}
		}
	}

	return map[string]any{
		"type":        "object",
		"description": "Unresolved reference to " + ref,
	}
}

func resolveSchemaObject(s *base.Schema, doc *v3.Document, visited map[string]bool) map[string]any {
	out := map[string]any{}
	if s == nil {
		return out
	}

	if s.Description != "" {
		out["description"] = s.Description
	}
	if s.Default != nil {
		out["default"] = nodeValue(s.Default)
	}
	if s.Example != nil {
		out["example"] = nodeValue(s.Example)
	}

	switch {
	case len(s.Type) > 0:
		resolveTypeSchema(s, doc, visited, out)
	case len(s.OneOf) > 0:
		out["oneOf"] = resolveSchemaList(s.OneOf, doc, visited)
	case len(s.AllOf) > 0:
		out["allOf"] = resolveSchemaList(s.AllOf, doc, visited)
	case len(s.AnyOf) > 0:
		out["anyOf"] = resolveSchemaList(s.AnyOf, doc, visited)
	case s.Not != nil:
		out["not"] = resolveSchemaRef(s.Not, doc, visited)
	default:
		// Open-ended schema: no type constraint, just a note.
		out["description"] = "Any type allowed"
	}

	return out
}

func resolveSchemaList(proxies []*base.SchemaProxy, doc *v3.Document, visited map[string]bool) []any {
	resolved := make([]any, 0, len(proxies))
	for _, p := range proxies {
		resolved = append(resolved, resolveSchemaRef(p, doc, visited))
	}
	return resolved
}

func resolveTypeSchema(s *base.Schema, doc *v3.Document, visited map[string]bool, out map[string]any) {
	switch s.Type[0] {
	case "string":
		out["type"] = "string"
		if s.Format != "" {
			out["format"] = normalizeFormat(s.Format)
		}
		if s.Pattern != "" {
			out["pattern"] = s.Pattern
		}
		if s.MinLength != nil {
			out["minLength"] = *s.MinLength
		}
		if s.MaxLength != nil {
			out["maxLength"] = *s.MaxLength
		}

	case "number", "integer":
		out["type"] = s.Type[0]
		if s.Format != "" {
			out["format"] = normalizeFormat(s.Format)
		}
		if s.Minimum != nil {
			out["minimum"] = *s.Minimum
		}
		if s.Maximum != nil {
			out["maximum"] = *s.Maximum
		}
		if s.ExclusiveMinimum != nil && s.ExclusiveMinimum.IsA() && s.ExclusiveMinimum.A {
			out["exclusiveMinimum"] = true
		}
		if s.ExclusiveMaximum != nil && s.ExclusiveMaximum.IsA() && s.ExclusiveMaximum.A {
			out["exclusiveMaximum"] = true
		}
		if s.MultipleOf != nil {
			out["multipleOf"] = *s.MultipleOf
		}

	case "boolean":
		out["type"] = "boolean"

	case "object":
		out["type"] = "object"
		if s.Properties != nil && s.Properties.Len() > 0 {
			properties := make(map[string]any, s.Properties.Len())
			for name, prop := range s.Properties.FromOldest() {
				properties[name] = resolveSchemaRef(prop, doc, visited)
			}
			out["properties"] = properties
			if len(s.Required) > 0 {
				out["required"] = append([]string(nil), s.Required...)
			}
		}
		if s.AdditionalProperties != nil {
			if s.AdditionalProperties.IsB() {
				out["additionalProperties"] = s.AdditionalProperties.B
			} else if s.AdditionalProperties.A != nil {
				out["additionalProperties"] = resolveSchemaRef(s.AdditionalProperties.A, doc, visited)
			}
		}
		if s.MinProperties != nil {
			out["minProperties"] = *s.MinProperties
		}
		if s.MaxProperties != nil {
			out["maxProperties"] = *s.MaxProperties
		}

	case "array":
		out["type"] = "array"
		if s.Items != nil && s.Items.A != nil {
			out["items"] = resolveSchemaRef(s.Items.A, doc, visited)
		}
		if s.MinItems != nil {
			out["minItems"] = *s.MinItems
		}
		if s.MaxItems != nil {
			out["maxItems"] = *s.MaxItems
		}
		if s.UniqueItems != nil && *s.UniqueItems {
			out["uniqueItems"] = true
		}
	}
}

func normalizeFormat(format string) string {
	if knownFormats[strings.ToLower(format)] {
		return strings.ToLower(format)
	}
	return format
}

// nodeValue decodes a document YAML node into a plain Go value.
func nodeValue(n *yaml.Node) any {
	if n == nil {
		return nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil
	}
	return v
}
