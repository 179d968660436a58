package openapi

import (
	"strings"

	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
)

// SynthesizeInputSchema builds the tool argument schema for one operation.
//
// Path and query parameters become top-level properties; header parameters
// are grouped under a nested "headers" object; a JSON request body becomes
// the "body" property. Path parameters are always required. If any header
// is required, "headers" itself is required so callers cannot omit the
// whole group.
func SynthesizeInputSchema(op *v3.Operation, doc *v3.Document) map[string]any {
	properties := map[string]any{}
	required := []string{}
	headerProperties := map[string]any{}
	headerRequired := []string{}

	for _, param := range op.Parameters {
		if param == nil {
			continue
		}
		schema := parameterSchema(param, doc)

		switch strings.ToLower(param.In) {
		case "query":
			properties[param.Name] = schema
			if param.Required != nil && *param.Required {
				required = append(required, param.Name)
			}
		case "path":
			// Path parameters are mandatory regardless of the declared flag.
			properties[param.Name] = schema
			required = append(required, param.Name)
		case "header":
			headerProperties[param.Name] = schema
			if param.Required != nil && *param.Required {
				headerRequired = append(headerRequired, param.Name)
			}
		}
	}

	if len(headerProperties) > 0 {
		headersSchema := map[string]any{
			"type":       "object",
			"properties": headerProperties,
		}
		if len(headerRequired) > 0 {
			headersSchema["required"] = headerRequired
			required = append(required, "headers")
		}
		properties["headers"] = headersSchema
	}

	if op.RequestBody != nil && op.RequestBody.Content != nil {
		if media := op.RequestBody.Content.GetOrZero("application/json"); media != nil && media.Schema != nil {
			properties["body"] = ResolveSchema(media.Schema, doc)
			if op.RequestBody.Required != nil && *op.RequestBody.Required {
				required = append(required, "body")
			}
		}
	}

	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// parameterSchema resolves a parameter's schema, looking through an
// application/json content entry when no direct schema is declared.
// A parameter with neither falls back to a plain string.
func parameterSchema(param *v3.Parameter, doc *v3.Document) map[string]any {
	if param.Schema != nil {
		return ResolveSchema(param.Schema, doc)
	}
	if param.Content != nil {
		if media := param.Content.GetOrZero("application/json"); media != nil && media.Schema != nil {
			return ResolveSchema(media.Schema, doc)
		}
	}
	return map[string]any{"type": "string"}
}
