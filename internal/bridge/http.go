// Package bridge exposes the operations of an OpenAPI document as MCP
// tools and executes tool calls against the backing HTTP API.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/brwse/bridge/internal/common"
	"github.com/brwse/bridge/internal/openapi"
)

// maxResponseBytes bounds how much of a backend response body is read.
const maxResponseBytes = 50 * 1024 * 1024

// HTTPBridge turns an OpenAPI document into a set of callable tools.
// It holds no per-call state; schemas and descriptors are recomputed from
// the immutable document on every invocation, so it is safe for
// concurrent use.
type HTTPBridge struct {
	doc     *openapi.Document
	catalog *openapi.Catalog
	baseURL string
	client  *http.Client
	logger  *common.Logger
}

// NewHTTPBridge builds a bridge for doc. baseURL may be empty, in which
// case the document's first declared server is used.
func NewHTTPBridge(doc *openapi.Document, baseURL string, timeout time.Duration, logger *common.Logger) (*HTTPBridge, error) {
	resolved, err := doc.BaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = common.NewDefaultLogger()
	}
	return &HTTPBridge{
		doc:     doc,
		catalog: openapi.NewCatalog(doc),
		baseURL: strings.TrimRight(resolved, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// BaseURL returns the resolved backend base URL.
func (b *HTTPBridge) BaseURL() string { return b.baseURL }

// toolDescription picks a human-readable description for an operation:
// summary, then description, then "METHOD path".
func toolDescription(info openapi.ToolInfo) string {
	if info.Operation.Summary != "" {
		return info.Operation.Summary
	}
	if info.Operation.Description != "" {
		return info.Operation.Description
	}
	return info.Method + " " + info.Path
}

// Tools returns one page of tool descriptors with synthesized input
// schemas. nextCursor is empty on the final page.
func (b *HTTPBridge) Tools(_ context.Context, cursor string, limit int) ([]mcp.Tool, string, error) {
	infos, nextCursor := b.catalog.List(cursor, limit)
	tools := make([]mcp.Tool, 0, len(infos))
	for _, info := range infos {
		schema := openapi.SynthesizeInputSchema(info.Operation, b.doc.Model)
		raw, err := json.Marshal(schema)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode input schema for %s: %w", info.ID, err)
		}
		tools = append(tools, mcp.NewToolWithRawSchema(info.ID, toolDescription(info), raw))
	}
	return tools, nextCursor, nil
}

// Execute resolves toolID, validates args against the operation's input
// schema, then performs the HTTP request. Unknown tools, invalid
// arguments and unsupported methods fail as errors; transport failures
// and backend error statuses come back as tool results.
func (b *HTTPBridge) Execute(ctx context.Context, toolID string, args map[string]any) (*mcp.CallToolResult, error) {
	info, ok := b.catalog.Find(toolID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, toolID)
	}

	schema := openapi.SynthesizeInputSchema(info.Operation, b.doc.Model)
	if err := validateArguments(schema, args); err != nil {
		return nil, err
	}

	req, err := b.buildRequest(ctx, info, args)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	b.logger.Debug().Str("tool", toolID).Str("method", info.Method).Str("url", req.URL.String()).Msg("executing request")

	resp, err := b.client.Do(req)
	if err != nil {
		b.logger.Warn().Str("tool", toolID).Str("error", err.Error()).Msg("request failed")
		return errorResult(fmt.Sprintf("HTTP request failed: %v", err)), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	b.logger.Debug().Str("tool", toolID).Int("status", resp.StatusCode).Int64("duration_ms", time.Since(start).Milliseconds()).Msg("request complete")

	// Backend status codes are passed through as content; a 4xx/5xx is
	// still a successful tool call.
	if len(body) > 0 {
		return textResult(string(body)), nil
	}
	return jsonResult(map[string]int{"status": resp.StatusCode}), nil
}

// validateArguments checks args against the synthesized input schema.
// Runs strictly before any network effect.
func validateArguments(schema map[string]any, args map[string]any) error {
	// Draft-4 does not allow an empty required array; drop it for
	// validation only, the advertised schema keeps it.
	if req, ok := schema["required"].([]string); ok && len(req) == 0 {
		trimmed := make(map[string]any, len(schema))
		for k, v := range schema {
			trimmed[k] = v
		}
		delete(trimmed, "required")
		schema = trimmed
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to encode input schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	// OpenAPI 3.0 schemas use draft-4 conventions, notably boolean
	// exclusiveMinimum/exclusiveMaximum.
	compiler.DefaultDraft(jsonschema.Draft4)
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to decode input schema: %w", err)
	}
	if err := compiler.AddResource("bridge://input-schema", doc); err != nil {
		return fmt.Errorf("failed to register input schema: %w", err)
	}
	compiled, err := compiler.Compile("bridge://input-schema")
	if err != nil {
		return fmt.Errorf("failed to compile input schema: %w", err)
	}

	// Round-trip so numbers carry the representation the validator expects.
	encoded, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to encode arguments: %w", err)
	}
	value, err := jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to decode arguments: %w", err)
	}
	if err := compiled.Validate(value); err != nil {
		return &InvalidParamsError{Diagnostic: err.Error(), Payload: args}
	}
	return nil
}

// buildRequest assembles the outgoing HTTP request: path substitution,
// query string in declaration order, headers from args["headers"], and a
// JSON body when args["body"] is present.
func (b *HTTPBridge) buildRequest(ctx context.Context, info openapi.ToolInfo, args map[string]any) (*http.Request, error) {
	switch info.Method {
	case "GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS":
	default:
		return nil, fmt.Errorf("%w: %s", ErrMethodNotSupported, info.Method)
	}

	target := b.baseURL + info.Path
	var queryParts []string
	headers := http.Header{}

	headerArgs, _ := args["headers"].(map[string]any)

	for _, param := range info.Operation.Parameters {
		switch param.In {
		case "path":
			value, ok := args[param.Name]
			if !ok {
				continue
			}
			style := param.Style
			if style == "" {
				style = openapi.StyleSimple
			}
			serialized := openapi.SerializePathParam(param.Name, value, style, explodeOrDefault(param, false))
			target = strings.ReplaceAll(target, "{"+param.Name+"}", serialized)
		case "query":
			value, ok := args[param.Name]
			if !ok {
				continue
			}
			style := param.Style
			if style == "" {
				style = openapi.StyleForm
			}
			for _, pair := range openapi.SerializeQueryParam(param.Name, value, style, explodeOrDefault(param, true)) {
				queryParts = append(queryParts, url.QueryEscape(pair.Key)+"="+url.QueryEscape(pair.Value))
			}
		case "header":
			value, ok := headerArgs[param.Name]
			if !ok {
				continue
			}
			headers.Set(param.Name, openapi.SerializeHeaderParam(value, explodeOrDefault(param, false)))
		}
	}

	if len(queryParts) > 0 {
		// Built by hand so pairs keep declaration order.
		target += "?" + strings.Join(queryParts, "&")
	}

	var bodyReader io.Reader
	if body, ok := args["body"]; ok {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
		headers.Set("Content-Type", "application/json")
	}

	req, err := http.NewRequestWithContext(ctx, info.Method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, values := range headers {
		for _, v := range values {
			req.Header.Set(k, v)
		}
	}
	return req, nil
}

func explodeOrDefault(param *v3.Parameter, def bool) bool {
	if param.Explode == nil {
		return def
	}
	return *param.Explode
}
