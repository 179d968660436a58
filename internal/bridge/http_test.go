package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/brwse/bridge/internal/common"
	"github.com/brwse/bridge/internal/openapi"
)

const bridgeDoc = `
openapi: 3.0.3
info:
  title: bridge test
  version: "1.0"
paths:
  /users/{id}:
    get:
      operationId: getUser
      summary: Fetch a user
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: integer
            minimum: 1
            maximum: 1000
      responses:
        "200":
          description: ok
  /search:
    get:
      operationId: search
      parameters:
        - name: q
          in: query
          required: true
          schema:
            type: string
        - name: tags
          in: query
          schema:
            type: array
            items:
              type: string
        - name: X-Api-Key
          in: header
          required: true
          schema:
            type: string
        - name: X-Trace
          in: header
          schema:
            type: string
      responses:
        "200":
          description: ok
  /users:
    post:
      operationId: createUser
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              properties:
                name:
                  type: string
              required: [name]
      responses:
        "201":
          description: created
  /ping:
    get:
      description: Liveness check
      responses:
        "204":
          description: no content
`

type recordedRequest struct {
	method string
	path   string
	query  string
	header http.Header
	body   []byte
}

func newTestBridge(t *testing.T, handler http.HandlerFunc) (*HTTPBridge, *httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(backend.Close)

	doc, err := openapi.Parse([]byte(bridgeDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	b, err := NewHTTPBridge(doc, backend.URL, 5*time.Second, common.NewSilentLogger())
	if err != nil {
		t.Fatalf("NewHTTPBridge: %v", err)
	}
	return b, backend, &hits
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("expected one content item, got %d", len(result.Content))
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return tc.Text
}

func TestExecutePassesBackendBodyThrough(t *testing.T) {
	body := `{"id":1,"name":"A"}`
	b, _, hits := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/1" {
			t.Errorf("path = %q, want /users/1", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	})

	result, err := b.Execute(context.Background(), "getUser", map[string]any{"id": float64(1)})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.IsError {
		t.Fatal("unexpected isError")
	}
	if got := resultText(t, result); got != body {
		t.Errorf("content = %q, want %q", got, body)
	}
	if hits.Load() != 1 {
		t.Errorf("backend hits = %d, want 1", hits.Load())
	}
}

func TestExecuteValidatesBeforeDispatch(t *testing.T) {
	b, _, hits := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := b.Execute(context.Background(), "getUser", map[string]any{"id": float64(2000)})
	var invalid *InvalidParamsError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InvalidParamsError", err)
	}
	if invalid.Payload["id"] != float64(2000) {
		t.Errorf("payload = %v", invalid.Payload)
	}
	if hits.Load() != 0 {
		t.Errorf("validation failure must not reach the backend, hits = %d", hits.Load())
	}
}

func TestExecuteRequiredHeaderValidation(t *testing.T) {
	b, _, hits := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	})

	// Omitting the required X-Api-Key header fails before dispatch.
	_, err := b.Execute(context.Background(), "search", map[string]any{"q": "term"})
	var invalid *InvalidParamsError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InvalidParamsError", err)
	}
	if hits.Load() != 0 {
		t.Errorf("hits = %d, want 0", hits.Load())
	}

	// Supplying only the required header passes; the optional X-Trace
	// header may be omitted.
	args := map[string]any{
		"q":       "term",
		"headers": map[string]any{"X-Api-Key": "secret"},
	}
	result, err := b.Execute(context.Background(), "search", args)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.IsError {
		t.Fatal("unexpected isError")
	}
	if hits.Load() != 1 {
		t.Errorf("hits = %d, want 1", hits.Load())
	}
}

func TestExecuteMissingRequiredBody(t *testing.T) {
	b, _, hits := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := b.Execute(context.Background(), "createUser", map[string]any{})
	var invalid *InvalidParamsError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InvalidParamsError", err)
	}
	if hits.Load() != 0 {
		t.Errorf("hits = %d, want 0", hits.Load())
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	b, _, _ := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := b.Execute(context.Background(), "nope", map[string]any{})
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("err = %v, want ErrToolNotFound", err)
	}
}

func TestExecuteTransportFailureIsSoft(t *testing.T) {
	doc, err := openapi.Parse([]byte(bridgeDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	// Reserved TEST-NET-1 address, nothing listens there.
	b, err := NewHTTPBridge(doc, "http://192.0.2.1:1", 200*time.Millisecond, common.NewSilentLogger())
	if err != nil {
		t.Fatalf("NewHTTPBridge: %v", err)
	}

	result, err := b.Execute(context.Background(), "getUser", map[string]any{"id": float64(1)})
	if err != nil {
		t.Fatalf("transport failure must not be a protocol error, got %v", err)
	}
	if !result.IsError {
		t.Fatal("expected isError result")
	}
}

func TestExecuteBackendErrorStatusIsSuccess(t *testing.T) {
	b, _, _ := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "boom")
	})

	result, err := b.Execute(context.Background(), "getUser", map[string]any{"id": float64(1)})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.IsError {
		t.Fatal("backend 5xx must not flag the result as error")
	}
	if got := resultText(t, result); got != "boom" {
		t.Errorf("content = %q, want boom", got)
	}
}

func TestExecuteEmptyBodyReturnsStatus(t *testing.T) {
	b, _, _ := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	result, err := b.Execute(context.Background(), "getUser", map[string]any{"id": float64(1)})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := resultText(t, result); got != `{"status":204}` {
		t.Errorf("content = %q, want status object", got)
	}
}

func TestExecuteQueryAndHeaderSerialization(t *testing.T) {
	var rec recordedRequest
	b, _, _ := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		rec = recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			header: r.Header.Clone(),
		}
		io.WriteString(w, "ok")
	})

	args := map[string]any{
		"q":       "term",
		"tags":    []any{"a", "b"},
		"headers": map[string]any{"X-Api-Key": "secret"},
	}
	result, err := b.Execute(context.Background(), "search", args)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.IsError {
		t.Fatal("unexpected isError")
	}

	// Query pairs follow declaration order; arrays explode by default.
	if rec.query != "q=term&tags=a&tags=b" {
		t.Errorf("query = %q", rec.query)
	}
	if rec.header.Get("X-Api-Key") != "secret" {
		t.Errorf("X-Api-Key = %q", rec.header.Get("X-Api-Key"))
	}
	if rec.method != http.MethodGet || rec.path != "/search" {
		t.Errorf("got %s %s", rec.method, rec.path)
	}
}

func TestExecuteSendsJSONBody(t *testing.T) {
	var rec recordedRequest
	b, _, _ := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec = recordedRequest{method: r.Method, header: r.Header.Clone(), body: body}
		w.WriteHeader(http.StatusCreated)
	})

	args := map[string]any{"body": map[string]any{"name": "A"}}
	result, err := b.Execute(context.Background(), "createUser", args)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.IsError {
		t.Fatal("unexpected isError")
	}

	if rec.method != http.MethodPost {
		t.Errorf("method = %q", rec.method)
	}
	if ct := rec.header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var sent map[string]any
	if err := json.Unmarshal(rec.body, &sent); err != nil || sent["name"] != "A" {
		t.Errorf("body = %s", rec.body)
	}
	if got := resultText(t, result); got != `{"status":201}` {
		t.Errorf("content = %q", got)
	}
}

func TestToolsDescriptions(t *testing.T) {
	b, _, _ := newTestBridge(t, func(w http.ResponseWriter, r *http.Request) {})

	tools, next, err := b.Tools(context.Background(), "", openapi.DefaultPageLimit)
	if err != nil {
		t.Fatalf("Tools: %v", err)
	}
	if next != "" {
		t.Errorf("nextCursor = %q", next)
	}

	byName := map[string]mcp.Tool{}
	for _, tool := range tools {
		byName[tool.Name] = tool
	}

	// Summary wins, then description, then "METHOD path".
	if got := byName["getUser"].Description; got != "Fetch a user" {
		t.Errorf("getUser description = %q", got)
	}
	if tool, ok := byName["get_ping"]; !ok {
		t.Error("missing synthesized get_ping tool")
	} else if tool.Description != "Liveness check" {
		t.Errorf("get_ping description = %q", tool.Description)
	}
	if got := byName["search"].Description; got != "GET /search" {
		t.Errorf("search description = %q", got)
	}

	var schema map[string]any
	if err := json.Unmarshal(byName["getUser"].RawInputSchema, &schema); err != nil {
		t.Fatalf("input schema: %v", err)
	}
	if schema["type"] != "object" {
		t.Errorf("schema = %#v", schema)
	}
}
