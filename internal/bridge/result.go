package bridge

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// Protocol-level failures. These surface to the client as JSON-RPC errors
// rather than tool results.
var (
	ErrToolNotFound       = errors.New("tool not found")
	ErrMethodNotSupported = errors.New("method not supported")
)

// InvalidParamsError reports arguments that failed input-schema validation.
// Payload carries the offending arguments for diagnostics.
type InvalidParamsError struct {
	Diagnostic string
	Payload    map[string]any
}

func (e *InvalidParamsError) Error() string {
	return fmt.Sprintf("invalid parameters: %s", e.Diagnostic)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(text)},
	}
}

// errorResult is a successful invocation whose content is flagged as an
// error. Used for backend and transport failures the caller should see as
// "the tool ran and failed", not as a broken bridge.
func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(text)},
		IsError: true,
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to encode result: %v", err))
	}
	return textResult(string(data))
}
