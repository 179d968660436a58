package bridge

import (
	"context"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/brwse/bridge/internal/common"
)

// pagedProvider serves a fixed tool list with the catalog's cursor
// semantics, recording which calls were made.
type pagedProvider struct {
	ids      []string
	executed []string
}

func (p *pagedProvider) Tools(_ context.Context, cursor string, limit int) ([]mcp.Tool, string, error) {
	skipping := cursor != ""
	var tools []mcp.Tool
	for _, id := range p.ids {
		if skipping {
			if id == cursor {
				skipping = false
			}
			continue
		}
		tools = append(tools, mcp.NewToolWithRawSchema(id, id, []byte(`{"type":"object"}`)))
		if len(tools) == limit {
			break
		}
	}
	next := ""
	if len(tools) == limit {
		next = tools[len(tools)-1].Name
	}
	return tools, next, nil
}

func (p *pagedProvider) Execute(_ context.Context, name string, _ map[string]any) (*mcp.CallToolResult, error) {
	p.executed = append(p.executed, name)
	return textResult("ran " + name), nil
}

func TestRegisterToolsPagesThroughCatalog(t *testing.T) {
	provider := &pagedProvider{}
	for i := 0; i < 23; i++ {
		provider.ids = append(provider.ids, fmt.Sprintf("tool%02d", i))
	}

	srv := NewServer("test", "0.0.0", LoggingMiddleware(common.NewSilentLogger()))
	count, err := RegisterTools(context.Background(), srv, provider, common.NewSilentLogger())
	if err != nil {
		t.Fatalf("RegisterTools: %v", err)
	}
	if count != 23 {
		t.Fatalf("registered %d tools, want 23", count)
	}
}
