package bridge

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/brwse/bridge/internal/common"
)

// queryToolSchema is the input schema for the single query tool.
var queryToolSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"query": {
			"type": "string",
			"description": "The SQL query to execute."
		},
		"params": {
			"type": "array",
			"description": "The parameters to pass to the query."
		}
	},
	"required": ["query", "params"]
}`)

// PostgresBridge exposes a database as a single "query" tool. SQL errors
// are reported as error-flagged results so the caller can correct the
// query and retry.
type PostgresBridge struct {
	db     *sql.DB
	logger *common.Logger
}

func NewPostgresBridge(db *sql.DB, logger *common.Logger) *PostgresBridge {
	if logger == nil {
		logger = common.NewDefaultLogger()
	}
	return &PostgresBridge{db: db, logger: logger}
}

// Tools returns the single query tool. Cursor semantics mirror the HTTP
// bridge: a cursor naming the tool (or any unknown cursor) yields an
// empty final page.
func (b *PostgresBridge) Tools(_ context.Context, cursor string, limit int) ([]mcp.Tool, string, error) {
	if cursor != "" || limit == 0 {
		return nil, "", nil
	}
	tool := mcp.NewToolWithRawSchema("query", "Query the database", queryToolSchema)
	return []mcp.Tool{tool}, "", nil
}

// Execute runs the query with positional parameters and returns the rows
// as a JSON array of column-keyed objects.
func (b *PostgresBridge) Execute(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	if name != "query" {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	query, ok := args["query"].(string)
	if !ok {
		return nil, &InvalidParamsError{Diagnostic: "query must be a string", Payload: args}
	}
	raw, ok := args["params"]
	if !ok {
		return nil, &InvalidParamsError{Diagnostic: "params is required", Payload: args}
	}
	params, ok := raw.([]any)
	if !ok {
		return nil, &InvalidParamsError{Diagnostic: "params must be an array", Payload: args}
	}

	b.logger.Debug().Str("query", query).Int("params", len(params)).Msg("executing query")

	rows, err := b.db.QueryContext(ctx, query, params...)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	defer rows.Close()

	results, err := scanRows(rows)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return jsonResult(results), nil
}
