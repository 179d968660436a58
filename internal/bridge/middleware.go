package bridge

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/brwse/bridge/internal/common"
)

// LoggingMiddleware logs every tool call with a correlation id, its
// duration and outcome.
func LoggingMiddleware(logger *common.Logger) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			correlationID := uuid.New().String()
			log := logger.WithCorrelationId(correlationID)
			log.Info().Str("tool", r.Params.Name).Msg("tool call started")

			start := time.Now()
			result, err := next(ctx, r)
			durationMs := time.Since(start).Milliseconds()

			switch {
			case err != nil:
				log.Warn().Str("tool", r.Params.Name).Int64("duration_ms", durationMs).Str("error", err.Error()).Msg("tool call failed")
			case result != nil && result.IsError:
				log.Warn().Str("tool", r.Params.Name).Int64("duration_ms", durationMs).Msg("tool call returned error result")
			default:
				log.Info().Str("tool", r.Params.Name).Int64("duration_ms", durationMs).Msg("tool call complete")
			}
			return result, err
		}
	}
}

// StaticHeadersMiddleware merges fixed header values into every call's
// arguments.headers, without overriding caller-supplied values. Useful
// for injecting auth headers the tool consumer should not manage.
func StaticHeadersMiddleware(headers map[string]string) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			if len(headers) == 0 {
				return next(ctx, r)
			}
			args := r.GetArguments()
			if args == nil {
				args = map[string]any{}
			}
			headerArgs, _ := args["headers"].(map[string]any)
			if headerArgs == nil {
				headerArgs = map[string]any{}
			}
			for k, v := range headers {
				if _, exists := headerArgs[k]; !exists {
					headerArgs[k] = v
				}
			}
			args["headers"] = headerArgs
			r.Params.Arguments = args
			return next(ctx, r)
		}
	}
}
