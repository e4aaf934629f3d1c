package common

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/imthebreezy247/gmail-mcp/internal/instrumentation"
	"github.com/imthebreezy247/gmail-mcp/internal/logging"
	"github.com/imthebreezy247/gmail-mcp/internal/server"
)

// ToolHandler is the mcp-go tool handler signature.
type ToolHandler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// InstrumentedToolHandler wraps a tool handler with worker-pool admission,
// metrics, and invocation logging. The pool slot is held for the whole
// handler so slow remote calls cannot pile up without bound.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(
	toolName string,
	sc *server.ServerContext,
	handler ToolHandler,
) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := sc.Pool().Acquire(ctx); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("No execution slot available: %v", err)), nil
		}
		defer sc.Pool().Release()

		metrics := sc.Metrics()
		metrics.IncrementActiveToolCalls(ctx)
		defer metrics.DecrementActiveToolCalls(ctx)

		start := time.Now()
		account := GetAccountFromArgs(request.GetArguments())

		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		if err != nil || (result != nil && result.IsError) {
			status = instrumentation.StatusError
		}

		metrics.RecordToolInvocation(ctx, toolName, status, account, duration)
		sc.Logger().Debug("tool invocation",
			logging.Tool(toolName),
			logging.Account(account),
			logging.Status(status),
			slog.Duration("duration", duration),
		)

		return result, err
	}
}
