// Package webhook_tools exposes workflow automation triggers as MCP tools.
// Each trigger posts a JSON payload to a configured n8n webhook so agents
// can hand work off to existing automation flows.
package webhook_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/imthebreezy247/gmail-mcp/internal/instrumentation"
	"github.com/imthebreezy247/gmail-mcp/internal/server"
	"github.com/imthebreezy247/gmail-mcp/internal/tools/common"
	"github.com/imthebreezy247/gmail-mcp/internal/webhook"
)

// RegisterWebhookTools registers workflow trigger tools with the MCP
// server. Triggering is an outbound call with no mailbox side effects, so
// it stays available in read-only mode.
func RegisterWebhookTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	triggerTool := mcp.NewTool("trigger_workflow",
		mcp.WithDescription(fmt.Sprintf("Trigger an n8n workflow by posting a JSON payload to its webhook path. Requires the %s environment variable or --webhook-base-url flag.", webhook.EnvBaseURL)),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Webhook path of the workflow (e.g., 'webhook/new-lead')"),
		),
		mcp.WithObject("payload",
			mcp.Description("JSON object posted as the request body (default: empty object)"),
		),
	)

	s.AddTool(triggerTool, common.InstrumentedToolHandler("trigger_workflow", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleTriggerWorkflow(ctx, request, sc)
		}))

	return nil
}

func handleTriggerWorkflow(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return mcp.NewToolResultError("path is required"), nil
	}

	payload := map[string]interface{}{}
	if payloadVal, ok := args["payload"].(map[string]interface{}); ok {
		payload = payloadVal
	}

	result, err := sc.WebhookClient().Trigger(ctx, path, payload)
	if err != nil {
		sc.Metrics().RecordWebhookDelivery(ctx, instrumentation.StatusError)
		return mcp.NewToolResultError(fmt.Sprintf("Failed to trigger workflow: %v", err)), nil
	}

	sc.Metrics().RecordWebhookDelivery(ctx, instrumentation.StatusSuccess)
	return mcp.NewToolResultText(fmt.Sprintf("Workflow triggered successfully (HTTP %d): %s", result.StatusCode, result.URL)), nil
}
