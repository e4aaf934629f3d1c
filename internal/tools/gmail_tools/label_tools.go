package gmail_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/imthebreezy247/gmail-mcp/internal/server"
	"github.com/imthebreezy247/gmail-mcp/internal/tools/batch"
	"github.com/imthebreezy247/gmail-mcp/internal/tools/common"
)

// RegisterLabelTools registers label tools with the MCP server. Listing is
// always available; creation, deletion, and message modification only
// outside read-only mode.
func RegisterLabelTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	listLabelsTool := mcp.NewTool("gmail_list_labels",
		mcp.WithDescription("List all Gmail labels for the account. Use this to get label IDs for other label tools and filters."),
		accountOption(),
	)

	s.AddTool(listLabelsTool, common.InstrumentedToolHandler("gmail_list_labels", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListLabels(ctx, request, sc)
		}))

	if readOnly {
		return nil
	}

	createLabelTool := mcp.NewTool("gmail_create_label",
		mcp.WithDescription("Create a new user label"),
		accountOption(),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Label name. Use '/' for nesting (e.g., 'Work/Reports')."),
		),
	)

	s.AddTool(createLabelTool, common.InstrumentedToolHandler("gmail_create_label", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateLabel(ctx, request, sc)
		}))

	deleteLabelTool := mcp.NewTool("gmail_delete_label",
		mcp.WithDescription("Delete a user label by its ID (obtain ID from gmail_list_labels)"),
		accountOption(),
		mcp.WithString("labelId",
			mcp.Required(),
			mcp.Description("The ID of the label to delete"),
		),
	)

	s.AddTool(deleteLabelTool, common.InstrumentedToolHandler("gmail_delete_label", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDeleteLabel(ctx, request, sc)
		}))

	modifyLabelsTool := mcp.NewTool("gmail_modify_labels",
		mcp.WithDescription("Add or remove labels on a single Gmail message"),
		accountOption(),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the message to modify"),
		),
		mcp.WithString("addLabelIds",
			mcp.Description("Comma-separated list of label IDs to add (e.g., 'STARRED,Label_1')"),
		),
		mcp.WithString("removeLabelIds",
			mcp.Description("Comma-separated list of label IDs to remove (e.g., 'INBOX,UNREAD')"),
		),
	)

	s.AddTool(modifyLabelsTool, common.InstrumentedToolHandler("gmail_modify_labels", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleModifyLabels(ctx, request, sc)
		}))

	batchModifyTool := mcp.NewTool("gmail_batch_modify_labels",
		mcp.WithDescription("Add or remove labels on many Gmail messages in one call"),
		accountOption(),
		mcp.WithString("messageIds",
			mcp.Required(),
			mcp.Description("Message ID (string) or array of message IDs to modify"),
		),
		mcp.WithString("addLabelIds",
			mcp.Description("Comma-separated list of label IDs to add"),
		),
		mcp.WithString("removeLabelIds",
			mcp.Description("Comma-separated list of label IDs to remove"),
		),
	)

	s.AddTool(batchModifyTool, common.InstrumentedToolHandler("gmail_batch_modify_labels", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleBatchModifyLabels(ctx, request, sc)
		}))

	return nil
}

func handleListLabels(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	client, errResult := gatewayFor(sc, args)
	if errResult != nil {
		return errResult, nil
	}

	labels, err := client.ListLabels(ctx)
	if err != nil {
		return toolError("list labels", err), nil
	}
	return jsonResult(fmt.Sprintf("Found %d label(s):", len(labels)), labels)
}

func handleCreateLabel(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	name, ok := args["name"].(string)
	if !ok || name == "" {
		return mcp.NewToolResultError("name is required"), nil
	}

	client, errResult := gatewayFor(sc, args)
	if errResult != nil {
		return errResult, nil
	}

	label, err := client.CreateLabel(ctx, name)
	if err != nil {
		return toolError("create label", err), nil
	}
	return jsonResult("Label created successfully:", label)
}

func handleDeleteLabel(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	labelID, ok := args["labelId"].(string)
	if !ok || labelID == "" {
		return mcp.NewToolResultError("labelId is required"), nil
	}

	client, errResult := gatewayFor(sc, args)
	if errResult != nil {
		return errResult, nil
	}

	if err := client.DeleteLabel(ctx, labelID); err != nil {
		return toolError("delete label", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Label %s deleted successfully", labelID)), nil
}

// parseLabelChanges reads the add/remove label lists. At least one side
// must be non-empty.
func parseLabelChanges(args map[string]interface{}) (add, remove []string, errResult *mcp.CallToolResult) {
	if addStr, ok := args["addLabelIds"].(string); ok {
		add = splitAddresses(addStr)
	}
	if removeStr, ok := args["removeLabelIds"].(string); ok {
		remove = splitAddresses(removeStr)
	}
	if len(add) == 0 && len(remove) == 0 {
		return nil, nil, mcp.NewToolResultError("at least one of addLabelIds or removeLabelIds is required")
	}
	return add, remove, nil
}

func handleModifyLabels(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, ok := args["messageId"].(string)
	if !ok || messageID == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}

	add, remove, errResult := parseLabelChanges(args)
	if errResult != nil {
		return errResult, nil
	}

	client, errResult := gatewayFor(sc, args)
	if errResult != nil {
		return errResult, nil
	}

	labels, err := client.ModifyLabels(ctx, messageID, add, remove)
	if err != nil {
		return toolError("modify labels", err), nil
	}
	return jsonResult(fmt.Sprintf("Labels updated on message %s, now labeled:", messageID), labels)
}

func handleBatchModifyLabels(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageIDs, err := batch.ParseStringOrArray(args["messageIds"], "messageIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	add, remove, errResult := parseLabelChanges(args)
	if errResult != nil {
		return errResult, nil
	}

	client, errResult := gatewayFor(sc, args)
	if errResult != nil {
		return errResult, nil
	}

	if err := client.BatchModifyLabels(ctx, messageIDs, add, remove); err != nil {
		return toolError("batch modify labels", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Labels updated on %d message(s)", len(messageIDs))), nil
}
