package gmail_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/imthebreezy247/gmail-mcp/internal/gateway"
	"github.com/imthebreezy247/gmail-mcp/internal/server"
	"github.com/imthebreezy247/gmail-mcp/internal/tools/common"
)

// RegisterFilterTools registers filter tools with the MCP server. Listing
// and reading are always available; creation and deletion only outside
// read-only mode.
func RegisterFilterTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	listFiltersTool := mcp.NewTool("gmail_list_filters",
		mcp.WithDescription("List all existing Gmail filters for the account"),
		accountOption(),
	)

	s.AddTool(listFiltersTool, common.InstrumentedToolHandler("gmail_list_filters", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListFilters(ctx, request, sc)
		}))

	getFilterTool := mcp.NewTool("gmail_get_filter",
		mcp.WithDescription("Show a single Gmail filter by its ID"),
		accountOption(),
		mcp.WithString("filterId",
			mcp.Required(),
			mcp.Description("The ID of the filter (obtained from gmail_list_filters)"),
		),
	)

	s.AddTool(getFilterTool, common.InstrumentedToolHandler("gmail_get_filter", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetFilter(ctx, request, sc)
		}))

	if readOnly {
		return nil
	}

	createFilterTool := mcp.NewTool("gmail_create_filter",
		mcp.WithDescription("Create a new Gmail filter to automatically organize incoming emails. Filters can match on sender, recipient, subject, or custom queries, and perform actions like labeling, archiving, or marking as read."),
		accountOption(),
		// Criteria fields
		mcp.WithString("from",
			mcp.Description("Filter emails from this sender (e.g., 'newsletter@example.com')"),
		),
		mcp.WithString("to",
			mcp.Description("Filter emails sent to this recipient (e.g., 'myalias@example.com')"),
		),
		mcp.WithString("subject",
			mcp.Description("Filter emails with this subject (e.g., 'Weekly Report')"),
		),
		mcp.WithString("query",
			mcp.Description("Gmail search query for advanced filtering (e.g., 'has:attachment larger:10M')"),
		),
		mcp.WithBoolean("hasAttachment",
			mcp.Description("Filter emails that have attachments"),
		),
		// Action fields
		mcp.WithString("addLabelIds",
			mcp.Description("Comma-separated list of label IDs to add (e.g., 'Label_1,Label_2'). Use gmail_list_labels to get label IDs."),
		),
		mcp.WithString("removeLabelIds",
			mcp.Description("Comma-separated list of label IDs to remove (e.g., 'INBOX,UNREAD')"),
		),
		mcp.WithBoolean("archive",
			mcp.Description("Remove from inbox (archive)"),
		),
		mcp.WithBoolean("markAsRead",
			mcp.Description("Mark as read"),
		),
		mcp.WithBoolean("star",
			mcp.Description("Add star"),
		),
		mcp.WithBoolean("markAsSpam",
			mcp.Description("Mark as spam"),
		),
		mcp.WithBoolean("delete",
			mcp.Description("Send to trash"),
		),
		mcp.WithString("forward",
			mcp.Description("Forward to this email address"),
		),
	)

	s.AddTool(createFilterTool, common.InstrumentedToolHandler("gmail_create_filter", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateFilter(ctx, request, sc)
		}))

	deleteFilterTool := mcp.NewTool("gmail_delete_filter",
		mcp.WithDescription("Delete a Gmail filter by its ID (obtain ID from gmail_list_filters)"),
		accountOption(),
		mcp.WithString("filterId",
			mcp.Required(),
			mcp.Description("The ID of the filter to delete"),
		),
	)

	s.AddTool(deleteFilterTool, common.InstrumentedToolHandler("gmail_delete_filter", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDeleteFilter(ctx, request, sc)
		}))

	return nil
}

func handleListFilters(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	client, errResult := gatewayFor(sc, args)
	if errResult != nil {
		return errResult, nil
	}

	filters, err := client.ListFilters(ctx)
	if err != nil {
		return toolError("list filters", err), nil
	}

	if len(filters) == 0 {
		return mcp.NewToolResultText("No filters configured"), nil
	}
	return jsonResult(fmt.Sprintf("Found %d filter(s):", len(filters)), filters)
}

func handleGetFilter(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	filterID, ok := args["filterId"].(string)
	if !ok || filterID == "" {
		return mcp.NewToolResultError("filterId is required"), nil
	}

	client, errResult := gatewayFor(sc, args)
	if errResult != nil {
		return errResult, nil
	}

	filter, err := client.GetFilter(ctx, filterID)
	if err != nil {
		return toolError("get filter", err), nil
	}
	return jsonResult("", filter)
}

func handleCreateFilter(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	criteria := gateway.FilterCriteria{}
	if v, ok := args["from"].(string); ok {
		criteria.From = v
	}
	if v, ok := args["to"].(string); ok {
		criteria.To = v
	}
	if v, ok := args["subject"].(string); ok {
		criteria.Subject = v
	}
	if v, ok := args["query"].(string); ok {
		criteria.Query = v
	}
	if v, ok := args["hasAttachment"].(bool); ok {
		criteria.HasAttachment = v
	}

	action := gateway.FilterAction{}
	if v, ok := args["addLabelIds"].(string); ok {
		action.AddLabelIDs = splitAddresses(v)
	}
	if v, ok := args["removeLabelIds"].(string); ok {
		action.RemoveLabelIDs = splitAddresses(v)
	}
	if v, ok := args["archive"].(bool); ok {
		action.Archive = v
	}
	if v, ok := args["markAsRead"].(bool); ok {
		action.MarkAsRead = v
	}
	if v, ok := args["star"].(bool); ok {
		action.Star = v
	}
	if v, ok := args["markAsSpam"].(bool); ok {
		action.MarkAsSpam = v
	}
	if v, ok := args["delete"].(bool); ok {
		action.Delete = v
	}
	if v, ok := args["forward"].(string); ok {
		action.Forward = v
	}

	client, errResult := gatewayFor(sc, args)
	if errResult != nil {
		return errResult, nil
	}

	filter, err := client.CreateFilter(ctx, criteria, action)
	if err != nil {
		return toolError("create filter", err), nil
	}
	return jsonResult("Filter created successfully:", filter)
}

func handleDeleteFilter(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	filterID, ok := args["filterId"].(string)
	if !ok || filterID == "" {
		return mcp.NewToolResultError("filterId is required"), nil
	}

	client, errResult := gatewayFor(sc, args)
	if errResult != nil {
		return errResult, nil
	}

	if err := client.DeleteFilter(ctx, filterID); err != nil {
		return toolError("delete filter", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Filter %s deleted successfully", filterID)), nil
}
