package gmail_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/imthebreezy247/gmail-mcp/internal/server"
	"github.com/imthebreezy247/gmail-mcp/internal/tools/common"
)

// RegisterReadTools registers search and read tools with the MCP server.
// These never mutate the mailbox and are always available.
func RegisterReadTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	searchTool := mcp.NewTool("gmail_search_emails",
		mcp.WithDescription("Search Gmail messages using Gmail query syntax (e.g., 'from:user@example.com is:unread')"),
		accountOption(),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Gmail search query (e.g., 'in:inbox', 'from:user@example.com has:attachment')"),
		),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of results to return (default: 10)"),
		),
	)

	s.AddTool(searchTool, common.InstrumentedToolHandler("gmail_search_emails", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSearchEmails(ctx, request, sc)
		}))

	readTool := mcp.NewTool("gmail_read_email",
		mcp.WithDescription("Read a Gmail message including its body and attachment listing"),
		accountOption(),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the message to read"),
		),
	)

	s.AddTool(readTool, common.InstrumentedToolHandler("gmail_read_email", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleReadEmail(ctx, request, sc)
		}))

	threadTool := mcp.NewTool("gmail_get_thread",
		mcp.WithDescription("Read an entire Gmail conversation with all its messages"),
		accountOption(),
		mcp.WithString("threadId",
			mcp.Required(),
			mcp.Description("The ID of the thread to read"),
		),
	)

	s.AddTool(threadTool, common.InstrumentedToolHandler("gmail_get_thread", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetThread(ctx, request, sc)
		}))

	profileTool := mcp.NewTool("gmail_get_profile",
		mcp.WithDescription("Show the authenticated mailbox profile (email address, message and thread counts)"),
		accountOption(),
	)

	s.AddTool(profileTool, common.InstrumentedToolHandler("gmail_get_profile", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetProfile(ctx, request, sc)
		}))

	return nil
}

func handleSearchEmails(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return mcp.NewToolResultError("query is required"), nil
	}

	// Absent means the gateway default; an explicit 0 means an empty result.
	maxResults := int64(-1)
	if maxResultsVal, ok := args["maxResults"].(float64); ok {
		maxResults = int64(maxResultsVal)
	}

	client, errResult := gatewayFor(sc, args)
	if errResult != nil {
		return errResult, nil
	}

	summaries, err := client.Search(ctx, query, maxResults)
	if err != nil {
		return toolError("search emails", err), nil
	}

	if len(summaries) == 0 {
		return mcp.NewToolResultText("No messages match the query"), nil
	}
	return jsonResult(fmt.Sprintf("Found %d message(s):", len(summaries)), summaries)
}

func handleReadEmail(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, ok := args["messageId"].(string)
	if !ok || messageID == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}

	client, errResult := gatewayFor(sc, args)
	if errResult != nil {
		return errResult, nil
	}

	detail, err := client.Read(ctx, messageID)
	if err != nil {
		return toolError("read email", err), nil
	}
	return jsonResult("", detail)
}

func handleGetThread(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	threadID, ok := args["threadId"].(string)
	if !ok || threadID == "" {
		return mcp.NewToolResultError("threadId is required"), nil
	}

	client, errResult := gatewayFor(sc, args)
	if errResult != nil {
		return errResult, nil
	}

	thread, err := client.GetThread(ctx, threadID)
	if err != nil {
		return toolError("get thread", err), nil
	}
	return jsonResult(fmt.Sprintf("Thread %s with %d message(s):", thread.ID, len(thread.Messages)), thread)
}

func handleGetProfile(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	client, errResult := gatewayFor(sc, args)
	if errResult != nil {
		return errResult, nil
	}

	profile, err := client.GetProfile(ctx)
	if err != nil {
		return toolError("get profile", err), nil
	}
	return jsonResult("", profile)
}
