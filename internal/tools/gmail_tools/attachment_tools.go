package gmail_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/imthebreezy247/gmail-mcp/internal/server"
	"github.com/imthebreezy247/gmail-mcp/internal/tools/common"
)

// RegisterAttachmentTools registers attachment tools with the MCP server.
// Downloads write to the local filesystem, not the mailbox, so both tools
// stay available in read-only mode.
func RegisterAttachmentTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listAttachmentsTool := mcp.NewTool("gmail_list_attachments",
		mcp.WithDescription("List all attachments in a Gmail message"),
		accountOption(),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the Gmail message"),
		),
	)

	s.AddTool(listAttachmentsTool, common.InstrumentedToolHandler("gmail_list_attachments", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListAttachments(ctx, request, sc)
		}))

	downloadTool := mcp.NewTool("gmail_download_attachment",
		mcp.WithDescription("Download an attachment from a Gmail message to a local directory"),
		accountOption(),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the Gmail message"),
		),
		mcp.WithString("attachmentId",
			mcp.Required(),
			mcp.Description("The ID of the attachment (obtained from gmail_list_attachments)"),
		),
		mcp.WithString("directory",
			mcp.Required(),
			mcp.Description("Local directory to save the attachment into"),
		),
		mcp.WithString("filename",
			mcp.Description("Filename to save as (default: the name recorded on the message)"),
		),
	)

	s.AddTool(downloadTool, common.InstrumentedToolHandler("gmail_download_attachment", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDownloadAttachment(ctx, request, sc)
		}))

	return nil
}

func handleListAttachments(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, ok := args["messageId"].(string)
	if !ok || messageID == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}

	client, errResult := gatewayFor(sc, args)
	if errResult != nil {
		return errResult, nil
	}

	attachments, err := client.ListAttachments(ctx, messageID)
	if err != nil {
		return toolError("list attachments", err), nil
	}

	if len(attachments) == 0 {
		return mcp.NewToolResultText("No attachments found in message"), nil
	}
	return jsonResult(fmt.Sprintf("Found %d attachment(s):", len(attachments)), attachments)
}

func handleDownloadAttachment(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, ok := args["messageId"].(string)
	if !ok || messageID == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}

	attachmentID, ok := args["attachmentId"].(string)
	if !ok || attachmentID == "" {
		return mcp.NewToolResultError("attachmentId is required"), nil
	}

	dir, ok := args["directory"].(string)
	if !ok || dir == "" {
		return mcp.NewToolResultError("directory is required"), nil
	}

	filename := ""
	if filenameVal, ok := args["filename"].(string); ok {
		filename = filenameVal
	}

	client, errResult := gatewayFor(sc, args)
	if errResult != nil {
		return errResult, nil
	}

	result, err := client.DownloadAttachment(ctx, messageID, attachmentID, dir, filename)
	if err != nil {
		return toolError("download attachment", err), nil
	}
	return jsonResult("Attachment downloaded successfully:", result)
}
