package gmail_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/imthebreezy247/gmail-mcp/internal/gateway"
	"github.com/imthebreezy247/gmail-mcp/internal/server"
	"github.com/imthebreezy247/gmail-mcp/internal/tools/batch"
	"github.com/imthebreezy247/gmail-mcp/internal/tools/common"
)

// RegisterEmailTools registers email send/reply/delete tools with the MCP
// server. All of them mutate the mailbox, so none are registered in
// read-only mode.
func RegisterEmailTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if readOnly {
		return nil
	}

	sendEmailTool := mcp.NewTool("gmail_send_email",
		mcp.WithDescription("Send an email through Gmail, optionally with attachments"),
		accountOption(),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Recipient email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Email subject"),
		),
		mcp.WithString("body",
			mcp.Description("Plain text body content"),
		),
		mcp.WithString("htmlBody",
			mcp.Description("HTML body content. When both body and htmlBody are given the message carries both alternatives."),
		),
		mcp.WithString("cc",
			mcp.Description("CC email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithString("bcc",
			mcp.Description("BCC email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithString("attachments",
			mcp.Description("Local file path (string) or array of file paths to attach"),
		),
	)

	s.AddTool(sendEmailTool, common.InstrumentedToolHandler("gmail_send_email", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSendEmail(ctx, request, sc, false)
		}))

	createDraftTool := mcp.NewTool("gmail_create_draft",
		mcp.WithDescription("Create a Gmail draft without sending it"),
		accountOption(),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Recipient email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Email subject"),
		),
		mcp.WithString("body",
			mcp.Description("Plain text body content"),
		),
		mcp.WithString("htmlBody",
			mcp.Description("HTML body content"),
		),
		mcp.WithString("cc",
			mcp.Description("CC email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithString("bcc",
			mcp.Description("BCC email address(es), comma-separated for multiple recipients"),
		),
		mcp.WithString("attachments",
			mcp.Description("Local file path (string) or array of file paths to attach"),
		),
	)

	s.AddTool(createDraftTool, common.InstrumentedToolHandler("gmail_create_draft", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSendEmail(ctx, request, sc, true)
		}))

	replyTool := mcp.NewTool("gmail_reply_to_email",
		mcp.WithDescription("Reply to an existing email, keeping the conversation threaded"),
		accountOption(),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The ID of the message to reply to"),
		),
		mcp.WithString("body",
			mcp.Description("Plain text reply content"),
		),
		mcp.WithString("htmlBody",
			mcp.Description("HTML reply content"),
		),
		mcp.WithBoolean("replyAll",
			mcp.Description("Reply to all original recipients, not just the sender (default: false)"),
		),
	)

	s.AddTool(replyTool, common.InstrumentedToolHandler("gmail_reply_to_email", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleReplyToEmail(ctx, request, sc)
		}))

	trashTool := mcp.NewTool("gmail_trash_message",
		mcp.WithDescription("Move one or more Gmail messages to trash (recoverable for 30 days)"),
		accountOption(),
		mcp.WithString("messageIds",
			mcp.Required(),
			mcp.Description("Message ID (string) or array of message IDs to trash"),
		),
	)

	s.AddTool(trashTool, common.InstrumentedToolHandler("gmail_trash_message", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleTrashMessages(ctx, request, sc)
		}))

	deleteTool := mcp.NewTool("gmail_delete_message",
		mcp.WithDescription("Permanently delete one or more Gmail messages. This bypasses trash and cannot be undone."),
		accountOption(),
		mcp.WithString("messageIds",
			mcp.Required(),
			mcp.Description("Message ID (string) or array of message IDs to delete"),
		),
	)

	s.AddTool(deleteTool, common.InstrumentedToolHandler("gmail_delete_message", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDeleteMessages(ctx, request, sc)
		}))

	return nil
}

// parseSendRequest builds a gateway send request from tool arguments.
// Validation beyond presence checks is left to the gateway.
func parseSendRequest(args map[string]interface{}) (gateway.SendRequest, *mcp.CallToolResult) {
	toStr, ok := args["to"].(string)
	if !ok || toStr == "" {
		return gateway.SendRequest{}, mcp.NewToolResultError("'to' field is required")
	}

	subject, ok := args["subject"].(string)
	if !ok || subject == "" {
		return gateway.SendRequest{}, mcp.NewToolResultError("'subject' field is required")
	}

	req := gateway.SendRequest{
		To:      splitAddresses(toStr),
		Subject: subject,
	}

	if body, ok := args["body"].(string); ok {
		req.TextBody = body
	}
	if htmlBody, ok := args["htmlBody"].(string); ok {
		req.HTMLBody = htmlBody
	}
	if req.TextBody == "" && req.HTMLBody == "" {
		return gateway.SendRequest{}, mcp.NewToolResultError("'body' or 'htmlBody' is required")
	}

	if ccStr, ok := args["cc"].(string); ok {
		req.Cc = splitAddresses(ccStr)
	}
	if bccStr, ok := args["bcc"].(string); ok {
		req.Bcc = splitAddresses(bccStr)
	}

	if attVal, ok := args["attachments"]; ok && attVal != nil {
		paths, err := batch.ParseStringOrArray(attVal, "attachments")
		if err != nil {
			return gateway.SendRequest{}, mcp.NewToolResultError(err.Error())
		}
		req.AttachmentPaths = paths
	}

	return req, nil
}

func handleSendEmail(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, draft bool) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	req, errResult := parseSendRequest(args)
	if errResult != nil {
		return errResult, nil
	}

	client, errResult := gatewayFor(sc, args)
	if errResult != nil {
		return errResult, nil
	}

	if draft {
		result, err := client.CreateDraft(ctx, req)
		if err != nil {
			return toolError("create draft", err), nil
		}
		return jsonResult("Draft created successfully:", result)
	}

	result, err := client.Send(ctx, req)
	if err != nil {
		return toolError("send email", err), nil
	}
	return jsonResult("Email sent successfully:", result)
}

func handleReplyToEmail(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, ok := args["messageId"].(string)
	if !ok || messageID == "" {
		return mcp.NewToolResultError("messageId is required"), nil
	}

	req := gateway.ReplyRequest{MessageID: messageID}
	if body, ok := args["body"].(string); ok {
		req.TextBody = body
	}
	if htmlBody, ok := args["htmlBody"].(string); ok {
		req.HTMLBody = htmlBody
	}
	if req.TextBody == "" && req.HTMLBody == "" {
		return mcp.NewToolResultError("'body' or 'htmlBody' is required"), nil
	}
	if replyAll, ok := args["replyAll"].(bool); ok {
		req.ReplyAll = replyAll
	}

	client, errResult := gatewayFor(sc, args)
	if errResult != nil {
		return errResult, nil
	}

	result, err := client.Reply(ctx, req)
	if err != nil {
		return toolError("reply to email", err), nil
	}
	return jsonResult("Reply sent successfully:", result)
}

func handleTrashMessages(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageIDs, err := batch.ParseStringOrArray(args["messageIds"], "messageIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	client, errResult := gatewayFor(sc, args)
	if errResult != nil {
		return errResult, nil
	}

	results := batch.ProcessBatch(messageIDs, func(messageID string) (string, error) {
		if err := client.Trash(ctx, messageID); err != nil {
			return "", err
		}
		return fmt.Sprintf("Message %s moved to trash", messageID), nil
	})

	return mcp.NewToolResultText(batch.FormatResults(results)), nil
}

func handleDeleteMessages(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageIDs, err := batch.ParseStringOrArray(args["messageIds"], "messageIds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	client, errResult := gatewayFor(sc, args)
	if errResult != nil {
		return errResult, nil
	}

	results := batch.ProcessBatch(messageIDs, func(messageID string) (string, error) {
		if err := client.Delete(ctx, messageID); err != nil {
			return "", err
		}
		return fmt.Sprintf("Message %s permanently deleted", messageID), nil
	})

	return mcp.NewToolResultText(batch.FormatResults(results)), nil
}
