package gmail_tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/imthebreezy247/gmail-mcp/internal/gateway"
	"github.com/imthebreezy247/gmail-mcp/internal/server"
	"github.com/imthebreezy247/gmail-mcp/internal/tools/common"
)

// RegisterGmailTools registers all Gmail-related tools with the MCP server.
// Mutating tools are skipped when the server context is read-only.
func RegisterGmailTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	readOnly := sc.ReadOnly()

	if err := RegisterEmailTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register email tools: %w", err)
	}

	if err := RegisterReadTools(s, sc); err != nil {
		return fmt.Errorf("failed to register read tools: %w", err)
	}

	if err := RegisterLabelTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register label tools: %w", err)
	}

	if err := RegisterFilterTools(s, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register filter tools: %w", err)
	}

	if err := RegisterAttachmentTools(s, sc); err != nil {
		return fmt.Errorf("failed to register attachment tools: %w", err)
	}

	return nil
}

// accountOption is the shared "account" parameter carried by every tool.
func accountOption() mcp.ToolOption {
	return mcp.WithString("account",
		mcp.Description("Account name (default: 'default'). Used to manage multiple Gmail accounts."),
	)
}

// gatewayFor resolves the gateway client for the account named in the
// request arguments. A missing token is not an error here; the operation
// reports it with re-authorization guidance instead.
func gatewayFor(sc *server.ServerContext, args map[string]interface{}) (*gateway.Client, *mcp.CallToolResult) {
	account := common.GetAccountFromArgs(args)
	client, err := sc.GatewayForAccount(account)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("Failed to create Gmail client for account %s: %v", account, err))
	}
	return client, nil
}

// toolError renders an operation failure, adding re-authorization guidance
// for credential problems.
func toolError(action string, err error) *mcp.CallToolResult {
	switch gateway.KindOf(err) {
	case gateway.KindAuthRequired:
		return mcp.NewToolResultError(fmt.Sprintf(`Failed to %s: no stored credential for this account.

Run the following command on the machine hosting the server, then retry:

   gmail-mcp auth [--account <name>]

You only need to authorize once; tokens are refreshed automatically.`, action))
	case gateway.KindAuthExpired:
		return mcp.NewToolResultError(fmt.Sprintf(`Failed to %s: the stored credential was rejected and can no longer be refreshed.

Run `+"`gmail-mcp auth`"+` to re-authorize the account, then retry.`, action))
	default:
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", action, err))
	}
}

// jsonResult marshals v as indented JSON below an optional header line.
func jsonResult(header string, v interface{}) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format output: %v", err)), nil
	}
	if header == "" {
		return mcp.NewToolResultText(string(jsonBytes)), nil
	}
	return mcp.NewToolResultText(header + "\n" + string(jsonBytes)), nil
}

// splitAddresses splits a comma-separated string of email addresses.
func splitAddresses(addresses string) []string {
	if addresses == "" {
		return nil
	}

	parts := strings.Split(addresses, ",")
	result := make([]string, 0, len(parts))
	for _, addr := range parts {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
