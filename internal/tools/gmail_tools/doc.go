// Package gmail_tools provides MCP (Model Context Protocol) tools for
// interacting with Gmail.
//
// This package exposes Gmail functionality through MCP tools that can be
// called by AI agents or other MCP clients. It provides capabilities for:
//
// Email Management:
//   - gmail_send_email: Send an email, optionally with attachments
//   - gmail_create_draft: Create a draft without sending
//   - gmail_reply_to_email: Reply within an existing thread
//   - gmail_trash_message: Move a message to trash (recoverable)
//   - gmail_delete_message: Permanently delete a message
//
// Reading and Search:
//   - gmail_search_emails: Search messages with Gmail query syntax
//   - gmail_read_email: Read a full message including body and attachments
//   - gmail_get_thread: Read an entire conversation
//   - gmail_get_profile: Show the authenticated mailbox profile
//
// Labels and Filters:
//   - gmail_list_labels, gmail_create_label, gmail_delete_label
//   - gmail_modify_labels, gmail_batch_modify_labels
//   - gmail_create_filter, gmail_list_filters, gmail_get_filter, gmail_delete_filter
//
// Attachment Management:
//   - gmail_list_attachments: List all attachments in a message
//   - gmail_download_attachment: Save an attachment to a local directory
//
// All tools require an authenticated Gmail session provided through the
// server context. Tools that mutate the mailbox are not registered when
// the server runs in read-only mode.
//
// Security Considerations:
//   - Attachment size is limited to 25MB
//   - Filenames are sanitized to prevent path traversal attacks
//   - OAuth2 tokens are stored with restricted permissions and refreshed
//     automatically
package gmail_tools
