// Package cmd implements the command-line interface for gmail-mcp.
//
// This package provides the following commands:
//   - serve: Start the MCP server exposing Gmail tools over stdio
//   - auth: Run the interactive OAuth authorization flow for an account
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
package cmd
