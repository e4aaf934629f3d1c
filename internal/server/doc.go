// Package server holds the shared runtime state of the MCP server: the
// per-account gateway registry, the tool worker pool, the metrics
// endpoint, and health checking.
package server
