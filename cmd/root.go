package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the gmail-mcp application
var rootCmd = &cobra.Command{
	Use:   "gmail-mcp",
	Short: "MCP server exposing a Gmail mailbox as typed tools",
	Long: `gmail-mcp is a Model Context Protocol server that lets AI assistants
work with a Gmail mailbox: sending and reading email, searching,
managing labels and filters, downloading attachments, and triggering
n8n workflows.

It can run as:
  - An MCP server over stdio (default)
  - An interactive OAuth authorization helper (auth subcommand)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "gmail-mcp version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
}
