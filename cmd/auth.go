package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/imthebreezy247/gmail-mcp/internal/auth"
	"github.com/imthebreezy247/gmail-mcp/internal/logging"
)

func newAuthCmd() *cobra.Command {
	var (
		debug           bool
		account         string
		credentialsFile string
		tokenDir        string
		authFlow        string
		authPort        int
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Run the interactive OAuth authorization flow",
		Long: `Authorize gmail-mcp against a Google account and store the resulting
token for the serve command to use.

Flows:
  auto      Capture the redirect on a local HTTP listener (default)
  manual    Print the consent URL and read the code or redirect URL
            from stdin; use this on headless machines

Run once per account; tokens are refreshed automatically afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(debug, account, credentialsFile, tokenDir, authFlow, authPort)
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&account, "account", "", "Account name to authorize (default: 'default')")
	cmd.Flags().StringVar(&credentialsFile, "credentials", "credentials.json", "Path to the OAuth client-secret JSON downloaded from the Google Cloud Console")
	cmd.Flags().StringVar(&tokenDir, "token-dir", ".", "Directory holding per-account token files")
	cmd.Flags().StringVar(&authFlow, "auth-flow", "auto", "Authorization flow: auto, loopback, or manual")
	cmd.Flags().IntVar(&authPort, "auth-port", 0, "Fixed port for the loopback listener (0 picks a free port)")

	return cmd
}

// tokenPath mirrors the server-side naming so auth and serve agree on
// where tokens live.
func tokenPath(tokenDir, account string) string {
	if account == "" || account == "default" {
		return filepath.Join(tokenDir, "token.json")
	}
	return filepath.Join(tokenDir, fmt.Sprintf("token_%s.json", account))
}

func runAuth(debug bool, account, credentialsFile, tokenDir, authFlow string, authPort int) error {
	logger := logging.Setup(debug)

	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	conf, err := auth.LoadClientConfig(credentialsFile)
	if err != nil {
		return err
	}

	source, err := auth.NewCodeSource(authFlow, authPort, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}

	store := auth.NewFileStore(tokenPath(tokenDir, account))
	manager := auth.NewManager(conf, store, source, logger)

	if state := manager.State(ctx); state == auth.StateValid {
		fmt.Println("A valid credential is already stored for this account.")
		fmt.Println("Continuing will replace it.")
	}

	if err := manager.Authorize(ctx); err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	name := account
	if name == "" {
		name = "default"
	}
	fmt.Printf("Authorization complete. Token stored for account %q at %s\n",
		name, tokenPath(tokenDir, account))
	return nil
}
