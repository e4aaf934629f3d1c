package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/imthebreezy247/gmail-mcp/internal/instrumentation"
	"github.com/imthebreezy247/gmail-mcp/internal/logging"
	"github.com/imthebreezy247/gmail-mcp/internal/server"
	"github.com/imthebreezy247/gmail-mcp/internal/tools/gmail_tools"
	"github.com/imthebreezy247/gmail-mcp/internal/tools/webhook_tools"
	"github.com/imthebreezy247/gmail-mcp/internal/webhook"
)

// serveOptions holds the serve command configuration after flag and
// environment resolution.
type serveOptions struct {
	debug           bool
	yolo            bool
	credentialsFile string
	tokenDir        string
	maxWorkers      int64
	rateLimit       float64
	rateBurst       int
	webhookBaseURL  string
	metricsEnabled  bool
	metricsAddr     string
}

func newServeCmd() *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server over stdio to provide
Gmail tools for AI assistants.

Safety Mode:
  By default, the server operates in read-only mode: searching, reading,
  and listing work, while sending, replying, and every other mailbox
  mutation is withheld. Use --yolo to enable write operations.

Authentication:
  The server needs an OAuth client-secret file from the Google Cloud
  Console (--credentials) and a stored token per account. Run
  'gmail-mcp auth' once per account to create the token; the server
  refreshes it automatically afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.webhookBaseURL == "" {
				opts.webhookBaseURL = os.Getenv(webhook.EnvBaseURL)
			}
			return runServe(opts)
		},
	}

	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.Flags().BoolVar(&opts.yolo, "yolo", false, "Enable write operations (email sending, label changes, deletion). Default is read-only mode.")
	cmd.Flags().StringVar(&opts.credentialsFile, "credentials", "credentials.json", "Path to the OAuth client-secret JSON downloaded from the Google Cloud Console")
	cmd.Flags().StringVar(&opts.tokenDir, "token-dir", ".", "Directory holding per-account token files")
	cmd.Flags().Int64Var(&opts.maxWorkers, "max-workers", server.DefaultPoolSize, "Maximum number of tool calls executing concurrently")
	cmd.Flags().Float64Var(&opts.rateLimit, "rate-limit", 0, "Gmail API requests per second (0 uses the built-in default)")
	cmd.Flags().IntVar(&opts.rateBurst, "rate-burst", 0, "Gmail API request burst size (0 uses the built-in default)")
	cmd.Flags().StringVar(&opts.webhookBaseURL, "webhook-base-url", "", fmt.Sprintf("Base URL of the n8n instance for workflow triggers. Can also use %s env var.", webhook.EnvBaseURL))
	cmd.Flags().BoolVar(&opts.metricsEnabled, "metrics-enabled", false, "Serve Prometheus metrics and health endpoints on a dedicated port")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address")

	return cmd
}

func runServe(opts serveOptions) error {
	// The stdio transport owns stdout, so all logging goes to stderr.
	logger := logging.Setup(opts.debug)

	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	if err := instrConfig.Validate(); err != nil {
		return fmt.Errorf("invalid instrumentation configuration: %w", err)
	}

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	serverContext, err := server.NewServerContext(shutdownCtx, server.Config{
		CredentialsFile: opts.credentialsFile,
		TokenDir:        opts.tokenDir,
		ReadOnly:        !opts.yolo,
		MaxConcurrent:   opts.maxWorkers,
		RateLimit:       rate.Limit(opts.rateLimit),
		Burst:           opts.rateBurst,
		WebhookBaseURL:  opts.webhookBaseURL,
		Logger:          logger,
		Provider:        provider,
	})
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer serverContext.Shutdown()

	if serverContext.ReadOnly() {
		logger.Info("starting in read-only mode, use --yolo to enable write operations")
	} else {
		logger.Info("starting with write operations enabled")
	}

	healthChecker := server.NewHealthChecker(serverContext)
	healthChecker.SetReady(false)

	var metricsServer *server.MetricsServer
	if opts.metricsEnabled && !provider.Enabled() {
		logger.Warn("metrics server requested but instrumentation is disabled, not starting it")
	}
	if opts.metricsEnabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    opts.metricsAddr,
			InstrumentationProvider: provider,
			Health:                  healthChecker,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		go func() {
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", logging.Err(err))
			}
		}()
		logger.Info("metrics server listening", "addr", metricsServer.Addr())

		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Warn("metrics server shutdown failed", logging.Err(err))
			}
		}()
	}

	mcpSrv := mcpserver.NewMCPServer("gmail-mcp", version,
		mcpserver.WithToolCapabilities(true),
	)

	if err := gmail_tools.RegisterGmailTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register Gmail tools: %w", err)
	}
	if err := webhook_tools.RegisterWebhookTools(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register webhook tools: %w", err)
	}

	healthChecker.SetReady(true)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-shutdownCtx.Done():
		healthChecker.SetReady(false)
		logger.Info("shutdown signal received")
		return nil
	case err := <-serverDone:
		healthChecker.SetReady(false)
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	}
}
