package commands

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/compozy/storepulse/engine/mcp"
	mcpconfig "github.com/compozy/storepulse/pkg/mcp"
	"github.com/spf13/cobra"
)

var (
	mcpHost string
	mcpPort int
	mcpHTTP bool
)

// serveMCPCmd represents the serve-mcp command
var serveMCPCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Start the MCP server exposing the report tools to chat assistants",
	Long: `Start the Model Context Protocol (MCP) server. Every report and record
lookup is exposed as a tool with a JSON schema, and the tool catalog is
published as the catalog://tools resource.

By default the server speaks MCP over stdin/stdout, which is what desktop
assistants expect. With --http it serves server-sent events instead and
honors mcp.auth for bearer token authentication.`,
	Example: `  # Serve over stdio
  storepulse serve-mcp

  # Serve over HTTP on a custom port
  storepulse serve-mcp --http --port 7002`,
	Args: cobra.NoArgs,
	RunE: runServeMCP,
}

var initServeMCPOnce sync.Once

// InitServeMCPCommand registers the serve-mcp command
func InitServeMCPCommand() {
	initServeMCPOnce.Do(func() {
		serveMCPCmd.Flags().StringVar(&mcpHost, "host", "", "Host to bind the server (for HTTP transport)")
		serveMCPCmd.Flags().IntVar(&mcpPort, "port", 0, "Port to bind the server (for HTTP transport)")
		serveMCPCmd.Flags().BoolVar(&mcpHTTP, "http", false, "Use HTTP transport instead of stdio")
		rootCmd.AddCommand(serveMCPCmd)
	})
}

func runServeMCP(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mcpCfg := appConfig.MCP
	applyMCPFlagOverrides(cmd, &mcpCfg)
	if err := mcpCfg.Validate(); err != nil {
		return fmt.Errorf("invalid MCP configuration: %w", err)
	}

	svc, err := newServices(ctx, appConfig)
	if err != nil {
		return err
	}
	defer svc.Close()

	registry, err := svc.catalog()
	if err != nil {
		return err
	}

	return mcp.NewServer(&mcpCfg, registry, Version).Start(ctx)
}

func applyMCPFlagOverrides(cmd *cobra.Command, cfg *mcpconfig.Config) {
	if mcpHTTP {
		cfg.Server.Transport = mcpconfig.TransportSSE
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = mcpHost
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = mcpPort
	}
}
