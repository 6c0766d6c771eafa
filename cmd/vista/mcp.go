package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/vista/internal/cli"
	"github.com/aretw0/vista/pkg/adapters/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts vista as an MCP Server.
This allows AI agents to open sessions, arm transitions and apply render
passes as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		stack, err := cli.NewStack(sigCtx, cfg, logger)
		if err != nil {
			return err
		}
		defer stack.Close()

		srv := mcp.NewServer(stack.Sessions, mcp.WithLogger(logger))

		switch transport {
		case "stdio":
			// Logs go to Stderr, Stdout carries JSON-RPC.
			logger.Info("Starting vista MCP Server (Stdio)")
			return srv.ServeStdio()
		case "sse":
			logger.Info("Starting vista MCP Server (SSE)", "port", port)
			if err := srv.ServeSSE(sigCtx, port); err != nil {
				return err
			}
			logger.Info("MCP Server stopped gracefully")
			return nil
		}
		return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
