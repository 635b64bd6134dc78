package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tributary/internal/adapters/driven/overrides"
	"github.com/custodia-labs/tributary/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

By default, the server communicates over stdio using JSON-RPC and can be
used with Claude Desktop and other MCP-compatible AI assistants.

Use --port to start an HTTP server instead, which enables:
  - Testing with MCP Inspector web UI
  - Remote access via HTTP

Use --overrides to apply an overrides file to the asset_specs tool. The file
is reloaded when it changes.

Examples:
  # Stdio mode (default, for Claude Desktop)
  tributary mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  tributary mcp serve --port 8080 --overrides overrides.yaml

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "tributary": {
        "command": "/path/to/tributary",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().String("overrides", "", "YAML overrides file for asset specs")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	overridesFile, err := cmd.Flags().GetString("overrides")
	if err != nil {
		return fmt.Errorf("getting overrides flag: %w", err)
	}

	ports := &mcp.Ports{
		Catalog: catalogService,
		Specs:   specService,
		Sync:    syncExecutor,
	}

	if overridesFile != "" {
		watcher, err := overrides.NewWatcher(overridesFile)
		if err != nil {
			return fmt.Errorf("failed to load overrides: %w", err)
		}
		defer watcher.Close()
		updates, err := watcher.Watch(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to watch overrides: %w", err)
		}
		// The watcher swaps rules in place; the updates are not needed
		go func() {
			for range updates {
			}
		}()
		ports.Overrides = watcher
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
