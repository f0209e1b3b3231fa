package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lorekeep/lorekeep-cli/internal/adapters/driving/mcp"
)

var mcpPort int

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the knowledge base over the Model Context Protocol",
	Long: `Serves the knowledge base to MCP clients, exposing two tools:
query_knowledge retrieves context for a question and rebuild_index
re-syncs the graph with the knowledge directory.

Without flags the server speaks JSON-RPC over stdio, which is what
Claude Desktop and most MCP clients expect:

  {
    "mcpServers": {
      "lorekeep": {
        "command": "/path/to/lorekeep",
        "args": ["mcp"]
      }
    }
  }

With --port the server listens on HTTP instead, for the MCP Inspector
or remote clients:

  lorekeep mcp --port 8080`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "HTTP port (0 = stdio)")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	server, err := mcp.NewServer(&mcp.Ports{Knowledge: knowledgeService})
	if err != nil {
		return err
	}

	if mcpPort > 0 {
		addr := fmt.Sprintf(":%d", mcpPort)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}
	return server.Run(cmd.Context())
}
