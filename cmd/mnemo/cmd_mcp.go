package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	mnemomcp "github.com/mnemo-graph/mnemo/internal/mcp"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP (Model Context Protocol) server over stdio",
		Long: `Starts an MCP JSON-RPC 2.0 server that reads from stdin and writes to stdout.
All diagnostic logs go to stderr so that stdout remains exclusively MCP protocol traffic.

Tools exposed:
  create_entities, get_entity, update_entity, delete_entities
  create_relationships, delete_relationships
  find_entities_by_labels, find_relationships
  set_observations, add_observations, remove_observations, remove_all_observations
  find_related_entities, get_graph_meta
  create_tasks, get_task, update_task, delete_task, list_tasks

If Neo4j is unavailable at startup the server still starts; individual
tool calls will return MCP error responses on failure.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()

			srv := mnemomcp.NewServer(nil, logger)

			st, storeErr := newStore(cmd.Context(), logger)
			if storeErr != nil {
				// Log to stderr and continue with a nil service.
				// Tool calls will return per-call errors rather than crashing.
				logger.Error("mcp: failed to connect to store; tool calls requiring storage will fail",
					"error", storeErr)
			} else {
				defer func() { _ = st.Close(cmd.Context()) }()
				srv = mnemomcp.NewServer(newService(st, logger), logger)
			}

			// Use a standard log.Logger pointing at stderr for the mcp-go error logger.
			errLogger := log.New(os.Stderr, "mcp: ", log.LstdFlags)

			logger.Info("mcp: mnemo MCP server starting", "transport", "stdio")

			return mcpserver.ServeStdio(
				srv.MCPServer(),
				mcpserver.WithErrorLogger(errLogger),
			)
		},
	}

	return cmd
}
