package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	repokitmcp "github.com/valter-silva-au/repokit/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the repokit MCP server on stdio",
	Long: `Start the repokit MCP (Model Context Protocol) server on stdio
transport.

The server exposes plan operations as MCP tools that AI coding assistants
can call: get_task, list_tasks, log_event, transition_task.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Plan == nil {
			return fmt.Errorf("plan manager not initialized")
		}

		srv := repokitmcp.NewServer(Plan, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
