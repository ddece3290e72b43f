package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fedora-infra/orphanstats/core"
	"github.com/fedora-infra/orphanstats/internal/mcp"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the orphanstats MCP server",
	Long:  `Launch an MCP server that lets AI agents query the monthly report and per-month statistics via standard tools.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Keep stdout clean for the protocol; all validation output goes
		// through stderr.
		return sharedSetup(rootCtx, cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		stats := core.NewStats(st, cfg.LookaheadMonths)
		return mcp.StartMCPServer(rootCtx, stats)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
