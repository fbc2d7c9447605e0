package cmd

import (
	"github.com/huangsam/tqi/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the TQI MCP server",
	Long:  `Launch an MCP server on stdio that lets AI agents evaluate projects and describe quality models.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Stderr stays quiet while serving the protocol.
		if err := sharedSetup(rootCtx, cmd, args); err != nil {
			return err
		}
		cfg.ShowProgress = false
		return nil
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, cacheManager, version)
	},
}
