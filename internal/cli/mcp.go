package cli

import (
	"github.com/spf13/cobra"

	"github.com/ppiankov/tgcreative/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve channel_analyze and creative_generate as MCP tools over stdio",
	RunE:  mcpAction,
}

func mcpAction(_ *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	var studio mcpserver.Studio
	if a.studio != nil {
		studio = a.studio
	}
	return mcpserver.Run(mcpserver.NewHandlers(a.pipeline, studio, a.log), Version)
}
