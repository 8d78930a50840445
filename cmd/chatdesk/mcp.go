package main

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/chatdesk/internal/api"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the console session as MCP tools over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment()
		if err != nil {
			return err
		}

		console := api.NewConsole(env.initialState(), env.executor())
		stdioSrv := server.NewStdioServer(api.NewMCPServer(console))
		env.logger.Info("MCP server started (stdio transport)", "backend", env.client.BaseURL())
		return stdioSrv.Listen(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}
