package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kalambet/chatdesk/internal/logging"
	"github.com/kalambet/chatdesk/internal/session"
	"github.com/kalambet/chatdesk/internal/tui"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Open the interactive console",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment()
		if err != nil {
			return err
		}

		// The terminal belongs to the console; logs go to a file.
		logger, closer := logging.SetupFile(env.cfg.Log.File, env.cfg.Storage.DataDir, "console", env.cfg.Log.Level)
		defer closer.Close()
		logger.Info("console started", "backend", env.client.BaseURL())

		exportDir, _ := cmd.Flags().GetString("export-dir")
		if exportDir == "" {
			exportDir = filepath.Join(env.cfg.Storage.DataDir, "transcripts")
		}

		return tui.Run(cmd.Context(), tui.Options{
			Initial:   env.initialState(),
			Executor:  session.NewExecutor(env.client, env.prefs, logger),
			ExportDir: exportDir,
		})
	},
}

func init() {
	consoleCmd.Flags().String("export-dir", "", "directory for exported transcripts (default <data_dir>/transcripts)")
}
