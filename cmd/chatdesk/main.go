package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var version = "dev"

var (
	noColor       bool
	backendURL    string
	assumeYes     bool
	adminPassword string
)

var rootCmd = &cobra.Command{
	Use:           "chatdesk",
	Short:         "Console for an FAQ chat assistant backend",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&noColor, "no-color", false, "disable colored output")
	pf.StringVar(&backendURL, "backend", "", "backend URL (overrides backend.url)")
	pf.BoolVarP(&assumeYes, "yes", "y", false, "answer yes to confirmation prompts")
	pf.StringVar(&adminPassword, "password", "", "admin password (default $CHATDESK_ADMIN_PASSWORD, else prompt)")

	rootCmd.AddCommand(consoleCmd, sendCmd, personasCmd, docsCmd, clearCmd, prefsCmd, configCmd, mcpCmd, serveStubCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError("%v", err)
		stop()
		os.Exit(1)
	}
}
