// Package cli provides the command-line interface for tgcreative.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

const defaultConfigDir = ".tgcreative"

var (
	configDir string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "tgcreative",
	Short: "Analyze Telegram channels and write ad creatives in their voice",
	Long: "tgcreative reads a public Telegram channel (title, description and, with credentials, recent posts), " +
		"asks a language model for an advertising creative in the channel's style, and delivers it through a bot.",
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("tgcreative %s (%s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", defaultConfigDir, "config directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(updatesCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(mcpCmd)
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
