// Package cli wires configuration, the backend client and the game engine
// into the periogame command surface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/dmorales/periogame/internal/config"
	"github.com/dmorales/periogame/internal/logger"
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "periogame",
		Short: "Terminal client for the Periodontitis Serious Game",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg := config.Load()
			logger.SetDefault(logger.New(
				logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
			))
		},
	}
	cmd.AddCommand(newPlayCmd())
	cmd.AddCommand(newSandboxCmd())
	return cmd
}
