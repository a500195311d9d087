// Package app wires configuration and components into the updatestracker
// command line.
package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Main runs the command line and returns the process exit code.
func Main() int {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func NewRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "updatestracker",
		Short:         "Turn free-text standup updates into structured reports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				return os.Setenv("CONFIG_PATH", configPath)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default $CONFIG_PATH or ./config.yaml)")

	root.AddCommand(newServeCommand(), newExtractCommand(), newBatchCommand())
	return root
}
