package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var serverFlag string
	var apiKeyFlag string

	rootCmd := &cobra.Command{
		Use:           "scribe",
		Short:         "Scribe transcription service CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", defaultServer(), "Base URL of the scribe daemon")
	rootCmd.PersistentFlags().StringVar(&apiKeyFlag, "api-key", os.Getenv("SCRIBE_API_KEY"), "Shared API secret")

	clientFor := func() *client {
		return newClient(serverFlag, apiKeyFlag)
	}

	rootCmd.AddCommand(newSubmitCommand(clientFor))
	rootCmd.AddCommand(newStatusCommand(clientFor))
	rootCmd.AddCommand(newListCommand(clientFor))
	rootCmd.AddCommand(newResultCommand(clientFor))
	rootCmd.AddCommand(newDeleteCommand(clientFor))
	rootCmd.AddCommand(newStatsCommand(clientFor))
	rootCmd.AddCommand(newEstimateCommand(clientFor))
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}

func defaultServer() string {
	if v := os.Getenv("SCRIBE_SERVER"); v != "" {
		return v
	}
	return "http://127.0.0.1:7433"
}
