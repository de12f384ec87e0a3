package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scribe/internal/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the scribe configuration file",
	}

	var pathFlag string

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := pathFlag
			if path == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}
			if err := config.CreateSample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote sample config to %s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringVar(&pathFlag, "path", "", "Target path for the sample config")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, resolvedPath, exists, err := config.Load(pathFlag)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if exists {
				fmt.Fprintf(out, "config: %s\n", resolvedPath)
			} else {
				fmt.Fprintf(out, "config: %s (not found, defaults in effect)\n", resolvedPath)
			}
			fmt.Fprintf(out, "api_bind: %s\n", cfg.Paths.APIBind)
			fmt.Fprintf(out, "upload_dir: %s\n", cfg.Paths.UploadDir)
			fmt.Fprintf(out, "results_dir: %s\n", cfg.Paths.ResultsDir)
			fmt.Fprintf(out, "work_dir: %s\n", cfg.Paths.WorkDir)
			fmt.Fprintf(out, "max_concurrent_jobs: %d\n", cfg.Workflow.MaxConcurrentJobs)
			fmt.Fprintf(out, "diarization_enabled: %t\n", cfg.Diarization.Enabled)
			return nil
		},
	}
	showCmd.Flags().StringVar(&pathFlag, "path", "", "Configuration file path")

	cmd.AddCommand(initCmd)
	cmd.AddCommand(showCmd)
	return cmd
}
