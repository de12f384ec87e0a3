package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scribe/internal/textutil"
)

func newSubmitCommand(clientFor func() *client) *cobra.Command {
	var diarize bool
	var speakers int
	var formats string

	cmd := &cobra.Command{
		Use:   "submit <file> [file...]",
		Short: "Upload media files for transcription",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			accepted, err := clientFor().submit(args, submitOptions{
				diarize:  diarize,
				speakers: speakers,
				formats:  formats,
			})
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(accepted))
			for _, job := range accepted {
				rows = append(rows, []string{job.ID, job.Filename, textutil.DisplayTitle(job.State)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "File", "State"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().BoolVar(&diarize, "diarize", false, "Attribute speech to speakers")
	cmd.Flags().IntVar(&speakers, "speakers", 0, "Exact speaker count hint (0 = auto)")
	cmd.Flags().StringVar(&formats, "formats", "", "Comma-separated output formats")
	return cmd
}

func newStatusCommand(clientFor func() *client) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show one job's state and progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := clientFor().getJob(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:        %s\n", job.ID)
			fmt.Fprintf(out, "File:      %s\n", job.Filename)
			fmt.Fprintf(out, "State:     %s\n", textutil.DisplayTitle(job.State))
			fmt.Fprintf(out, "Progress:  %.0f%%\n", job.Progress)
			if job.EstimatedSeconds > 0 {
				fmt.Fprintf(out, "ETA:       %s\n", formatSeconds(job.EstimatedSeconds))
			}
			if job.Warning != "" {
				fmt.Fprintf(out, "Warning:   %s\n", job.Warning)
			}
			if job.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:     %s\n", job.ErrorMessage)
			}
			if len(job.Artifacts) > 0 {
				fmt.Fprintf(out, "Artifacts: %s\n", strings.Join(sortedKeys(job.Artifacts), ", "))
			}
			return nil
		},
	}
}

func newListCommand(clientFor func() *client) *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			listed, err := clientFor().listJobs(state)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(listed))
			for _, job := range listed {
				rows = append(rows, []string{
					job.ID,
					textutil.DisplayTitle(job.State),
					job.Filename,
					strconv.FormatFloat(job.Progress, 'f', 0, 64) + "%",
					job.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "State", "File", "Progress", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft}))
			return nil
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "Filter by state (queued, converting, transcribing, diarizing, completed, failed)")
	return cmd
}

func newResultCommand(clientFor func() *client) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "result <job-id>",
		Short: "Print a completed job's transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := clientFor().result(args[0])
			if err != nil {
				return err
			}
			content, ok := payload.Files[format]
			if !ok {
				return fmt.Errorf("job %s has no %q artifact (available: %s)",
					payload.ID, format, strings.Join(sortedKeys(payload.Files), ", "))
			}
			fmt.Fprint(cmd.OutOrStdout(), content)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Artifact format to print")
	return cmd
}

func newDeleteCommand(clientFor func() *client) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <job-id>",
		Short: "Delete a job and its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFor().deleteJob(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func formatSeconds(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	return d.String()
}
