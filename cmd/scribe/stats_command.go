package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newStatsCommand(clientFor func() *client) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show throughput history per extension",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := clientFor().stats()
			if err != nil {
				return err
			}

			extensions := make([]string, 0, len(payload.Extensions))
			for ext := range payload.Extensions {
				extensions = append(extensions, ext)
			}
			sort.Strings(extensions)

			rows := make([][]string, 0, len(extensions)+1)
			for _, ext := range extensions {
				rows = append(rows, profileRow(payload.Extensions[ext]))
			}
			if payload.Global.Samples > 0 {
				global := payload.Global
				global.Extension = "(all)"
				rows = append(rows, profileRow(global))
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Extension", "Samples", "Avg Duration", "Avg Processing", "Ratio"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight}))
			return nil
		},
	}
}

func profileRow(p extensionProfile) []string {
	return []string{
		p.Extension,
		strconv.Itoa(p.Samples),
		formatSeconds(p.AvgMediaDuration),
		formatSeconds(p.AvgConversionSeconds + p.AvgTranscribeSeconds),
		strconv.FormatFloat(p.ProcessingRatio, 'f', 2, 64),
	}
}

func newEstimateCommand(clientFor func() *client) *cobra.Command {
	var durations []float64

	cmd := &cobra.Command{
		Use:   "estimate <file> [file...]",
		Short: "Estimate processing time from extensions and durations",
		Long: "Estimates processing time for the named files. Durations are taken " +
			"from the --duration flags positionally; files without one are treated " +
			"as unknown duration.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hints := make([]estimateHint, 0, len(args))
			for i, path := range args {
				hint := estimateHint{Extension: strings.ToLower(filepath.Ext(path))}
				if i < len(durations) {
					hint.MediaDuration = durations[i]
				}
				hints = append(hints, hint)
			}

			total, err := clientFor().estimate(hints)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "estimated processing time: %s\n", formatSeconds(total))
			return nil
		},
	}

	cmd.Flags().Float64SliceVar(&durations, "duration", nil, "Media duration in seconds, one per file")
	return cmd
}
