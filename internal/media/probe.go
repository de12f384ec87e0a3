package media

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
)

// Prober reads media duration via ffprobe.
type Prober struct {
	ffprobe string
	runner  CommandRunner
}

// NewProber creates a prober using the given ffprobe binary.
func NewProber(ffprobe string) *Prober {
	return &Prober{ffprobe: ffprobe, runner: runCommand}
}

// WithCommandRunner sets a custom command runner (for testing).
func (p *Prober) WithCommandRunner(runner CommandRunner) *Prober {
	p.runner = runner
	return p
}

// Duration returns the media duration in seconds, or 0 when the file cannot
// be probed. Estimation falls back to a conservative default on 0, so probe
// failures never fail a job.
func (p *Prober) Duration(ctx context.Context, path string) float64 {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	}
	output, err := p.runner(ctx, p.ffprobe, args...)
	if err != nil {
		return 0
	}

	var payload struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(output, &payload); err != nil {
		return 0
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(payload.Format.Duration), 64)
	if err != nil || seconds < 0 {
		return 0
	}
	return seconds
}
