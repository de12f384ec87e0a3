package diarize

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"scribe/internal/config"
)

// CommandRunner executes an external command and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Engine runs the external diarization pipeline and parses its JSON output.
type Engine struct {
	cfg    config.Diarization
	runner CommandRunner
}

// NewEngine creates a diarization adapter from configuration.
func NewEngine(cfg config.Diarization) *Engine {
	return &Engine{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (e *Engine) WithCommandRunner(runner CommandRunner) *Engine {
	e.runner = runner
	return e
}

// Diarize invokes the diarization binary and returns turns sorted by start
// time. The engine must print {"turns": [{"speaker", "start", "end"}]} on
// stdout. speakerCount pins the exact speaker count when positive; otherwise
// configured min/max bounds are passed through.
func (e *Engine) Diarize(ctx context.Context, audioPath string, speakerCount int) ([]Turn, error) {
	if strings.TrimSpace(e.cfg.AuthToken) == "" {
		return nil, fmt.Errorf("%w: set diarization.auth_token", ErrMissingCredentials)
	}
	if strings.TrimSpace(audioPath) == "" {
		return nil, fmt.Errorf("diarize: audio path required")
	}

	output, err := e.run(ctx, e.cfg.Binary, e.buildArgs(audioPath, speakerCount)...)
	if err != nil {
		return nil, fmt.Errorf("diarization: %w", err)
	}

	var payload struct {
		Turns []Turn `json:"turns"`
	}
	if err := json.Unmarshal(output, &payload); err != nil {
		return nil, fmt.Errorf("diarization output: %w", err)
	}

	turns := payload.Turns
	sort.SliceStable(turns, func(i, j int) bool {
		return turns[i].Start < turns[j].Start
	})
	return turns, nil
}

func (e *Engine) buildArgs(audioPath string, speakerCount int) []string {
	args := make([]string, 0, 8)
	args = append(args, audioPath, "--output-format", "json", "--hf-token", e.cfg.AuthToken)
	switch {
	case speakerCount > 0:
		args = append(args, "--num-speakers", strconv.Itoa(speakerCount))
	default:
		if e.cfg.MinSpeakers > 0 {
			args = append(args, "--min-speakers", strconv.Itoa(e.cfg.MinSpeakers))
		}
		if e.cfg.MaxSpeakers > 0 {
			args = append(args, "--max-speakers", strconv.Itoa(e.cfg.MaxSpeakers))
		}
	}
	return args
}

func (e *Engine) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if e.runner != nil {
		return e.runner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.Output()
	if err != nil {
		detail := ""
		if exitErr, ok := err.(*exec.ExitError); ok {
			detail = strings.TrimSpace(string(exitErr.Stderr))
		}
		if detail != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, detail)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return output, nil
}
