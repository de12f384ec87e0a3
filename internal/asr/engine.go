package asr

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"scribe/internal/config"
)

// CommandRunner executes an external command and returns its combined output.
// It exists so tests can stub the recognizer binary.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Engine runs the external longform recognizer and parses its JSON output.
type Engine struct {
	cfg    config.Recognizer
	runner CommandRunner
}

// NewEngine creates a recognizer adapter from configuration.
func NewEngine(cfg config.Recognizer) *Engine {
	return &Engine{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (e *Engine) WithCommandRunner(runner CommandRunner) *Engine {
	e.runner = runner
	return e
}

// CheckCredentials verifies the auth token precondition the longform
// recognizer requires. Missing or malformed tokens are fatal.
func (e *Engine) CheckCredentials() error {
	token := strings.TrimSpace(e.cfg.AuthToken)
	if token == "" || !strings.HasPrefix(token, "hf_") {
		return fmt.Errorf("%w: set recognizer.auth_token or HF_TOKEN", ErrMissingCredentials)
	}
	return nil
}

// Transcribe invokes the recognizer binary against the audio path and returns
// the ordered segment list. The engine must print a JSON document of the form
// {"segments": [{"text", "start", "end"}]} on stdout.
func (e *Engine) Transcribe(ctx context.Context, audioPath string) ([]Segment, error) {
	if err := e.CheckCredentials(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(audioPath) == "" {
		return nil, fmt.Errorf("transcribe: audio path required")
	}

	output, err := e.run(ctx, e.cfg.Binary, e.buildArgs(audioPath)...)
	if err != nil {
		return nil, fmt.Errorf("recognizer: %w", err)
	}

	segments, err := parseSegments(output)
	if err != nil {
		return nil, fmt.Errorf("recognizer output: %w", err)
	}
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})
	return segments, nil
}

func (e *Engine) buildArgs(audioPath string) []string {
	args := make([]string, 0, 8)
	args = append(args, audioPath, "--output-format", "json")
	if e.cfg.Model != "" {
		args = append(args, "--model", e.cfg.Model)
	}
	if e.cfg.Language != "" {
		args = append(args, "--language", e.cfg.Language)
	}
	args = append(args, "--hf-token", e.cfg.AuthToken)
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

type segmentPayload struct {
	Segments []Segment `json:"segments"`
}

func parseSegments(data []byte) ([]Segment, error) {
	var payload segmentPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	segments := make([]Segment, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		if seg.End < seg.Start {
			return nil, fmt.Errorf("segment boundaries inverted: %.2f > %.2f", seg.Start, seg.End)
		}
		segments = append(segments, seg)
	}
	return segments, nil
}
