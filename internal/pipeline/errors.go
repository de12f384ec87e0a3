package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInput marks unsupported or unreadable input files.
	ErrInput = errors.New("input error")
	// ErrConversion marks converter failures.
	ErrConversion = errors.New("conversion error")
	// ErrCredential marks missing or invalid engine credentials. Fatal for
	// recognition, degraded-only for diarization.
	ErrCredential = errors.New("credential error")
	// ErrTranscription marks unrecoverable recognizer failures.
	ErrTranscription = errors.New("transcription error")
	// ErrDiarization marks diarization failures. Never fails a job.
	ErrDiarization = errors.New("diarization error")
)

// Wrap tags an error with a taxonomy marker plus stage context so the final
// job record classifies cleanly.
func Wrap(marker error, stage, message string, err error) error {
	detail := buildDetail(stage, message)
	if marker == nil {
		marker = ErrTranscription
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, message string) string {
	parts := make([]string, 0, 2)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
