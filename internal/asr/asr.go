// Package asr adapts the external speech recognition engine.
package asr

import (
	"context"
	"errors"
)

// Segment is one recognized utterance with its time boundaries. Speaker is
// empty until speaker attribution annotates it.
type Segment struct {
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker,omitempty"`
}

// Transcriber produces an ordered segment list for an audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]Segment, error)
}

// ErrMissingCredentials reports that the recognizer auth token is absent or
// malformed. The pipeline treats this as fatal for the job.
var ErrMissingCredentials = errors.New("recognizer credentials missing")
