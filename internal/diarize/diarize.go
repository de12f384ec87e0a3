// Package diarize adapts the external speaker diarization engine and maps its
// turns onto transcript segments.
package diarize

import (
	"context"
	"errors"
)

// Turn is one diarization-produced time span attributed to a single speaker.
type Turn struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// Diarizer produces a time-sorted turn list for an audio file. speakerCount
// is a hint for the engine; zero means unknown.
type Diarizer interface {
	Diarize(ctx context.Context, audioPath string, speakerCount int) ([]Turn, error)
}

// UnknownSpeaker is assigned to segments that overlap no turn at all.
const UnknownSpeaker = "Unknown speaker"

// DefaultSpeaker is the single label every segment receives when diarization
// was requested but the engine failed.
const DefaultSpeaker = "Speaker #1"

// ErrMissingCredentials reports that the diarization engine token is absent.
// Unlike the recognizer, this only degrades the job to a single speaker.
var ErrMissingCredentials = errors.New("diarization credentials missing")
