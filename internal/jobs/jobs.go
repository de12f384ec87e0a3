// Package jobs owns the in-process job store and the job lifecycle state
// machine.
package jobs

import (
	"errors"
	"time"
)

// State is the lifecycle stage of a job.
type State string

const (
	StateQueued       State = "queued"
	StateConverting   State = "converting"
	StateTranscribing State = "transcribing"
	StateDiarizing    State = "diarizing"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
)

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Active reports whether a pipeline is currently processing the job.
func (s State) Active() bool {
	return s == StateConverting || s == StateTranscribing || s == StateDiarizing
}

var validTransitions = map[State][]State{
	StateQueued:       {StateConverting, StateFailed},
	StateConverting:   {StateTranscribing, StateFailed},
	StateTranscribing: {StateDiarizing, StateCompleted, StateFailed},
	StateDiarizing:    {StateCompleted, StateFailed},
	StateCompleted:    {},
	StateFailed:       {},
}

func transitionAllowed(from, to State) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

var (
	// ErrNotFound reports an unknown job id.
	ErrNotFound = errors.New("job not found")
	// ErrJobActive reports a deletion attempt against a job whose pipeline
	// is currently running.
	ErrJobActive = errors.New("job is being processed")
	// ErrStoreFull reports that the store is at capacity with no evictable
	// terminal jobs.
	ErrStoreFull = errors.New("job store is full")
	// ErrInvalidTransition reports a state change the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Job is one transcription request and its lifecycle state. Values returned
// by the store are snapshots; the store owns the canonical record.
type Job struct {
	ID               string            `json:"id"`
	State            State             `json:"state"`
	Filename         string            `json:"filename"`
	SourcePath       string            `json:"-"`
	ByteSize         int64             `json:"byte_size"`
	MediaDuration    float64           `json:"media_duration,omitempty"`
	Fingerprint      string            `json:"fingerprint,omitempty"`
	Formats          []string          `json:"formats"`
	Diarize          bool              `json:"diarize"`
	SpeakerCount     int               `json:"speaker_count,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	StartedAt        time.Time         `json:"started_at,omitzero"`
	CompletedAt      time.Time         `json:"completed_at,omitzero"`
	Progress         float64           `json:"progress"`
	EstimatedSeconds float64           `json:"estimated_seconds,omitempty"`
	ResultDir        string            `json:"-"`
	Artifacts        map[string]string `json:"artifacts,omitempty"`
	ErrorMessage     string            `json:"error,omitempty"`
	Warning          string            `json:"warning,omitempty"`
}
