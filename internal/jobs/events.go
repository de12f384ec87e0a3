package jobs

// EventType identifies what a pipeline event carries.
type EventType string

const (
	// EventStateChanged moves the job to a new lifecycle state.
	EventStateChanged EventType = "state_changed"
	// EventEstimate attaches media duration and the precomputed ETA.
	EventEstimate EventType = "estimate"
	// EventWarning attaches a non-fatal warning to the job.
	EventWarning EventType = "warning"
)

// Event is one typed progress notification emitted by the pipeline and
// consumed by the store. The pipeline never touches job records directly.
type Event struct {
	Type             EventType
	JobID            string
	State            State
	MediaDuration    float64
	EstimatedSeconds float64
	Warning          string
	ErrorMessage     string
	ResultDir        string
	Artifacts        map[string]string
}

// Sink consumes pipeline events.
type Sink interface {
	Publish(Event) error
}
