package jobs

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StoreOptions bound the store's growth.
type StoreOptions struct {
	// MaxJobs caps the number of records held at once. Zero means unbounded.
	MaxJobs int
	// Retention is how long terminal jobs are kept before Sweep removes
	// them. Zero disables age-based eviction.
	Retention time.Duration
}

// Store is the sole owner of job records. All reads return snapshots with
// live progress computed at read time.
type Store struct {
	mu   sync.Mutex
	jobs map[string]*Job
	opts StoreOptions
	now  func() time.Time
}

// NewStore creates an empty store.
func NewStore(opts StoreOptions) *Store {
	return &Store{
		jobs: make(map[string]*Job),
		opts: opts,
		now:  time.Now,
	}
}

// WithClock sets a custom time source (for testing).
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Create registers a new queued job and returns its snapshot. When the store
// is at capacity, the oldest terminal job is evicted first; if every record
// is still live the submission is refused.
func (s *Store) Create(job Job) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.MaxJobs > 0 && len(s.jobs) >= s.opts.MaxJobs {
		if !s.evictOldestTerminal() {
			return Job{}, ErrStoreFull
		}
	}

	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.State = StateQueued
	job.CreatedAt = s.now()
	stored := job
	s.jobs[job.ID] = &stored
	return s.snapshot(&stored), nil
}

// Get returns a snapshot of one job.
func (s *Store) Get(id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.snapshot(job), nil
}

// List returns snapshots of all jobs, newest first. A non-empty state
// filters the result.
func (s *Store) List(state State) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if state != "" && job.State != state {
			continue
		}
		out = append(out, s.snapshot(job))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Delete removes a job. Jobs whose pipeline is running cannot be deleted.
func (s *Store) Delete(id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if job.State.Active() {
		return Job{}, fmt.Errorf("%w: %s is %s", ErrJobActive, id, job.State)
	}
	removed := s.snapshot(job)
	delete(s.jobs, id)
	return removed, nil
}

// Publish applies one pipeline event to the job it names. Store implements
// the pipeline's event sink.
func (s *Store) Publish(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[event.JobID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, event.JobID)
	}

	switch event.Type {
	case EventEstimate:
		job.MediaDuration = event.MediaDuration
		job.EstimatedSeconds = event.EstimatedSeconds
		return nil
	case EventWarning:
		job.Warning = event.Warning
		return nil
	case EventStateChanged:
		return s.applyState(job, event)
	}
	return fmt.Errorf("unknown event type %q", event.Type)
}

func (s *Store) applyState(job *Job, event Event) error {
	if !transitionAllowed(job.State, event.State) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.State, event.State)
	}
	if job.State == StateQueued && event.State.Active() {
		job.StartedAt = s.now()
	}
	job.State = event.State
	switch event.State {
	case StateCompleted:
		job.CompletedAt = s.now()
		job.Progress = 100
		job.ResultDir = event.ResultDir
		job.Artifacts = event.Artifacts
	case StateFailed:
		job.CompletedAt = s.now()
		job.ErrorMessage = event.ErrorMessage
	}
	return nil
}

// Sweep evicts terminal jobs older than the retention window and returns
// their snapshots so callers can remove artifacts from disk.
func (s *Store) Sweep() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.Retention <= 0 {
		return nil
	}
	cutoff := s.now().Add(-s.opts.Retention)
	var removed []Job
	for id, job := range s.jobs {
		if job.State.Terminal() && job.CompletedAt.Before(cutoff) {
			removed = append(removed, s.snapshot(job))
			delete(s.jobs, id)
		}
	}
	return removed
}

// Len returns the number of records held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *Store) evictOldestTerminal() bool {
	var oldest *Job
	for _, job := range s.jobs {
		if !job.State.Terminal() {
			continue
		}
		if oldest == nil || job.CompletedAt.Before(oldest.CompletedAt) {
			oldest = job
		}
	}
	if oldest == nil {
		return false
	}
	delete(s.jobs, oldest.ID)
	return true
}

// snapshot copies a record and computes live progress. Progress is derived
// from elapsed time over the precomputed ETA, never decreases, and stays
// below 100 until the pipeline confirms a terminal state.
func (s *Store) snapshot(job *Job) Job {
	if job.State.Active() && job.EstimatedSeconds > 0 && !job.StartedAt.IsZero() {
		elapsed := s.now().Sub(job.StartedAt).Seconds()
		progress := elapsed / job.EstimatedSeconds * 100
		if progress > 99 {
			progress = 99
		}
		if progress > job.Progress {
			job.Progress = progress
		}
	}

	out := *job
	if job.Formats != nil {
		out.Formats = append([]string(nil), job.Formats...)
	}
	if job.Artifacts != nil {
		out.Artifacts = make(map[string]string, len(job.Artifacts))
		for k, v := range job.Artifacts {
			out.Artifacts[k] = v
		}
	}
	return out
}
