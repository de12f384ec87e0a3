package jobs

import (
	"errors"
	"testing"
	"time"
)

func newTestStore(opts StoreOptions) (*Store, *time.Time) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	store := NewStore(opts).WithClock(func() time.Time { return now })
	return store, &now
}

func mustCreate(t *testing.T, store *Store, filename string) Job {
	t.Helper()
	job, err := store.Create(Job{Filename: filename})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return job
}

func publishState(t *testing.T, store *Store, id string, state State) {
	t.Helper()
	if err := store.Publish(Event{Type: EventStateChanged, JobID: id, State: state}); err != nil {
		t.Fatalf("Publish(%s) failed: %v", state, err)
	}
}

func TestCreateAssignsIDAndQueues(t *testing.T) {
	store, _ := newTestStore(StoreOptions{})
	job := mustCreate(t, store, "a.mp3")
	if job.ID == "" {
		t.Fatal("expected generated id")
	}
	if job.State != StateQueued {
		t.Fatalf("state = %s, want queued", job.State)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	store, _ := newTestStore(StoreOptions{})
	job := mustCreate(t, store, "a.mp3")

	publishState(t, store, job.ID, StateConverting)
	publishState(t, store, job.ID, StateTranscribing)
	publishState(t, store, job.ID, StateDiarizing)
	if err := store.Publish(Event{
		Type: EventStateChanged, JobID: job.ID, State: StateCompleted,
		Artifacts: map[string]string{"text": "a.txt"},
	}); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	got, err := store.Get(job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.State != StateCompleted || got.Progress != 100 {
		t.Fatalf("got state=%s progress=%v", got.State, got.Progress)
	}
}

func TestInvalidTransitionRejected(t *testing.T) {
	store, _ := newTestStore(StoreOptions{})
	job := mustCreate(t, store, "a.mp3")

	err := store.Publish(Event{Type: EventStateChanged, JobID: job.ID, State: StateDiarizing})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestDeleteActiveJobRejected(t *testing.T) {
	store, _ := newTestStore(StoreOptions{})
	job := mustCreate(t, store, "a.mp3")
	publishState(t, store, job.ID, StateConverting)
	publishState(t, store, job.ID, StateTranscribing)

	if _, err := store.Delete(job.ID); !errors.Is(err, ErrJobActive) {
		t.Fatalf("expected ErrJobActive, got %v", err)
	}

	got, err := store.Get(job.ID)
	if err != nil {
		t.Fatalf("Get after rejected delete failed: %v", err)
	}
	if got.State != StateTranscribing {
		t.Fatalf("state changed by rejected delete: %s", got.State)
	}
}

func TestDeleteQueuedJob(t *testing.T) {
	store, _ := newTestStore(StoreOptions{})
	job := mustCreate(t, store, "a.mp3")

	if _, err := store.Delete(job.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(job.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProgressIsMonotoneAndClamped(t *testing.T) {
	store, now := newTestStore(StoreOptions{})
	job := mustCreate(t, store, "a.mp3")
	publishState(t, store, job.ID, StateConverting)
	if err := store.Publish(Event{
		Type: EventEstimate, JobID: job.ID, MediaDuration: 100, EstimatedSeconds: 50,
	}); err != nil {
		t.Fatalf("estimate failed: %v", err)
	}
	publishState(t, store, job.ID, StateTranscribing)

	*now = now.Add(25 * time.Second)
	got, _ := store.Get(job.ID)
	if got.Progress < 49 || got.Progress > 51 {
		t.Fatalf("progress = %v, want ~50", got.Progress)
	}

	// Past the estimate the job is still running: clamp below 100.
	*now = now.Add(120 * time.Second)
	got, _ = store.Get(job.ID)
	if got.Progress >= 100 {
		t.Fatalf("progress = %v, must stay below 100 until terminal", got.Progress)
	}

	// Monotone even if the clock misbehaves.
	*now = now.Add(-60 * time.Second)
	again, _ := store.Get(job.ID)
	if again.Progress < got.Progress {
		t.Fatalf("progress decreased: %v -> %v", got.Progress, again.Progress)
	}
}

func TestCapacityEvictsOldestTerminal(t *testing.T) {
	store, now := newTestStore(StoreOptions{MaxJobs: 2})

	first := mustCreate(t, store, "first.mp3")
	publishState(t, store, first.ID, StateConverting)
	publishState(t, store, first.ID, StateTranscribing)
	publishState(t, store, first.ID, StateCompleted)

	*now = now.Add(time.Minute)
	mustCreate(t, store, "second.mp3")

	// Store is full; the completed job gives way.
	third := mustCreate(t, store, "third.mp3")
	if _, err := store.Get(first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected oldest terminal job evicted, got %v", err)
	}
	if _, err := store.Get(third.ID); err != nil {
		t.Fatalf("new job missing: %v", err)
	}
}

func TestCapacityWithoutTerminalJobsRefuses(t *testing.T) {
	store, _ := newTestStore(StoreOptions{MaxJobs: 1})
	mustCreate(t, store, "live.mp3")

	if _, err := store.Create(Job{Filename: "more.mp3"}); !errors.Is(err, ErrStoreFull) {
		t.Fatalf("expected ErrStoreFull, got %v", err)
	}
}

func TestSweepEvictsAgedTerminalJobs(t *testing.T) {
	store, now := newTestStore(StoreOptions{Retention: time.Hour})

	done := mustCreate(t, store, "old.mp3")
	publishState(t, store, done.ID, StateConverting)
	publishState(t, store, done.ID, StateTranscribing)
	publishState(t, store, done.ID, StateCompleted)
	live := mustCreate(t, store, "live.mp3")

	*now = now.Add(2 * time.Hour)
	removed := store.Sweep()
	if len(removed) != 1 || removed[0].ID != done.ID {
		t.Fatalf("unexpected sweep result: %+v", removed)
	}
	if _, err := store.Get(live.ID); err != nil {
		t.Fatalf("non-terminal job must survive sweep: %v", err)
	}
}

func TestFailedJobCarriesMessage(t *testing.T) {
	store, _ := newTestStore(StoreOptions{})
	job := mustCreate(t, store, "a.mp3")
	publishState(t, store, job.ID, StateConverting)
	if err := store.Publish(Event{
		Type: EventStateChanged, JobID: job.ID, State: StateFailed,
		ErrorMessage: "conversion failed: codec not found",
	}); err != nil {
		t.Fatalf("fail failed: %v", err)
	}

	got, _ := store.Get(job.ID)
	if got.State != StateFailed || got.ErrorMessage == "" {
		t.Fatalf("got state=%s error=%q", got.State, got.ErrorMessage)
	}
}
