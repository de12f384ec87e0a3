package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"scribe/internal/jobs"
	"scribe/internal/logging"
)

type runnerFunc func(ctx context.Context, job jobs.Job) error

func (f runnerFunc) Process(ctx context.Context, job jobs.Job) error { return f(ctx, job) }

type recordingSink struct {
	mu     sync.Mutex
	events []jobs.Event
}

func (s *recordingSink) Publish(event jobs.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) failed() []jobs.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []jobs.Event
	for _, event := range s.events {
		if event.Type == jobs.EventStateChanged && event.State == jobs.StateFailed {
			out = append(out, event)
		}
	}
	return out
}

func TestAtMostPermitsRunConcurrently(t *testing.T) {
	const permits = 3
	const submissions = 12

	var running, peak atomic.Int32
	release := make(chan struct{})

	runner := runnerFunc(func(context.Context, jobs.Job) error {
		now := running.Add(1)
		for {
			old := peak.Load()
			if now <= old || peak.CompareAndSwap(old, now) {
				break
			}
		}
		<-release
		running.Add(-1)
		return nil
	})

	sink := &recordingSink{}
	sched := New(runner, sink, permits, logging.NewNop())

	for i := 0; i < submissions; i++ {
		sched.Submit(context.Background(), jobs.Job{ID: "job"})
	}

	// Give the pool time to saturate, then let everything finish.
	time.Sleep(50 * time.Millisecond)
	close(release)
	sched.Wait()

	if got := peak.Load(); got > permits {
		t.Fatalf("observed %d concurrent pipelines, permit cap is %d", got, permits)
	}
	if got := peak.Load(); got != permits {
		t.Fatalf("pool never saturated: peak %d, want %d", got, permits)
	}
}

func TestPanicFailsJobAndReleasesPermit(t *testing.T) {
	calls := atomic.Int32{}
	runner := runnerFunc(func(_ context.Context, job jobs.Job) error {
		calls.Add(1)
		if job.ID == "boom" {
			panic("stage exploded")
		}
		return nil
	})

	sink := &recordingSink{}
	sched := New(runner, sink, 1, logging.NewNop())

	sched.Submit(context.Background(), jobs.Job{ID: "boom"})
	sched.Submit(context.Background(), jobs.Job{ID: "next"})
	sched.Wait()

	failed := sink.failed()
	if len(failed) != 1 || failed[0].JobID != "boom" {
		t.Fatalf("expected one failed event for the panicking job, got %+v", failed)
	}
	if calls.Load() != 2 {
		t.Fatalf("permit not released after panic: %d pipeline calls", calls.Load())
	}
}

func TestSubmitDoesNotBlockCaller(t *testing.T) {
	block := make(chan struct{})
	runner := runnerFunc(func(context.Context, jobs.Job) error {
		<-block
		return nil
	})
	sched := New(runner, &recordingSink{}, 1, logging.NewNop())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			sched.Submit(context.Background(), jobs.Job{ID: "job"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit blocked the caller")
	}
	close(block)
	sched.Wait()
}

func TestShutdownFailsUnadmittedJobs(t *testing.T) {
	block := make(chan struct{})
	runner := runnerFunc(func(context.Context, jobs.Job) error {
		<-block
		return nil
	})
	sink := &recordingSink{}
	sched := New(runner, sink, 1, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	sched.Submit(ctx, jobs.Job{ID: "running"})
	time.Sleep(20 * time.Millisecond)
	sched.Submit(ctx, jobs.Job{ID: "waiting"})

	cancel()
	time.Sleep(20 * time.Millisecond)
	close(block)
	sched.Wait()

	failed := sink.failed()
	if len(failed) != 1 || failed[0].JobID != "waiting" {
		t.Fatalf("expected the unadmitted job to fail on shutdown, got %+v", failed)
	}
}
