package daemon

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"scribe/internal/config"
	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/testsupport"
)

func TestStartServesHealthAndLocksInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	d, err := New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer d.Close()

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	resp, err := http.Get("http://" + d.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d", resp.StatusCode)
	}

	second, err := New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New second failed: %v", err)
	}
	defer second.Close()
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance must not acquire the lock")
	}

	d.Stop()
}

func TestStartRejectsMissingCredentials(t *testing.T) {
	cfg := testsupport.NewConfig(t, func(c *config.Config) { c.Recognizer.AuthToken = "" })

	d, err := New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer d.Close()

	if err := d.Start(context.Background()); err == nil {
		d.Stop()
		t.Fatal("expected credential failure on start")
	}
}

func TestSubmitAfterStopSeesCancelledLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, err := New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer d.Close()

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	d.Stop()

	lifecycle := d.lifecycle.Load()
	if lifecycle == nil {
		t.Fatal("lifecycle context missing after Stop")
	}
	if (*lifecycle).Err() == nil {
		t.Fatal("lifecycle context still live after Stop")
	}

	// A straggler submission must not panic and must end the job terminally.
	job, err := d.store.Create(jobs.Job{Filename: "late.mp3"})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	lifecycleSubmitter{d}.Submit(context.Background(), job)
	d.sched.Wait()

	got, err := d.store.Get(job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.State != jobs.StateFailed {
		t.Fatalf("state = %s, want %s", got.State, jobs.StateFailed)
	}
}

func TestSweepRemovesAgedJobFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, err := New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer d.Close()

	now := time.Now()
	d.store.WithClock(func() time.Time { return now })

	upload := filepath.Join(cfg.Paths.UploadDir, "old.mp3")
	testsupport.WriteFakeMedia(t, upload, 64)
	resultDir := filepath.Join(cfg.Paths.ResultsDir, "old-job")
	testsupport.WriteFile(t, filepath.Join(resultDir, "old.txt"), 8)

	job, err := d.store.Create(jobs.Job{Filename: "old.mp3", SourcePath: upload})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	for _, state := range []jobs.State{jobs.StateConverting, jobs.StateTranscribing} {
		if err := d.store.Publish(jobs.Event{Type: jobs.EventStateChanged, JobID: job.ID, State: state}); err != nil {
			t.Fatalf("publish %s: %v", state, err)
		}
	}
	if err := d.store.Publish(jobs.Event{
		Type: jobs.EventStateChanged, JobID: job.ID, State: jobs.StateCompleted,
		ResultDir: resultDir, Artifacts: map[string]string{"text": "old.txt"},
	}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// Inside the retention window nothing moves.
	d.sweepOnce()
	if _, err := os.Stat(resultDir); err != nil {
		t.Fatalf("fresh artifacts must survive the sweep: %v", err)
	}

	now = now.Add(time.Duration(cfg.Workflow.RetentionHours+1) * time.Hour)
	d.sweepOnce()

	if _, err := os.Stat(resultDir); !os.IsNotExist(err) {
		t.Fatalf("aged result dir not removed: %v", err)
	}
	if _, err := os.Stat(upload); !os.IsNotExist(err) {
		t.Fatalf("aged upload not removed: %v", err)
	}
	if _, err := d.store.Get(job.ID); err == nil {
		t.Fatal("aged job still present in the store")
	}
}
