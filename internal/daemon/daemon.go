// Package daemon wires the service together and enforces single-instance
// execution.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"scribe/internal/api"
	"scribe/internal/asr"
	"scribe/internal/config"
	"scribe/internal/diarize"
	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/media"
	"scribe/internal/pipeline"
	"scribe/internal/scheduler"
	"scribe/internal/stats"
)

// Daemon owns the stores, the worker pool, the retention sweeper and the
// HTTP listener.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *jobs.Store
	stats     *stats.Store
	estimator *stats.Estimator
	sched     *scheduler.Scheduler
	server    *http.Server
	listener  net.Listener

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	lifecycle atomic.Pointer[context.Context]
	cancel    context.CancelFunc
	sweeper   chan struct{}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	statsStore, err := stats.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open stats store: %w", err)
	}
	estimator, err := stats.NewEstimator(context.Background(), statsStore)
	if err != nil {
		_ = statsStore.Close()
		return nil, err
	}

	store := jobs.NewStore(jobs.StoreOptions{
		MaxJobs:   cfg.Workflow.MaxJobs,
		Retention: time.Duration(cfg.Workflow.RetentionHours) * time.Hour,
	})

	var diarizer diarize.Diarizer
	if cfg.Diarization.Enabled {
		diarizer = diarize.NewEngine(cfg.Diarization)
	}

	pipe := pipeline.New(
		cfg,
		media.NewConverter(cfg.FFmpegBinary()),
		media.NewProber(cfg.FFprobeBinary()),
		asr.NewEngine(cfg.Recognizer),
		diarizer,
		estimator,
		store,
		logger,
	)

	d := &Daemon{
		cfg:       cfg,
		logger:    logging.WithComponent(logger, "daemon"),
		store:     store,
		stats:     statsStore,
		estimator: estimator,
		lockPath:  filepath.Join(cfg.Paths.LogDir, "scribed.lock"),
		sweeper:   make(chan struct{}),
	}
	d.lock = flock.New(d.lockPath)
	d.sched = scheduler.New(pipe, store, cfg.Workflow.MaxConcurrentJobs, logger)

	apiServer := api.NewServer(cfg, store, estimator, lifecycleSubmitter{d}, logger)
	d.server = &http.Server{
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return d, nil
}

// lifecycleSubmitter binds pipeline executions to the daemon lifetime rather
// than the HTTP request that created them.
type lifecycleSubmitter struct {
	d *Daemon
}

func (l lifecycleSubmitter) Submit(_ context.Context, job jobs.Job) {
	ctx := context.Background()
	if p := l.d.lifecycle.Load(); p != nil {
		ctx = *p
	}
	l.d.sched.Submit(ctx, job)
}

// Start acquires the instance lock, verifies recognizer credentials, and
// begins serving.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another scribe daemon instance is already running")
	}

	if err := asr.NewEngine(d.cfg.Recognizer).CheckCredentials(); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("recognizer credentials: %w", err)
	}

	listener, err := net.Listen("tcp", d.cfg.Paths.APIBind)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("listen on %s: %w", d.cfg.Paths.APIBind, err)
	}
	d.listener = listener

	lifecycle, cancel := context.WithCancel(ctx)
	d.lifecycle.Store(&lifecycle)
	d.cancel = cancel
	go d.runSweeper(lifecycle)
	go func() {
		if serveErr := d.server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			d.logger.Error("http server", logging.Error(serveErr))
		}
	}()

	d.running.Store(true)
	d.logger.Info("scribe daemon started",
		logging.String("bind", listener.Addr().String()),
		logging.String("lock", d.lockPath),
		logging.Int("max_concurrent_jobs", d.cfg.Workflow.MaxConcurrentJobs))
	return nil
}

// Addr returns the bound listen address once started.
func (d *Daemon) Addr() string {
	if d.listener == nil {
		return ""
	}
	return d.listener.Addr().String()
}

// Stop drains the worker pool and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := d.server.Shutdown(shutdownCtx); err != nil {
		d.logger.Warn("http shutdown", logging.Error(err))
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.sched.Wait()
	close(d.sweeper)

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("scribe daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return d.stats.Close()
}

// runSweeper evicts aged terminal jobs and their files on a fixed cadence.
func (d *Daemon) runSweeper(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.sweeper:
			return
		case <-ticker.C:
			d.sweepOnce()
		}
	}
}

func (d *Daemon) sweepOnce() {
	removed := d.store.Sweep()
	for _, job := range removed {
		if job.SourcePath != "" {
			if err := os.Remove(job.SourcePath); err != nil && !os.IsNotExist(err) {
				d.logger.Warn("sweep upload", logging.String(logging.FieldJobID, job.ID), logging.Error(err))
			}
		}
		if job.ResultDir != "" {
			if err := os.RemoveAll(job.ResultDir); err != nil {
				d.logger.Warn("sweep results", logging.String(logging.FieldJobID, job.ID), logging.Error(err))
			}
		}
	}
	if len(removed) > 0 {
		d.logger.Info("retention sweep", logging.Int("evicted", len(removed)))
	}
}
