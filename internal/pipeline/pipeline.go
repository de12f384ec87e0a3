// Package pipeline drives one job through convert, transcribe, optional
// diarize, render and persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scribe/internal/asr"
	"scribe/internal/config"
	"scribe/internal/diarize"
	"scribe/internal/jobs"
	"scribe/internal/logging"
	"scribe/internal/render"
	"scribe/internal/stats"
	"scribe/internal/textutil"
)

// Converter normalizes a media file into recognizer input.
type Converter interface {
	Convert(ctx context.Context, sourcePath, workDir string) (string, error)
}

// Prober reads media duration, returning 0 when the file cannot be probed.
type Prober interface {
	Duration(ctx context.Context, path string) float64
}

// Pipeline executes the per-job stage sequence. It mutates job records only
// through the event sink.
type Pipeline struct {
	cfg         *config.Config
	converter   Converter
	prober      Prober
	transcriber asr.Transcriber
	diarizer    diarize.Diarizer
	estimator   *stats.Estimator
	sink        jobs.Sink
	logger      *slog.Logger
}

// New wires a pipeline from its collaborators. The diarizer may be nil when
// diarization is disabled.
func New(
	cfg *config.Config,
	converter Converter,
	prober Prober,
	transcriber asr.Transcriber,
	diarizer diarize.Diarizer,
	estimator *stats.Estimator,
	sink jobs.Sink,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		converter:   converter,
		prober:      prober,
		transcriber: transcriber,
		diarizer:    diarizer,
		estimator:   estimator,
		sink:        sink,
		logger:      logging.WithComponent(logger, "pipeline"),
	}
}

// Process runs the full stage sequence for one job. The returned error is
// informational; the terminal state has already been published to the sink.
func (p *Pipeline) Process(ctx context.Context, job jobs.Job) error {
	logger := p.logger.With(logging.String(logging.FieldJobID, job.ID))
	started := time.Now()
	extension := strings.ToLower(filepath.Ext(job.Filename))

	p.setState(job.ID, jobs.StateConverting)

	if err := p.awaitInput(ctx, job.SourcePath); err != nil {
		return p.fail(ctx, job, extension, started, logger, err)
	}

	mediaDuration := p.prober.Duration(ctx, job.SourcePath)
	estimate := p.estimator.Estimate(extension, mediaDuration)
	p.publish(jobs.Event{
		Type:             jobs.EventEstimate,
		JobID:            job.ID,
		MediaDuration:    mediaDuration,
		EstimatedSeconds: estimate,
	})
	logger.Info("job admitted",
		logging.String("filename", job.Filename),
		logging.Float64("media_duration", mediaDuration),
		logging.Float64("estimated_seconds", estimate))

	conversionStart := time.Now()
	audioPath, err := p.converter.Convert(ctx, job.SourcePath, p.cfg.Paths.WorkDir)
	if err != nil {
		return p.fail(ctx, job, extension, started, logger,
			Wrap(ErrConversion, "convert", "conversion failed", err))
	}
	defer func() {
		if removeErr := os.Remove(audioPath); removeErr != nil && !os.IsNotExist(removeErr) {
			logger.Warn("remove converted audio", logging.Error(removeErr))
		}
	}()
	conversionSeconds := time.Since(conversionStart).Seconds()

	p.setState(job.ID, jobs.StateTranscribing)
	transcriptionStart := time.Now()
	segments, err := p.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		marker := ErrTranscription
		if errors.Is(err, asr.ErrMissingCredentials) {
			marker = ErrCredential
		}
		return p.fail(ctx, job, extension, started, logger,
			Wrap(marker, "transcribe", "recognition failed", err))
	}
	transcriptionSeconds := time.Since(transcriptionStart).Seconds()

	warning := ""
	if len(segments) == 0 {
		warning = "no speech detected"
		logger.Warn("transcription produced no segments", logging.String("filename", job.Filename))
		p.publish(jobs.Event{Type: jobs.EventWarning, JobID: job.ID, Warning: warning})
	}

	if job.Diarize && len(segments) > 0 {
		segments = p.diarizeSegments(ctx, job, audioPath, segments, logger)
	}

	artifacts := map[string]string{}
	resultDir := ""
	if len(segments) > 0 {
		resultDir = filepath.Join(p.cfg.Paths.ResultsDir, job.ID)
		artifacts, err = p.renderAll(job, resultDir, segments)
		if err != nil {
			return p.fail(ctx, job, extension, started, logger, err)
		}
	}

	p.recordThroughput(ctx, extension, mediaDuration, conversionSeconds, transcriptionSeconds, true, logger)

	if err := os.Remove(job.SourcePath); err != nil && !os.IsNotExist(err) {
		logger.Warn("remove source upload", logging.Error(err))
	}

	p.publish(jobs.Event{
		Type:      jobs.EventStateChanged,
		JobID:     job.ID,
		State:     jobs.StateCompleted,
		ResultDir: resultDir,
		Artifacts: artifacts,
	})
	logger.Info("job completed",
		logging.Int("segments", len(segments)),
		logging.Duration("elapsed", time.Since(started)))
	return nil
}

// awaitInput tolerates upload-write races with a bounded existence recheck.
func (p *Pipeline) awaitInput(ctx context.Context, path string) error {
	attempts := p.cfg.Workflow.InputRetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := time.Duration(p.cfg.Workflow.InputRetryDelayMS) * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Wrap(ErrInput, "input", "wait interrupted", ctx.Err())
			case <-time.After(delay):
			}
		}
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return nil
		}
		if err == nil {
			err = fmt.Errorf("%s is a directory", path)
		}
		lastErr = err
	}
	return Wrap(ErrInput, "input", "file unreadable after retries", lastErr)
}

// diarizeSegments attributes speakers, degrading to a single default label on
// any diarization failure.
func (p *Pipeline) diarizeSegments(ctx context.Context, job jobs.Job, audioPath string, segments []asr.Segment, logger *slog.Logger) []asr.Segment {
	p.setState(job.ID, jobs.StateDiarizing)

	if p.diarizer == nil {
		p.warnDiarization(job.ID, logger, Wrap(ErrDiarization, "diarize", "engine unavailable", nil))
		return diarize.AssignDefault(segments)
	}

	turns, err := p.diarizer.Diarize(ctx, audioPath, job.SpeakerCount)
	if err != nil {
		p.warnDiarization(job.ID, logger, Wrap(ErrDiarization, "diarize", "speaker attribution degraded", err))
		return diarize.AssignDefault(segments)
	}
	if len(turns) == 0 {
		p.warnDiarization(job.ID, logger, Wrap(ErrDiarization, "diarize", "no speaker turns detected", nil))
		return diarize.AssignDefault(segments)
	}
	return diarize.Annotate(segments, turns)
}

func (p *Pipeline) warnDiarization(jobID string, logger *slog.Logger, err error) {
	logger.Warn("diarization degraded", logging.Error(err))
	p.publish(jobs.Event{Type: jobs.EventWarning, JobID: jobID, Warning: err.Error()})
}

func (p *Pipeline) renderAll(job jobs.Job, resultDir string, segments []asr.Segment) (map[string]string, error) {
	if err := os.MkdirAll(resultDir, 0o755); err != nil {
		return nil, Wrap(ErrTranscription, "render", "create result directory", err)
	}

	base := textutil.SanitizeFileName(strings.TrimSuffix(job.Filename, filepath.Ext(job.Filename)))
	formats := job.Formats
	if len(formats) == 0 {
		formats = p.cfg.Output.Formats
	}

	artifacts := make(map[string]string, len(formats))
	for _, name := range formats {
		format, err := render.ParseFormat(name)
		if err != nil {
			return nil, Wrap(ErrInput, "render", "unsupported format", err)
		}
		if format == render.FormatMarkdown && !job.Diarize {
			continue
		}
		content, err := render.Render(format, segments)
		if err != nil {
			return nil, Wrap(ErrTranscription, "render", "format rendering", err)
		}
		fileName := render.FileName(base, format)
		path := filepath.Join(resultDir, fileName)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return nil, Wrap(ErrTranscription, "render", "write artifact", err)
		}
		artifacts[string(format)] = fileName
	}
	return artifacts, nil
}

func (p *Pipeline) fail(ctx context.Context, job jobs.Job, extension string, started time.Time, logger *slog.Logger, err error) error {
	p.recordThroughput(ctx, extension, job.MediaDuration, 0, 0, false, logger)
	p.publish(jobs.Event{
		Type:         jobs.EventStateChanged,
		JobID:        job.ID,
		State:        jobs.StateFailed,
		ErrorMessage: err.Error(),
	})
	logger.Error("job failed",
		logging.Error(err),
		logging.Duration("elapsed", time.Since(started)))
	return err
}

func (p *Pipeline) recordThroughput(ctx context.Context, extension string, mediaDuration, conversionSeconds, transcriptionSeconds float64, success bool, logger *slog.Logger) {
	err := p.estimator.Record(ctx, stats.Record{
		Extension:            extension,
		MediaDuration:        mediaDuration,
		ConversionSeconds:    conversionSeconds,
		TranscriptionSeconds: transcriptionSeconds,
		Success:              success,
	})
	if err != nil {
		logger.Warn("record throughput", logging.Error(err))
	}
}

func (p *Pipeline) setState(jobID string, state jobs.State) {
	p.publish(jobs.Event{Type: jobs.EventStateChanged, JobID: jobID, State: state})
}

func (p *Pipeline) publish(event jobs.Event) {
	if err := p.sink.Publish(event); err != nil {
		p.logger.Warn("publish event",
			logging.String(logging.FieldJobID, event.JobID),
			logging.String(logging.FieldEventType, string(event.Type)),
			logging.Error(err))
	}
}
