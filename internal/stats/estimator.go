package stats

import (
	"context"
	"fmt"
	"sync"
)

const (
	// fallbackRatio estimates processing at half the media duration when no
	// history exists.
	fallbackRatio = 0.5
	// minEstimateSeconds is the floor for any estimate.
	minEstimateSeconds = 5
	// unknownDurationEstimate is returned when the media duration could not
	// be probed.
	unknownDurationEstimate = 30
)

// Profile is the aggregated throughput of one extension.
type Profile struct {
	Extension            string  `json:"extension"`
	Samples              int     `json:"samples"`
	AvgMediaDuration     float64 `json:"avg_media_duration"`
	AvgConversionSeconds float64 `json:"avg_conversion_seconds"`
	AvgTranscribeSeconds float64 `json:"avg_transcription_seconds"`
	ProcessingRatio      float64 `json:"processing_ratio"`
}

// Estimator derives ETAs from throughput history. All access to the shared
// aggregate is serialized through its mutex; staleness between append and
// recompute is acceptable because the estimate is advisory.
type Estimator struct {
	mu       sync.Mutex
	store    *Store
	profiles map[string]Profile
	global   Profile
}

// NewEstimator loads history from the store and builds the aggregate.
func NewEstimator(ctx context.Context, store *Store) (*Estimator, error) {
	e := &Estimator{store: store}
	if err := e.reload(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// Record appends one run to history and recomputes the aggregate. Failed
// runs are persisted for audit but never influence ratios.
func (e *Estimator) Record(ctx context.Context, record Record) error {
	if err := e.store.Append(ctx, record); err != nil {
		return err
	}
	if !record.Success {
		return nil
	}
	return e.reload(ctx)
}

// Estimate returns the expected processing seconds for one file. A zero
// mediaDuration means the probe failed and yields a fixed conservative value.
func (e *Estimator) Estimate(extension string, mediaDuration float64) float64 {
	if mediaDuration <= 0 {
		return unknownDurationEstimate
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ratio := fallbackRatio
	if profile, ok := e.profiles[normalizeExtension(extension)]; ok && profile.Samples > 0 {
		ratio = profile.ProcessingRatio
	} else if e.global.Samples > 0 {
		ratio = e.global.ProcessingRatio
	}

	estimate := mediaDuration * ratio
	if estimate < minEstimateSeconds {
		estimate = minEstimateSeconds
	}
	return estimate
}

// EstimateBatch sums per-file estimates.
func (e *Estimator) EstimateBatch(files []FileHint) float64 {
	total := 0.0
	for _, f := range files {
		total += e.Estimate(f.Extension, f.MediaDuration)
	}
	return total
}

// FileHint describes one file in a batch estimate request.
type FileHint struct {
	Extension     string  `json:"extension"`
	MediaDuration float64 `json:"media_duration"`
}

// Summary returns the per-extension profiles plus the global aggregate.
func (e *Estimator) Summary() (map[string]Profile, Profile) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]Profile, len(e.profiles))
	for ext, profile := range e.profiles {
		out[ext] = profile
	}
	return out, e.global
}

func (e *Estimator) reload(ctx context.Context) error {
	records, err := e.store.History(ctx)
	if err != nil {
		return fmt.Errorf("load throughput history: %w", err)
	}

	profiles := make(map[string]Profile)
	byExt := make(map[string][]Record)
	for _, record := range records {
		ext := normalizeExtension(record.Extension)
		byExt[ext] = append(byExt[ext], record)
	}
	for ext, group := range byExt {
		profiles[ext] = buildProfile(ext, group)
	}
	global := buildProfile("", records)
	global.ProcessingRatio = meanRecordRatio(records)

	e.mu.Lock()
	e.profiles = profiles
	e.global = global
	e.mu.Unlock()
	return nil
}

func buildProfile(ext string, records []Record) Profile {
	profile := Profile{Extension: ext, Samples: len(records)}
	if len(records) == 0 {
		return profile
	}

	var duration, conversion, transcription float64
	for _, record := range records {
		duration += record.MediaDuration
		conversion += record.ConversionSeconds
		transcription += record.TranscriptionSeconds
	}
	n := float64(len(records))
	profile.AvgMediaDuration = duration / n
	profile.AvgConversionSeconds = conversion / n
	profile.AvgTranscribeSeconds = transcription / n
	if profile.AvgMediaDuration > 0 {
		profile.ProcessingRatio = (profile.AvgConversionSeconds + profile.AvgTranscribeSeconds) / profile.AvgMediaDuration
	}
	return profile
}

// meanRecordRatio averages each record's own processing-to-duration ratio.
// In the cross-extension fallback every run counts once, whatever its length.
func meanRecordRatio(records []Record) float64 {
	var sum float64
	var counted int
	for _, record := range records {
		if record.MediaDuration <= 0 {
			continue
		}
		sum += (record.ConversionSeconds + record.TranscriptionSeconds) / record.MediaDuration
		counted++
	}
	if counted == 0 {
		return 0
	}
	return sum / float64(counted)
}
