package stats

import (
	"context"
	"math"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "stats.db"))
	if err != nil {
		t.Fatalf("open stats store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestEstimator(t *testing.T, store *Store) *Estimator {
	t.Helper()
	estimator, err := NewEstimator(context.Background(), store)
	if err != nil {
		t.Fatalf("new estimator: %v", err)
	}
	return estimator
}

func TestPerExtensionRatio(t *testing.T) {
	store := openTestStore(t)
	estimator := newTestEstimator(t, store)

	// 100s media took 40s total processing: ratio 0.4.
	err := estimator.Record(context.Background(), Record{
		Extension:            ".mp3",
		MediaDuration:        100,
		ConversionSeconds:    10,
		TranscriptionSeconds: 30,
		Success:              true,
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	got := estimator.Estimate(".mp3", 200)
	if math.Abs(got-80) > 0.001 {
		t.Fatalf("Estimate = %v, want 80", got)
	}
}

func TestGlobalRatioForUnseenExtension(t *testing.T) {
	store := openTestStore(t)
	estimator := newTestEstimator(t, store)

	err := estimator.Record(context.Background(), Record{
		Extension:            ".mp3",
		MediaDuration:        100,
		ConversionSeconds:    5,
		TranscriptionSeconds: 15,
		Success:              true,
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	// .wav has no history; the global ratio (0.2) applies.
	got := estimator.Estimate(".wav", 100)
	if math.Abs(got-20) > 0.001 {
		t.Fatalf("Estimate = %v, want 20", got)
	}
}

func TestGlobalRatioWeighsRunsEqually(t *testing.T) {
	store := openTestStore(t)
	estimator := newTestEstimator(t, store)

	// Per-record ratios are 1.0 and 0.1.
	records := []Record{
		{Extension: ".mp3", MediaDuration: 10, ConversionSeconds: 4, TranscriptionSeconds: 6, Success: true},
		{Extension: ".mp4", MediaDuration: 1000, ConversionSeconds: 40, TranscriptionSeconds: 60, Success: true},
	}
	for _, record := range records {
		if err := estimator.Record(context.Background(), record); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	// The unseen-extension fallback averages the two ratios to 0.55. A
	// duration-weighted aggregate (110/1010) would let the long run drown
	// out the short one.
	got := estimator.Estimate(".wav", 100)
	if math.Abs(got-55) > 0.001 {
		t.Fatalf("Estimate = %v, want 55", got)
	}
}

func TestFallbackWithoutHistory(t *testing.T) {
	store := openTestStore(t)
	estimator := newTestEstimator(t, store)

	if got := estimator.Estimate(".wav", 60); got != 30 {
		t.Fatalf("Estimate = %v, want 30 (half duration)", got)
	}
	if got := estimator.Estimate(".wav", 4); got != minEstimateSeconds {
		t.Fatalf("Estimate = %v, want floor %d", got, minEstimateSeconds)
	}
}

func TestUnknownDurationEstimate(t *testing.T) {
	store := openTestStore(t)
	estimator := newTestEstimator(t, store)

	if got := estimator.Estimate(".mp3", 0); got != unknownDurationEstimate {
		t.Fatalf("Estimate = %v, want %d", got, unknownDurationEstimate)
	}
}

func TestFailedRecordsNeverInfluenceRatios(t *testing.T) {
	store := openTestStore(t)
	estimator := newTestEstimator(t, store)

	err := estimator.Record(context.Background(), Record{
		Extension:            ".mp3",
		MediaDuration:        100,
		ConversionSeconds:    90,
		TranscriptionSeconds: 90,
		Success:              false,
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	// Still on the no-history fallback.
	if got := estimator.Estimate(".mp3", 60); got != 30 {
		t.Fatalf("Estimate = %v, want 30", got)
	}
}

func TestEstimateBatchSums(t *testing.T) {
	store := openTestStore(t)
	estimator := newTestEstimator(t, store)

	got := estimator.EstimateBatch([]FileHint{
		{Extension: ".mp3", MediaDuration: 60},
		{Extension: ".wav", MediaDuration: 0},
	})
	if got != 30+unknownDurationEstimate {
		t.Fatalf("EstimateBatch = %v, want %v", got, 30+unknownDurationEstimate)
	}
}

func TestHistorySurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "stats.db")

	store, err := OpenPath(dbPath)
	if err != nil {
		t.Fatalf("open stats store: %v", err)
	}
	estimator := newTestEstimator(t, store)
	if err := estimator.Record(context.Background(), Record{
		Extension:            ".mp3",
		MediaDuration:        100,
		ConversionSeconds:    10,
		TranscriptionSeconds: 30,
		Success:              true,
	}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	reopened, err := OpenPath(dbPath)
	if err != nil {
		t.Fatalf("reopen stats store: %v", err)
	}
	defer reopened.Close()
	fresh := newTestEstimator(t, reopened)

	if got := fresh.Estimate(".mp3", 200); math.Abs(got-80) > 0.001 {
		t.Fatalf("Estimate after reopen = %v, want 80", got)
	}
}
