package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"scribe/internal/stats"
)

// MustOpenStats opens a stats store in a temp directory and registers cleanup.
func MustOpenStats(t testing.TB) *stats.Store {
	t.Helper()

	store, err := stats.OpenPath(filepath.Join(t.TempDir(), "stats.db"))
	if err != nil {
		t.Fatalf("stats.OpenPath: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustNewEstimator builds an estimator over a fresh stats store.
func MustNewEstimator(t testing.TB) *stats.Estimator {
	t.Helper()

	estimator, err := stats.NewEstimator(context.Background(), MustOpenStats(t))
	if err != nil {
		t.Fatalf("stats.NewEstimator: %v", err)
	}
	return estimator
}
