package asr

import (
	"context"
	"errors"
	"strings"
	"testing"

	"scribe/internal/config"
)

func testRecognizer() config.Recognizer {
	return config.Recognizer{
		Binary:    "gigaam-transcribe",
		Model:     "v3",
		AuthToken: "hf_testtoken",
	}
}

func TestTranscribeParsesAndOrdersSegments(t *testing.T) {
	engine := NewEngine(testRecognizer()).WithCommandRunner(
		func(_ context.Context, name string, args ...string) ([]byte, error) {
			if name != "gigaam-transcribe" {
				t.Fatalf("unexpected binary %q", name)
			}
			return []byte(`{"segments":[
				{"text":"second","start":4.0,"end":6.0},
				{"text":"first","start":0.5,"end":3.5}
			]}`), nil
		})

	segments, err := engine.Transcribe(context.Background(), "/tmp/audio.wav")
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("got %d segments, want 2", len(segments))
	}
	if segments[0].Text != "first" || segments[1].Text != "second" {
		t.Fatalf("segments not ordered by start: %+v", segments)
	}
}

func TestTranscribeRequiresToken(t *testing.T) {
	cfg := testRecognizer()
	cfg.AuthToken = ""
	engine := NewEngine(cfg)

	_, err := engine.Transcribe(context.Background(), "/tmp/audio.wav")
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestTranscribeRejectsMalformedToken(t *testing.T) {
	cfg := testRecognizer()
	cfg.AuthToken = "not-a-hf-token"
	engine := NewEngine(cfg)

	if err := engine.CheckCredentials(); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestTranscribeEmptySegmentsIsNotAnError(t *testing.T) {
	engine := NewEngine(testRecognizer()).WithCommandRunner(
		func(context.Context, string, ...string) ([]byte, error) {
			return []byte(`{"segments":[]}`), nil
		})

	segments, err := engine.Transcribe(context.Background(), "/tmp/silent.wav")
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if len(segments) != 0 {
		t.Fatalf("expected empty segment list, got %d", len(segments))
	}
}

func TestTranscribeRejectsInvertedBoundaries(t *testing.T) {
	engine := NewEngine(testRecognizer()).WithCommandRunner(
		func(context.Context, string, ...string) ([]byte, error) {
			return []byte(`{"segments":[{"text":"x","start":5.0,"end":1.0}]}`), nil
		})

	if _, err := engine.Transcribe(context.Background(), "/tmp/audio.wav"); err == nil {
		t.Fatal("expected error for inverted boundaries")
	}
}

func TestBuildArgsIncludesModelAndLanguage(t *testing.T) {
	cfg := testRecognizer()
	cfg.Language = "ru"
	engine := NewEngine(cfg)

	args := engine.buildArgs("/tmp/audio.wav")
	joined := strings.Join(args, " ")
	for _, want := range []string{"/tmp/audio.wav", "--model v3", "--language ru", "--hf-token hf_testtoken"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args missing %q: %q", want, joined)
		}
	}
}
