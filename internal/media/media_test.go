package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConvertBuildsMonoWav(t *testing.T) {
	workDir := t.TempDir()
	var gotArgs []string

	converter := NewConverter("ffmpeg").WithCommandRunner(
		func(_ context.Context, name string, args ...string) ([]byte, error) {
			if name != "ffmpeg" {
				t.Fatalf("unexpected binary %q", name)
			}
			gotArgs = args
			// ffmpeg writes the target itself.
			target := args[len(args)-1]
			if err := os.WriteFile(target, []byte("RIFF"), 0o644); err != nil {
				t.Fatalf("write target: %v", err)
			}
			return nil, nil
		})

	target, err := converter.Convert(context.Background(), "/uploads/interview.mp4", workDir)
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if filepath.Base(target) != "temp_interview.wav" {
		t.Fatalf("unexpected target name %q", target)
	}

	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{"-ar 16000", "-ac 1", "-vn", "-y"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args missing %q: %q", want, joined)
		}
	}
}

func TestConvertFailureRemovesPartialOutput(t *testing.T) {
	workDir := t.TempDir()

	converter := NewConverter("ffmpeg").WithCommandRunner(
		func(_ context.Context, _ string, args ...string) ([]byte, error) {
			target := args[len(args)-1]
			if err := os.WriteFile(target, []byte("partial"), 0o644); err != nil {
				t.Fatalf("write target: %v", err)
			}
			return nil, errors.New("codec not found")
		})

	if _, err := converter.Convert(context.Background(), "/uploads/broken.avi", workDir); err == nil {
		t.Fatal("expected conversion error")
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("failed conversion left %d files behind", len(entries))
	}
}

func TestDurationParsesFFprobeJSON(t *testing.T) {
	prober := NewProber("ffprobe").WithCommandRunner(
		func(context.Context, string, ...string) ([]byte, error) {
			return []byte(`{"format":{"duration":"93.43"}}`), nil
		})

	if got := prober.Duration(context.Background(), "/uploads/a.mp3"); got != 93.43 {
		t.Fatalf("Duration = %v, want 93.43", got)
	}
}

func TestDurationIsZeroOnProbeFailure(t *testing.T) {
	prober := NewProber("ffprobe").WithCommandRunner(
		func(context.Context, string, ...string) ([]byte, error) {
			return nil, errors.New("invalid data")
		})

	if got := prober.Duration(context.Background(), "/uploads/a.mp3"); got != 0 {
		t.Fatalf("Duration = %v, want 0", got)
	}
}

func TestDurationIsZeroOnMalformedOutput(t *testing.T) {
	prober := NewProber("ffprobe").WithCommandRunner(
		func(context.Context, string, ...string) ([]byte, error) {
			return []byte("not json"), nil
		})

	if got := prober.Duration(context.Background(), "/uploads/a.mp3"); got != 0 {
		t.Fatalf("Duration = %v, want 0", got)
	}
}
