package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Converter normalizes any supported media file into 16 kHz mono WAV, the
// input the recognizer expects.
type Converter struct {
	ffmpeg string
	runner CommandRunner
}

// NewConverter creates a converter using the given ffmpeg binary.
func NewConverter(ffmpeg string) *Converter {
	return &Converter{ffmpeg: ffmpeg, runner: runCommand}
}

// WithCommandRunner sets a custom command runner (for testing).
func (c *Converter) WithCommandRunner(runner CommandRunner) *Converter {
	c.runner = runner
	return c
}

// Convert writes a mono 16 kHz WAV rendition of sourcePath into workDir and
// returns its path. A partial output file is removed on failure so a failed
// conversion leaves nothing behind.
func (c *Converter) Convert(ctx context.Context, sourcePath, workDir string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	target := filepath.Join(workDir, "temp_"+base+".wav")

	args := []string{
		"-i", sourcePath,
		"-ar", "16000",
		"-ac", "1",
		"-vn",
		"-y",
		target,
	}
	if _, err := c.runner(ctx, c.ffmpeg, args...); err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("convert %q: %w", filepath.Base(sourcePath), err)
	}

	info, err := os.Stat(target)
	if err != nil {
		return "", fmt.Errorf("convert %q: output missing: %w", filepath.Base(sourcePath), err)
	}
	if info.Size() == 0 {
		_ = os.Remove(target)
		return "", fmt.Errorf("convert %q: output is empty", filepath.Base(sourcePath))
	}
	return target, nil
}
