package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	UploadDir  string `toml:"upload_dir"`
	ResultsDir string `toml:"results_dir"`
	WorkDir    string `toml:"work_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// Recognizer contains configuration for the external speech recognition engine.
type Recognizer struct {
	Binary    string `toml:"binary"`
	Model     string `toml:"model"`
	Language  string `toml:"language"`
	AuthToken string `toml:"auth_token"`
}

// Diarization contains configuration for the external speaker diarization engine.
type Diarization struct {
	Enabled     bool   `toml:"enabled"`
	Binary      string `toml:"binary"`
	AuthToken   string `toml:"auth_token"`
	MinSpeakers int    `toml:"min_speakers"`
	MaxSpeakers int    `toml:"max_speakers"`
}

// Workflow contains concurrency, retention, and retry settings.
type Workflow struct {
	MaxConcurrentJobs  int `toml:"max_concurrent_jobs"`
	RetentionHours     int `toml:"retention_hours"`
	MaxJobs            int `toml:"max_jobs"`
	InputRetryAttempts int `toml:"input_retry_attempts"`
	InputRetryDelayMS  int `toml:"input_retry_delay_ms"`
}

// Output contains configuration for rendered transcript formats.
type Output struct {
	Formats []string `toml:"formats"`
}

// Limits contains request size restrictions.
type Limits struct {
	MaxUploadBytes int64 `toml:"max_upload_bytes"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Scribe.
//
// Configuration sections by subsystem:
//   - Paths: directories and API bind address
//   - Recognizer: external ASR engine invocation
//   - Diarization: external speaker diarization engine
//   - Workflow: admission limits, retention, input retry
//   - Output: rendered transcript formats
//   - Limits: upload size restrictions
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Recognizer  Recognizer  `toml:"recognizer"`
	Diarization Diarization `toml:"diarization"`
	Workflow    Workflow    `toml:"workflow"`
	Output      Output      `toml:"output"`
	Limits      Limits      `toml:"limits"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/scribe/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("scribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.UploadDir, c.Paths.ResultsDir, c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for audio conversion.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for duration probes.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRecognizer()
	c.normalizeDiarization()
	c.normalizeOutput()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.UploadDir, err = expandPath(c.Paths.UploadDir); err != nil {
		return fmt.Errorf("paths.upload_dir: %w", err)
	}
	if c.Paths.ResultsDir, err = expandPath(c.Paths.ResultsDir); err != nil {
		return fmt.Errorf("paths.results_dir: %w", err)
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeRecognizer() {
	c.Recognizer.Binary = strings.TrimSpace(c.Recognizer.Binary)
	if c.Recognizer.Binary == "" {
		c.Recognizer.Binary = defaultRecognizerBinary
	}
	c.Recognizer.Model = strings.TrimSpace(c.Recognizer.Model)
	if c.Recognizer.Model == "" {
		c.Recognizer.Model = defaultRecognizerModel
	}
	if c.Recognizer.AuthToken == "" {
		if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			c.Recognizer.AuthToken = value
		}
	}
	c.Recognizer.AuthToken = strings.TrimSpace(c.Recognizer.AuthToken)
}

func (c *Config) normalizeDiarization() {
	c.Diarization.Binary = strings.TrimSpace(c.Diarization.Binary)
	if c.Diarization.Binary == "" {
		c.Diarization.Binary = defaultDiarizationBinary
	}
	if c.Diarization.AuthToken == "" {
		c.Diarization.AuthToken = c.Recognizer.AuthToken
	}
	c.Diarization.AuthToken = strings.TrimSpace(c.Diarization.AuthToken)
}

func (c *Config) normalizeOutput() {
	if len(c.Output.Formats) == 0 {
		c.Output.Formats = defaultOutputFormats()
		return
	}
	normalized := make([]string, 0, len(c.Output.Formats))
	seen := make(map[string]struct{}, len(c.Output.Formats))
	for _, format := range c.Output.Formats {
		trimmed := strings.ToLower(strings.TrimSpace(format))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	c.Output.Formats = normalized
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
