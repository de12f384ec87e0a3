package config

import (
	"errors"
	"fmt"
)

var knownFormats = map[string]struct{}{
	"text":        {},
	"timestamped": {},
	"markdown":    {},
	"srt":         {},
	"vtt":         {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateDiarization(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateLimits(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.UploadDir == "" {
		return errors.New("paths.upload_dir must be set")
	}
	if c.Paths.ResultsDir == "" {
		return errors.New("paths.results_dir must be set")
	}
	if c.Paths.WorkDir == "" {
		return errors.New("paths.work_dir must be set")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.max_concurrent_jobs":  c.Workflow.MaxConcurrentJobs,
		"workflow.retention_hours":      c.Workflow.RetentionHours,
		"workflow.max_jobs":             c.Workflow.MaxJobs,
		"workflow.input_retry_attempts": c.Workflow.InputRetryAttempts,
	}); err != nil {
		return err
	}
	if c.Workflow.InputRetryDelayMS < 0 {
		return errors.New("workflow.input_retry_delay_ms must not be negative")
	}
	return nil
}

func (c *Config) validateDiarization() error {
	if c.Diarization.MinSpeakers < 0 || c.Diarization.MaxSpeakers < 0 {
		return errors.New("diarization speaker bounds must not be negative")
	}
	if c.Diarization.MinSpeakers > 0 && c.Diarization.MaxSpeakers > 0 &&
		c.Diarization.MinSpeakers > c.Diarization.MaxSpeakers {
		return errors.New("diarization.min_speakers must not exceed diarization.max_speakers")
	}
	return nil
}

func (c *Config) validateOutput() error {
	if len(c.Output.Formats) == 0 {
		return errors.New("output.formats must list at least one format")
	}
	for _, format := range c.Output.Formats {
		if _, ok := knownFormats[format]; !ok {
			return fmt.Errorf("output.formats: unknown format %q", format)
		}
	}
	return nil
}

func (c *Config) validateLimits() error {
	if c.Limits.MaxUploadBytes <= 0 {
		return errors.New("limits.max_upload_bytes must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
