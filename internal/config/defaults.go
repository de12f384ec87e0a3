package config

const (
	defaultUploadDir          = "~/.local/share/scribe/uploads"
	defaultResultsDir         = "~/.local/share/scribe/results"
	defaultWorkDir            = "~/.local/share/scribe/work"
	defaultLogDir             = "~/.local/share/scribe/logs"
	defaultAPIBind            = "127.0.0.1:7433"
	defaultRecognizerBinary   = "gigaam-transcribe"
	defaultRecognizerModel    = "v3"
	defaultDiarizationBinary  = "pyannote-diarize"
	defaultMaxConcurrentJobs  = 3
	defaultRetentionHours     = 24
	defaultMaxJobs            = 1000
	defaultInputRetryAttempts = 3
	defaultInputRetryDelayMS  = 500
	defaultMaxUploadBytes     = 2 << 30
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

func defaultOutputFormats() []string {
	return []string{"text", "timestamped", "srt", "vtt"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir:  defaultUploadDir,
			ResultsDir: defaultResultsDir,
			WorkDir:    defaultWorkDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Recognizer: Recognizer{
			Binary: defaultRecognizerBinary,
			Model:  defaultRecognizerModel,
		},
		Diarization: Diarization{
			Binary: defaultDiarizationBinary,
		},
		Workflow: Workflow{
			MaxConcurrentJobs:  defaultMaxConcurrentJobs,
			RetentionHours:     defaultRetentionHours,
			MaxJobs:            defaultMaxJobs,
			InputRetryAttempts: defaultInputRetryAttempts,
			InputRetryDelayMS:  defaultInputRetryDelayMS,
		},
		Output: Output{
			Formats: defaultOutputFormats(),
		},
		Limits: Limits{
			MaxUploadBytes: defaultMaxUploadBytes,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
