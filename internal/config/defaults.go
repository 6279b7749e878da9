package config

const (
	defaultStagingDir = "~/.local/share/reel/staging"
	defaultLibraryDir = "~/library"
	defaultLogDir     = "~/.local/share/reel/logs"

	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 60

	defaultMaxAttempts       = 8
	defaultAttemptTimeout    = 900
	defaultBackoffCapSeconds = 30

	defaultSampleRate            = 16000
	defaultChannels              = 1
	defaultConvertTimeoutSeconds = 60

	defaultLLMBaseURL        = "http://localhost:11434/v1"
	defaultLLMTimeoutSeconds = 120

	defaultMaxIterations          = 20
	defaultScreenshotDelaySeconds = 2
	defaultActionDelaySeconds     = 1
	defaultBrowserTimeoutSeconds  = 60
	defaultDisplaySize            = "1920x1080"
	defaultDisplayWidth           = 1920
	defaultDisplayHeight          = 1080

	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultHeartbeatInterval  = 10
	defaultHeartbeatTimeout   = 300

	defaultNotifyRequestTimeout = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
		},
		Acquisition: Acquisition{
			MaxAttempts:       defaultMaxAttempts,
			AttemptTimeout:    defaultAttemptTimeout,
			BackoffCapSeconds: defaultBackoffCapSeconds,
			OEmbedProbe:       true,
			SecondaryFallback: true,
		},
		Convert: Convert{
			SampleRate:     defaultSampleRate,
			Channels:       defaultChannels,
			TimeoutSeconds: defaultConvertTimeoutSeconds,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Agent: Agent{
			Enabled:                false,
			MaxIterations:          defaultMaxIterations,
			ScreenshotDelaySeconds: defaultScreenshotDelaySeconds,
			ActionDelaySeconds:     defaultActionDelaySeconds,
			BrowserTimeoutSeconds:  defaultBrowserTimeoutSeconds,
			DisplaySize:            defaultDisplaySize,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Completed:      true,
			Failed:         true,
			AgentEngaged:   true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
