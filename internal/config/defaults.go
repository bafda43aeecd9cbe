package config

const (
	defaultStateDir            = "~/.local/share/casebook"
	defaultLogDir              = "~/.local/share/casebook/logs"
	defaultLogRetentionDays    = 30
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultStabilityWindowMS   = 500
	defaultPollIntervalMS      = 100
	defaultWatchQueueSize      = 256
	defaultImportParallelism   = 4
	defaultNotifyTimeout       = 10
	defaultNotifyEventBuffer   = 1024
	maxStabilityWindowMS       = 60_000
	maxImportParallelism       = 64
	envNtfyTopic               = "CASEBOOK_NTFY_TOPIC"
	envDefaultProject          = "CASEBOOK_PROJECT"
	minNotificationEventBuffer = 16
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Watch: Watch{
			StabilityWindowMS: defaultStabilityWindowMS,
			PollIntervalMS:    defaultPollIntervalMS,
			QueueSize:         defaultWatchQueueSize,
			InitialScan:       true,
		},
		Import: Import{
			VerifyCopies:      true,
			Parallelism:       defaultImportParallelism,
			OverwriteExisting: true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			EventBuffer:    defaultNotifyEventBuffer,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
