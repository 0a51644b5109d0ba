package config

const (
	defaultDataDir    = "~/.local/share/tome"
	defaultStagingDir = "~/.local/share/tome/staging"
	defaultLogDir     = "~/.local/share/tome/logs"
	defaultAPIBind    = "127.0.0.1:7787"

	defaultWorkers               = 2
	defaultQueuePollInterval     = 5
	defaultErrorRetryInterval    = 30
	defaultHeartbeatInterval     = 15
	defaultHeartbeatTimeout      = 120
	defaultLockHeartbeatInterval = 15
	defaultLockTimeout           = 120
	defaultMaxAttempts           = 3
	defaultRetryBackoff          = 10
	defaultStageTimeout          = 300
	defaultDocumentTimeout       = 3600

	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingChunkChars = 2000
	defaultEmbeddingMaxChunks  = 64

	defaultAlertRequestTimeout   = 10
	defaultAlertDispatchInterval = 15
	defaultAlertMaxAttempts      = 5

	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 14
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Workflow: Workflow{
			Workers:               defaultWorkers,
			QueuePollInterval:     defaultQueuePollInterval,
			ErrorRetryInterval:    defaultErrorRetryInterval,
			HeartbeatInterval:     defaultHeartbeatInterval,
			HeartbeatTimeout:      defaultHeartbeatTimeout,
			LockHeartbeatInterval: defaultLockHeartbeatInterval,
			LockTimeout:           defaultLockTimeout,
			MaxAttempts:           defaultMaxAttempts,
			RetryBackoff:          defaultRetryBackoff,
			StageTimeout:          defaultStageTimeout,
			DocumentTimeout:       defaultDocumentTimeout,
		},
		Embedding: Embedding{
			Model:      defaultEmbeddingModel,
			ChunkChars: defaultEmbeddingChunkChars,
			MaxChunks:  defaultEmbeddingMaxChunks,
		},
		Alerts: Alerts{
			RequestTimeout:   defaultAlertRequestTimeout,
			DispatchInterval: defaultAlertDispatchInterval,
			MaxAttempts:      defaultAlertMaxAttempts,
			Completions:      true,
			Failures:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
