package config

const (
	defaultConfigPath  = "~/.config/peiyin/config.toml"
	defaultDataDir     = "~/.local/share/peiyin"
	defaultLogDir      = "~/.local/share/peiyin/logs"
	defaultWorkDir     = "~/.local/share/peiyin/work"
	defaultPublicDir   = "~/.local/share/peiyin/public"
	defaultUploadDir   = "~/.local/share/peiyin/uploads"
	defaultAPIBind     = "127.0.0.1:7488"
	defaultFFmpeg      = "ffmpeg"
	defaultFFprobe     = "ffprobe"
	defaultDemucs      = "demucs"
	defaultDemucsModel = "htdemucs"
	defaultAudioCodec  = "aac"
	defaultBitrate     = "192k"
	defaultStackSize   = 720
	defaultUserAgent   = "peiyin/dev"
	defaultLogFormat   = "console"
	defaultLogLevel    = "info"

	defaultToolTimeoutMinutes     = 60
	defaultDownloadTimeoutSeconds = 600
	defaultDownloadRetryCount     = 3
	defaultRecommendationInterval = 3600
	defaultRecommendationCount    = 20
	defaultRecommendationRetry    = 60
	defaultRecommendationHTTP     = 30
	defaultStaleWorkDirHours      = 24
	defaultLogRetentionDays       = 30
	defaultNtfyTimeoutSeconds     = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			WorkDir:   defaultWorkDir,
			PublicDir: defaultPublicDir,
			CacheDir:  defaultCacheDir(),
			UploadDir: defaultUploadDir,
			APIBind:   defaultAPIBind,
		},
		Workflow: Workflow{
			QueuePollInterval:  5,
			ErrorRetryInterval: 30,
			StaleWorkDirHours:  defaultStaleWorkDirHours,
		},
		Tools: Tools{
			FFmpegBinary:   defaultFFmpeg,
			FFprobeBinary:  defaultFFprobe,
			DemucsBinary:   defaultDemucs,
			DemucsModel:    defaultDemucsModel,
			TimeoutMinutes: defaultToolTimeoutMinutes,
			AudioCodec:     defaultAudioCodec,
			AudioBitrate:   defaultBitrate,
			StackSize:      defaultStackSize,
		},
		Download: Download{
			TimeoutSeconds: defaultDownloadTimeoutSeconds,
			RetryCount:     defaultDownloadRetryCount,
			UserAgent:      defaultUserAgent,
		},
		Recommendation: Recommendation{
			Enabled:            true,
			IntervalSeconds:    defaultRecommendationInterval,
			Count:              defaultRecommendationCount,
			ErrorRetrySeconds:  defaultRecommendationRetry,
			HTTPTimeoutSeconds: defaultRecommendationHTTP,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
