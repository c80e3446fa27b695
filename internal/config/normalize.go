package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.applyEnvOverrides()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeDownload()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

// applyEnvOverrides lets PEIYIN_* variables win over file values.
func (c *Config) applyEnvOverrides() {
	if value, ok := lookupTrimmed("PEIYIN_API_BIND"); ok {
		c.Paths.APIBind = value
	}
	if value, ok := lookupTrimmed("PEIYIN_DATA_DIR"); ok {
		c.Paths.DataDir = value
	}
	if value, ok := lookupTrimmed("PEIYIN_LOG_LEVEL"); ok {
		c.Logging.Level = value
	}
	if value, ok := lookupTrimmed("PEIYIN_DEMUCS_MODEL"); ok {
		c.Tools.DemucsModel = value
	}
	if value, ok := lookupTrimmed("PEIYIN_NTFY_TOPIC"); ok {
		c.Notifications.NtfyTopic = value
	}
}

func lookupTrimmed(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name     string
		value    *string
		fallback string
	}{
		{"paths.data_dir", &c.Paths.DataDir, defaultDataDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
		{"paths.work_dir", &c.Paths.WorkDir, defaultWorkDir},
		{"paths.public_dir", &c.Paths.PublicDir, defaultPublicDir},
		{"paths.cache_dir", &c.Paths.CacheDir, defaultCacheDir()},
		{"paths.upload_dir", &c.Paths.UploadDir, defaultUploadDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpegBinary = strings.TrimSpace(c.Tools.FFmpegBinary)
	if c.Tools.FFmpegBinary == "" {
		c.Tools.FFmpegBinary = defaultFFmpeg
	}
	c.Tools.FFprobeBinary = strings.TrimSpace(c.Tools.FFprobeBinary)
	if c.Tools.FFprobeBinary == "" {
		c.Tools.FFprobeBinary = defaultFFprobe
	}
	c.Tools.DemucsBinary = strings.TrimSpace(c.Tools.DemucsBinary)
	if c.Tools.DemucsBinary == "" {
		c.Tools.DemucsBinary = defaultDemucs
	}
	c.Tools.DemucsModel = strings.TrimSpace(c.Tools.DemucsModel)
	if c.Tools.DemucsModel == "" {
		c.Tools.DemucsModel = defaultDemucsModel
	}
	c.Tools.AudioCodec = strings.ToLower(strings.TrimSpace(c.Tools.AudioCodec))
	if c.Tools.AudioCodec == "" {
		c.Tools.AudioCodec = defaultAudioCodec
	}
	c.Tools.AudioBitrate = strings.TrimSpace(c.Tools.AudioBitrate)
	if c.Tools.AudioBitrate == "" {
		c.Tools.AudioBitrate = defaultBitrate
	}
}

func (c *Config) normalizeDownload() {
	c.Download.UserAgent = strings.TrimSpace(c.Download.UserAgent)
	if c.Download.UserAgent == "" {
		c.Download.UserAgent = defaultUserAgent
	}
	if c.Download.RetryCount < 0 {
		c.Download.RetryCount = 0
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
