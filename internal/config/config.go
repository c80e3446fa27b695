package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

const (
	vocalRemovalSubdir    = "vocal_removal"
	dubbingSubdir         = "dubbing"
	backgroundAudioSubdir = "background_audio"
	muteVideoSubdir       = "mute_video"
)

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	WorkDir   string `toml:"work_dir"`
	PublicDir string `toml:"public_dir"`
	CacheDir  string `toml:"cache_dir"`
	UploadDir string `toml:"upload_dir"`
	APIBind   string `toml:"api_bind"`
}

// Workflow contains configuration for worker loop timing.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	StaleWorkDirHours  int `toml:"stale_work_dir_hours"`
}

// Tools contains settings for the external media binaries.
type Tools struct {
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	FFprobeBinary  string `toml:"ffprobe_binary"`
	DemucsBinary   string `toml:"demucs_binary"`
	DemucsModel    string `toml:"demucs_model"`
	TimeoutMinutes int    `toml:"timeout_minutes"` // 0 disables the per-invocation timeout
	AudioCodec     string `toml:"audio_codec"`
	AudioBitrate   string `toml:"audio_bitrate"`
	StackSize      int    `toml:"stack_size"`
}

// Download contains settings for fetching source videos.
type Download struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	RetryCount     int    `toml:"retry_count"`
	UserAgent      string `toml:"user_agent"`
}

// Recommendation contains settings for the recommended clip refresher.
type Recommendation struct {
	Enabled            bool `toml:"enabled"`
	IntervalSeconds    int  `toml:"interval_seconds"`
	Count              int  `toml:"count"`
	ErrorRetrySeconds  int  `toml:"error_retry_seconds"`
	HTTPTimeoutSeconds int  `toml:"http_timeout_seconds"`
}

// Notifications configures ntfy push alerts. An empty topic disables them.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	NotifyCompletions     bool   `toml:"notify_completions"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for peiyin.
//
// Configuration sections by subsystem:
//   - Paths: database, working, cache and public output directories plus the API bind address
//   - Workflow: worker loop polling intervals
//   - Tools: ffmpeg and demucs invocation settings
//   - Download: source video fetch behaviour
//   - Recommendation: periodic recommended clip sampling
//   - Notifications: ntfy alerts for failed and finished jobs
//   - Logging: log format, level, and retention
type Config struct {
	Paths          Paths          `toml:"paths"`
	Workflow       Workflow       `toml:"workflow"`
	Tools          Tools          `toml:"tools"`
	Download       Download       `toml:"download"`
	Recommendation Recommendation `toml:"recommendation"`
	Notifications  Notifications  `toml:"notifications"`
	Logging        Logging        `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	if err := loadDotEnv(); err != nil {
		return nil, "", false, err
	}

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

// loadDotEnv reads ./.env into the process environment without replacing
// variables that are already set.
func loadDotEnv() error {
	info, err := os.Stat(".env")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat .env: %w", err)
	}
	if info.IsDir() {
		return nil
	}
	if err := godotenv.Load(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
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

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("peiyin.toml")
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

// EnsureDirectories creates every directory the daemon writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range c.Directories() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Directories lists every directory the daemon needs, in creation order.
func (c *Config) Directories() []string {
	return []string{
		c.Paths.DataDir,
		c.Paths.LogDir,
		c.Paths.WorkDir,
		c.Paths.UploadDir,
		c.VocalRemovalDir(),
		c.DubbingDir(),
		c.BackgroundAudioCacheDir(),
		c.MuteVideoCacheDir(),
	}
}

// QueueDBPath returns the SQLite job database location.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.DataDir, "queue.db")
}

// VocalRemovalDir is the public directory holding vocal-removal outputs.
func (c *Config) VocalRemovalDir() string {
	return filepath.Join(c.Paths.PublicDir, vocalRemovalSubdir)
}

// DubbingDir is the public directory holding composite dubbing outputs.
func (c *Config) DubbingDir() string {
	return filepath.Join(c.Paths.PublicDir, dubbingSubdir)
}

// BackgroundAudioCacheDir is the private directory for cached accompaniment tracks.
func (c *Config) BackgroundAudioCacheDir() string {
	return filepath.Join(c.Paths.CacheDir, backgroundAudioSubdir)
}

// MuteVideoCacheDir is the private directory for cached muted source videos.
func (c *Config) MuteVideoCacheDir() string {
	return filepath.Join(c.Paths.CacheDir, muteVideoSubdir)
}

// ToolTimeout returns the bound applied to each external tool invocation.
// Zero means no bound.
func (c *Config) ToolTimeout() time.Duration {
	if c.Tools.TimeoutMinutes <= 0 {
		return 0
	}
	return time.Duration(c.Tools.TimeoutMinutes) * time.Minute
}

// PublicRelative converts an absolute path under the public directory into
// the slash-separated form stored on job records.
func (c *Config) PublicRelative(path string) (string, error) {
	rel, err := filepath.Rel(c.Paths.PublicDir, path)
	if err != nil {
		return "", fmt.Errorf("relative output path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("output %q is outside public dir %q", path, c.Paths.PublicDir)
	}
	return filepath.ToSlash(rel), nil
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

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "peiyin")
	}
	return "~/.cache/peiyin"
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
