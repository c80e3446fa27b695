package demucs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"peiyin/internal/logging"
	"peiyin/internal/media/toolrun"
	"peiyin/internal/services"
)

// ErrOutputNotFound reports that demucs exited cleanly but the accompaniment
// stem is missing. It also matches services.ErrExternalTool.
var ErrOutputNotFound = fmt.Errorf("%w: separation output not found", services.ErrExternalTool)

const accompanimentStem = "no_vocals"

var (
	knownModelDirs = []string{"htdemucs", "htdemucs_ft", "mdx_extra", "mdx_extra_q", "demucs"}
	stemExtensions = []string{".mp3", ".wav"}
)

// Separator produces the accompaniment-only track of an audio file.
type Separator interface {
	Separate(ctx context.Context, input, outDir string) (string, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(executor toolrun.Executor) Option {
	return func(c *Client) {
		if executor != nil {
			c.exec = executor
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client wraps demucs CLI interactions.
type Client struct {
	binary  string
	model   string
	timeout time.Duration
	exec    toolrun.Executor
	logger  *slog.Logger
}

// New constructs a demucs client. A zero timeout waits for demucs to exit.
func New(binary, model string, timeout time.Duration, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("demucs binary required")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = "htdemucs"
	}
	client := &Client{
		binary:  binary,
		model:   model,
		timeout: timeout,
		exec:    toolrun.CommandExecutor{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary reports the configured demucs executable.
func (c *Client) Binary() string { return c.binary }

// Model reports the requested separation model.
func (c *Client) Model() string { return c.model }

// Separate runs demucs on input, writing under outDir, and returns the path
// of the accompaniment stem.
func (c *Client) Separate(ctx context.Context, input, outDir string) (string, error) {
	if strings.TrimSpace(input) == "" || strings.TrimSpace(outDir) == "" {
		return "", errors.New("demucs separate: input and output directory required")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create separation dir: %w", err)
	}
	args := []string{"--two-stems=vocals", "-n", c.model, "--mp3", "-o", outDir, input}
	if _, err := toolrun.Invoke(ctx, c.exec, toolrun.Invocation{
		Stage:   "separate",
		Binary:  c.binary,
		Args:    args,
		Timeout: c.timeout,
	}); err != nil {
		return "", err
	}

	track := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	if path, ok := FindAccompaniment(outDir, c.model, track); ok {
		return path, nil
	}
	listing := listTree(outDir)
	logging.WarnWithContext(logging.WithContext(ctx, c.logger), "demucs output not found", "separation_output_missing",
		logging.String("output_dir", outDir),
		logging.String("model", c.model),
		logging.Any("listing", listing),
		logging.String(logging.FieldErrorHint, "check the demucs model name and version"),
		logging.String(logging.FieldImpact, "job fails"),
	)
	return "", fmt.Errorf("%w: %s (searched %s)", ErrOutputNotFound, track, outDir)
}

// FindAccompaniment locates <outDir>/<model>/<track>/no_vocals.{mp3,wav},
// trying the requested model, then known model directories, then any
// directory under outDir.
func FindAccompaniment(outDir, model, track string) (string, bool) {
	seen := make(map[string]struct{}, len(knownModelDirs)+1)
	for _, dir := range append([]string{model}, knownModelDirs...) {
		if _, ok := seen[dir]; ok || dir == "" {
			continue
		}
		seen[dir] = struct{}{}
		if path, ok := stemIn(filepath.Join(outDir, dir, track)); ok {
			return path, true
		}
	}
	matches, _ := filepath.Glob(filepath.Join(outDir, "*", track, accompanimentStem+".*"))
	sort.Strings(matches)
	for _, match := range matches {
		if info, err := os.Stat(match); err == nil && info.Mode().IsRegular() {
			return match, true
		}
	}
	return "", false
}

func stemIn(dir string) (string, bool) {
	for _, ext := range stemExtensions {
		candidate := filepath.Join(dir, accompanimentStem+ext)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, true
		}
	}
	return "", false
}

// listTree returns relative paths of everything under root, capped so a
// runaway directory cannot flood the log.
func listTree(root string) []string {
	const limit = 50
	var entries []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if len(entries) >= limit {
			return fs.SkipAll
		}
		if rel, relErr := filepath.Rel(root, path); relErr == nil && rel != "." {
			entries = append(entries, filepath.ToSlash(rel))
		}
		return nil
	})
	return entries
}
