package daemonrun

import (
	"fmt"
	"log/slog"
	"time"

	"peiyin/internal/api"
	"peiyin/internal/config"
	"peiyin/internal/download"
	"peiyin/internal/dubbing"
	"peiyin/internal/media/ffmpeg"
	"peiyin/internal/media/ffprobe"
	"peiyin/internal/media/toolrun"
	"peiyin/internal/mediacache"
	"peiyin/internal/notifications"
	"peiyin/internal/queue"
	"peiyin/internal/recommend"
	"peiyin/internal/services/demucs"
	"peiyin/internal/sourceprep"
	"peiyin/internal/vocalremoval"
	"peiyin/internal/workflow"
)

// Components holds everything the daemon runs, wired against one store.
type Components struct {
	Workflow     *workflow.Manager
	Handler      *api.Handler
	VocalRemoval *vocalremoval.Executor
	Dubbing      *dubbing.Executor
	Refresher    *recommend.Refresher
	Janitor      *workflow.Janitor
}

// WireOption adjusts how Wire builds components.
type WireOption func(*wireOptions)

type wireOptions struct {
	executor toolrun.Executor
	notifier notifications.Service
}

// WithToolExecutor runs every external tool through executor.
func WithToolExecutor(executor toolrun.Executor) WireOption {
	return func(o *wireOptions) { o.executor = executor }
}

// WithNotifier replaces the ntfy service built from the config.
func WithNotifier(notifier notifications.Service) WireOption {
	return func(o *wireOptions) { o.notifier = notifier }
}

// Wire builds the worker lanes and the API handler. The refresher lane is
// only registered when recommendations are enabled.
func Wire(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...WireOption) (*Components, error) {
	options := wireOptions{executor: toolrun.CommandExecutor{}}
	for _, opt := range opts {
		opt(&options)
	}
	notifier := options.notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	timeout := cfg.ToolTimeout()
	ff := ffmpeg.New(cfg.Tools.FFmpegBinary,
		ffmpeg.WithExecutor(options.executor),
		ffmpeg.WithTimeout(timeout),
		ffmpeg.WithAudioEncoding(cfg.Tools.AudioCodec, cfg.Tools.AudioBitrate),
	)
	separator, err := demucs.New(cfg.Tools.DemucsBinary, cfg.Tools.DemucsModel, timeout,
		demucs.WithExecutor(options.executor),
		demucs.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("configure demucs: %w", err)
	}
	probe := ffprobe.Prober{Binary: cfg.Tools.FFprobeBinary, Timeout: timeout, Executor: options.executor}

	fetcher := download.New(download.Options{
		Timeout:   time.Duration(cfg.Download.TimeoutSeconds) * time.Second,
		Retries:   cfg.Download.RetryCount,
		UserAgent: cfg.Download.UserAgent,
		Logger:    logger,
	})
	cache := mediacache.NewManager(cfg, store, logger)
	prep := sourceprep.New(cache, fetcher, ff, separator, logger)

	c := &Components{
		Workflow:     workflow.NewManager(cfg, store, logger),
		VocalRemoval: vocalremoval.New(cfg, store, prep, ff, logger, notifier),
		Dubbing:      dubbing.New(cfg, store, prep, ff, probe, logger, notifier),
		Janitor:      workflow.NewJanitor(cfg, logger),
	}
	c.Workflow.Register(c.VocalRemoval, c.Dubbing, c.Janitor)

	var refresher api.Refresher
	if cfg.Recommendation.Enabled {
		catalog := download.New(download.Options{
			Timeout:   time.Duration(cfg.Recommendation.HTTPTimeoutSeconds) * time.Second,
			Retries:   cfg.Download.RetryCount,
			UserAgent: cfg.Download.UserAgent,
			Logger:    logger,
		})
		c.Refresher = recommend.New(cfg, store, catalog, logger)
		c.Workflow.Register(c.Refresher)
		refresher = c.Refresher
	}

	service := api.NewService(cfg, store, refresher, logger)
	c.Handler = api.NewHandler(cfg, service, c.Workflow, logger)
	return c, nil
}
