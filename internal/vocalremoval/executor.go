package vocalremoval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"peiyin/internal/config"
	"peiyin/internal/deps"
	"peiyin/internal/fileutil"
	"peiyin/internal/logging"
	"peiyin/internal/mediacache"
	"peiyin/internal/metrics"
	"peiyin/internal/notifications"
	"peiyin/internal/queue"
	"peiyin/internal/services"
	"peiyin/internal/sourceprep"
	"peiyin/internal/stage"
	"peiyin/internal/staging"
)

const (
	laneName = "vocal_removal"
	kind     = string(queue.KindVocalRemoval)
	// outputExt is fixed because the picture track comes from the cached
	// muted mp4.
	outputExt = ".mp4"
)

// Store is the subset of queue.Store the executor needs.
type Store interface {
	PendingVocalRemovals(ctx context.Context) ([]*queue.VocalRemovalJob, error)
	ClaimVocalRemoval(ctx context.Context, sourceURL string) error
	CompleteVocalRemoval(ctx context.Context, sourceURL, outputPath string) error
	FailVocalRemoval(ctx context.Context, sourceURL, message string) error
	PurgeFailedVocalRemovals(ctx context.Context) (int64, error)
}

// Remuxer is the subset of ffmpeg.Client used here.
type Remuxer interface {
	ReplaceAudio(ctx context.Context, video, audio, output string) error
}

// Executor processes vocal-removal jobs.
type Executor struct {
	cfg    *config.Config
	store  Store
	prep   *sourceprep.Preparer
	ffmpeg Remuxer
	notify notifications.Service
	logger *slog.Logger
}

// New constructs an Executor. A nil notifier disables notifications.
func New(cfg *config.Config, store Store, prep *sourceprep.Preparer, ffmpeg Remuxer, logger *slog.Logger, notifier notifications.Service) *Executor {
	if notifier == nil {
		notifier = notifications.Noop()
	}
	return &Executor{
		cfg:    cfg,
		store:  store,
		prep:   prep,
		ffmpeg: ffmpeg,
		notify: notifier,
		logger: logging.NewComponentLogger(logger, laneName),
	}
}

// Name identifies the worker lane.
func (e *Executor) Name() string { return laneName }

// Interval is the sleep between polls.
func (e *Executor) Interval() time.Duration {
	return time.Duration(e.cfg.Workflow.QueuePollInterval) * time.Second
}

// ErrorBackoff is the sleep after a failed poll.
func (e *Executor) ErrorBackoff() time.Duration {
	return time.Duration(e.cfg.Workflow.ErrorRetryInterval) * time.Second
}

// DelayFirst reports that polling starts immediately.
func (e *Executor) DelayFirst() bool { return false }

// Startup deletes failed records so their URLs can be submitted again.
func (e *Executor) Startup(ctx context.Context) error {
	purged, err := e.store.PurgeFailedVocalRemovals(ctx)
	if err != nil {
		return err
	}
	if purged > 0 {
		e.logger.Info("purged failed vocal removal jobs",
			logging.Int64("count", purged),
			logging.String(logging.FieldEventType, "failed_jobs_purged"),
		)
	}
	return nil
}

// Poll processes every pending job sequentially.
func (e *Executor) Poll(ctx context.Context) error {
	jobs, err := e.store.PendingVocalRemovals(ctx)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if ctx.Err() != nil {
			return nil
		}
		if err := e.Process(ctx, job); err != nil {
			return err
		}
	}
	return nil
}

// Process claims and runs one job. Pipeline failures are recorded on the job;
// only job store errors are returned.
func (e *Executor) Process(ctx context.Context, job *queue.VocalRemovalJob) (err error) {
	ctx = services.WithJob(ctx, kind, job.URLHash)
	log := logging.WithContext(ctx, e.logger).With(logging.String(logging.FieldSourceURL, job.SourceURL))

	if err := e.store.ClaimVocalRemoval(ctx, job.SourceURL); err != nil {
		if errors.Is(err, queue.ErrNotClaimed) {
			log.Debug("job no longer pending", logging.String(logging.FieldEventType, "claim_skipped"))
			return nil
		}
		return err
	}
	start := time.Now()
	log.Info("vocal removal started", logging.String(logging.FieldEventType, "job_started"))

	workDir, werr := staging.NewWorkDir(e.cfg.Paths.WorkDir, kind, job.URLHash)
	if werr != nil {
		return e.fail(ctx, log, job, werr)
	}
	defer staging.Remove(ctx, workDir, e.logger)
	defer staging.KeepAlive(ctx, workDir, staging.KeepAliveInterval)()

	defer func() {
		if r := recover(); r != nil {
			err = e.fail(ctx, log, job, fmt.Errorf("panic: %v", r))
		}
	}()

	rel, runErr := e.run(ctx, job, workDir)
	if runErr != nil {
		return e.fail(ctx, log, job, runErr)
	}
	if err := e.store.CompleteVocalRemoval(ctx, job.SourceURL, rel); err != nil {
		return err
	}
	metrics.IncJob(kind, string(queue.StatusCompleted))
	log.Info("vocal removal completed",
		logging.String(logging.FieldEventType, "job_completed"),
		logging.String("output_path", rel),
		logging.Duration("elapsed", time.Since(start)),
	)
	e.publish(ctx, log, notifications.EventJobCompleted, notifications.Payload{
		"kind":   kind,
		"job":    job.SourceURL,
		"output": rel,
	})
	return nil
}

func (e *Executor) run(ctx context.Context, job *queue.VocalRemovalJob, workDir string) (string, error) {
	arts, err := e.prep.Separated(ctx, kind, job.SourceURL, workDir)
	if err != nil {
		return "", err
	}
	tmp := filepath.Join(workDir, "no_vocals"+outputExt)
	if err := stage.Step(ctx, e.logger, kind, "replace_audio", func(ctx context.Context) error {
		return e.ffmpeg.ReplaceAudio(ctx, arts.MuteVideo, arts.BackgroundAudio, tmp)
	}); err != nil {
		return "", err
	}
	final := filepath.Join(e.cfg.VocalRemovalDir(), OutputName(job.SourceURL))
	if err := stage.Step(ctx, e.logger, kind, "publish", func(context.Context) error {
		return fileutil.Publish(tmp, final)
	}); err != nil {
		return "", err
	}
	return e.cfg.PublicRelative(final)
}

// fail records cause on the job. A cancelled context means the daemon is
// stopping, so the write uses a fresh short-lived context.
func (e *Executor) fail(ctx context.Context, log *slog.Logger, job *queue.VocalRemovalJob, cause error) error {
	message := cause.Error()
	writeCtx := ctx
	if ctx.Err() != nil {
		message = "vocal removal interrupted: daemon stopped"
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
	}
	if err := e.store.FailVocalRemoval(writeCtx, job.SourceURL, message); err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	metrics.IncJob(kind, string(queue.StatusFailed))
	log.Error("vocal removal failed",
		logging.String(logging.FieldEventType, "job_failed"),
		logging.String("category", services.Category(cause)),
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, services.Hint(cause)),
	)
	e.publish(writeCtx, log, notifications.EventJobFailed, notifications.Payload{
		"kind":  kind,
		"job":   job.SourceURL,
		"error": message,
	})
	return nil
}

func (e *Executor) publish(ctx context.Context, log *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if err := e.notify.Publish(ctx, event, payload); err != nil {
		log.Warn("notification failed",
			logging.String(logging.FieldEventType, "notification_failed"),
			logging.Error(err),
		)
	}
}

// OutputName is the published file name for sourceURL.
func OutputName(sourceURL string) string {
	return mediacache.Key(sourceURL) + "_no_vocals" + outputExt
}

// HealthCheck reports whether ffmpeg and demucs are installed.
func (e *Executor) HealthCheck(context.Context) stage.Health {
	if missing := deps.Missing(deps.Check(e.cfg, "FFmpeg", "Demucs")); len(missing) > 0 {
		return stage.Unhealthy(laneName, missing[0].Detail)
	}
	return stage.Healthy(laneName)
}
