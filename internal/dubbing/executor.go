package dubbing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"peiyin/internal/config"
	"peiyin/internal/deps"
	"peiyin/internal/fileutil"
	"peiyin/internal/logging"
	"peiyin/internal/media/ffprobe"
	"peiyin/internal/metrics"
	"peiyin/internal/notifications"
	"peiyin/internal/queue"
	"peiyin/internal/services"
	"peiyin/internal/sourceprep"
	"peiyin/internal/stage"
	"peiyin/internal/staging"
)

const (
	laneName = "dubbing"
	kind     = string(queue.KindCompositeDubbing)
)

// Store is the subset of queue.Store the executor needs.
type Store interface {
	PendingCompositeDubbings(ctx context.Context) ([]*queue.CompositeDubbingJob, error)
	ClaimCompositeDubbing(ctx context.Context, id int64) error
	CompleteCompositeDubbing(ctx context.Context, id int64, outputPath string) error
	FailCompositeDubbing(ctx context.Context, id int64, message string) error
	PurgeFailedCompositeDubbings(ctx context.Context) (int64, error)
}

// Composer is the subset of ffmpeg.Client used here.
type Composer interface {
	MixAudio(ctx context.Context, first, second, output string) error
	ReplaceAudio(ctx context.Context, video, audio, output string) error
	StackVertical(ctx context.Context, top, bottom, output string, size int) error
}

// Prober validates uploaded media.
type Prober interface {
	RequireStreams(ctx context.Context, path string, needAudio, needVideo bool) (ffprobe.Result, error)
}

// Executor processes composite-dubbing jobs.
type Executor struct {
	cfg    *config.Config
	store  Store
	prep   *sourceprep.Preparer
	ffmpeg Composer
	probe  Prober
	notify notifications.Service
	logger *slog.Logger
}

// New constructs an Executor. A nil notifier disables notifications.
func New(cfg *config.Config, store Store, prep *sourceprep.Preparer, ffmpeg Composer, probe Prober, logger *slog.Logger, notifier notifications.Service) *Executor {
	if notifier == nil {
		notifier = notifications.Noop()
	}
	return &Executor{
		cfg:    cfg,
		store:  store,
		prep:   prep,
		ffmpeg: ffmpeg,
		probe:  probe,
		notify: notifier,
		logger: logging.NewComponentLogger(logger, laneName),
	}
}

func (e *Executor) Name() string { return laneName }

func (e *Executor) Interval() time.Duration {
	return time.Duration(e.cfg.Workflow.QueuePollInterval) * time.Second
}

func (e *Executor) ErrorBackoff() time.Duration {
	return time.Duration(e.cfg.Workflow.ErrorRetryInterval) * time.Second
}

func (e *Executor) DelayFirst() bool { return false }

// Startup deletes failed jobs. Their submitters must resubmit.
func (e *Executor) Startup(ctx context.Context) error {
	purged, err := e.store.PurgeFailedCompositeDubbings(ctx)
	if err != nil {
		return err
	}
	if purged > 0 {
		e.logger.Info("purged failed dubbing jobs",
			logging.Int64("count", purged),
			logging.String(logging.FieldEventType, "failed_jobs_purged"),
		)
	}
	return nil
}

// Poll processes every pending job sequentially in submission order.
func (e *Executor) Poll(ctx context.Context) error {
	jobs, err := e.store.PendingCompositeDubbings(ctx)
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
func (e *Executor) Process(ctx context.Context, job *queue.CompositeDubbingJob) (err error) {
	id := strconv.FormatInt(job.ID, 10)
	ctx = services.WithJob(ctx, kind, id)
	log := logging.WithContext(ctx, e.logger).With(
		logging.String(logging.FieldSourceURL, job.SourceURL),
		logging.String("mode", string(job.Mode)),
	)

	if err := e.store.ClaimCompositeDubbing(ctx, job.ID); err != nil {
		if errors.Is(err, queue.ErrNotClaimed) {
			log.Debug("job no longer pending", logging.String(logging.FieldEventType, "claim_skipped"))
			return nil
		}
		return err
	}
	start := time.Now()
	log.Info("dubbing started", logging.String(logging.FieldEventType, "job_started"))

	workDir, werr := staging.NewWorkDir(e.cfg.Paths.WorkDir, kind, id)
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
	if err := e.store.CompleteCompositeDubbing(ctx, job.ID, rel); err != nil {
		return err
	}
	metrics.IncJob(kind, string(queue.StatusCompleted))
	log.Info("dubbing completed",
		logging.String(logging.FieldEventType, "job_completed"),
		logging.String("output_path", rel),
		logging.Duration("elapsed", time.Since(start)),
	)
	e.publish(ctx, log, notifications.EventJobCompleted, notifications.Payload{
		"kind":   kind,
		"job":    strconv.FormatInt(job.ID, 10),
		"output": rel,
	})
	return nil
}

func (e *Executor) run(ctx context.Context, job *queue.CompositeDubbingJob, workDir string) (string, error) {
	req, err := job.Request()
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "dubbing", "mode", "", err)
	}
	if !fileutil.IsNonEmptyFile(req.MediaPath()) {
		return "", services.Wrap(services.ErrValidation, "dubbing", "user media", "file missing: "+req.MediaPath(), nil)
	}

	composite := filepath.Join(workDir, "composite.mp4")
	switch r := req.(type) {
	case queue.AudioDubbingRequest:
		err = e.composeAudio(ctx, job.SourceURL, r, workDir, composite)
	case queue.VideoDubbingRequest:
		err = e.composeVideo(ctx, job.SourceURL, r, workDir, composite)
	default:
		err = fmt.Errorf("unsupported dubbing request %T", req)
	}
	if err != nil {
		return "", err
	}

	final := filepath.Join(e.cfg.DubbingDir(), OutputName(job.ID, req.Mode()))
	if err := stage.Step(ctx, e.logger, kind, "publish", func(context.Context) error {
		return fileutil.Publish(composite, final)
	}); err != nil {
		return "", err
	}
	return e.cfg.PublicRelative(final)
}

func (e *Executor) composeAudio(ctx context.Context, sourceURL string, req queue.AudioDubbingRequest, workDir, output string) error {
	if err := stage.Step(ctx, e.logger, kind, "probe", func(ctx context.Context) error {
		_, err := e.probe.RequireStreams(ctx, req.UserAudioPath, true, false)
		return err
	}); err != nil {
		return err
	}
	arts, err := e.prep.Separated(ctx, kind, sourceURL, workDir)
	if err != nil {
		return err
	}
	mixed := filepath.Join(workDir, "mixed.m4a")
	if err := stage.Step(ctx, e.logger, kind, "mix_audio", func(ctx context.Context) error {
		return e.ffmpeg.MixAudio(ctx, req.UserAudioPath, arts.BackgroundAudio, mixed)
	}); err != nil {
		return err
	}
	return stage.Step(ctx, e.logger, kind, "replace_audio", func(ctx context.Context) error {
		return e.ffmpeg.ReplaceAudio(ctx, arts.MuteVideo, mixed, output)
	})
}

func (e *Executor) composeVideo(ctx context.Context, sourceURL string, req queue.VideoDubbingRequest, workDir, output string) error {
	if err := stage.Step(ctx, e.logger, kind, "probe", func(ctx context.Context) error {
		_, err := e.probe.RequireStreams(ctx, req.UserVideoPath, false, true)
		return err
	}); err != nil {
		return err
	}
	muted, err := e.prep.Muted(ctx, kind, sourceURL, workDir)
	if err != nil {
		return err
	}
	return stage.Step(ctx, e.logger, kind, "stack_video", func(ctx context.Context) error {
		return e.ffmpeg.StackVertical(ctx, muted, req.UserVideoPath, output, e.cfg.Tools.StackSize)
	})
}

func (e *Executor) fail(ctx context.Context, log *slog.Logger, job *queue.CompositeDubbingJob, cause error) error {
	message := cause.Error()
	writeCtx := ctx
	if ctx.Err() != nil {
		message = "dubbing interrupted: daemon stopped"
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
	}
	if err := e.store.FailCompositeDubbing(writeCtx, job.ID, message); err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	metrics.IncJob(kind, string(queue.StatusFailed))
	log.Error("dubbing failed",
		logging.String(logging.FieldEventType, "job_failed"),
		logging.String("category", services.Category(cause)),
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, services.Hint(cause)),
	)
	e.publish(writeCtx, log, notifications.EventJobFailed, notifications.Payload{
		"kind":  kind,
		"job":   strconv.FormatInt(job.ID, 10),
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

// OutputName is the published file name for a dubbing job.
func OutputName(id int64, mode queue.DubbingMode) string {
	return fmt.Sprintf("dub_%d_%s.mp4", id, mode)
}

// HealthCheck reports whether ffmpeg, ffprobe and demucs are installed.
func (e *Executor) HealthCheck(context.Context) stage.Health {
	if missing := deps.Missing(deps.Check(e.cfg)); len(missing) > 0 {
		return stage.Unhealthy(laneName, missing[0].Detail)
	}
	return stage.Healthy(laneName)
}
