package workflow

import (
	"context"
	"log/slog"
	"time"

	"peiyin/internal/config"
	"peiyin/internal/logging"
	"peiyin/internal/stage"
	"peiyin/internal/staging"
)

const (
	janitorName     = "work_dir_janitor"
	janitorInterval = time.Hour
)

// Janitor removes work directories left behind by a crashed daemon. Jobs
// remove their own directories, so anything older than the configured age
// belongs to no live job.
type Janitor struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewJanitor constructs a Janitor.
func NewJanitor(cfg *config.Config, logger *slog.Logger) *Janitor {
	return &Janitor{cfg: cfg, logger: logging.NewComponentLogger(logger, janitorName)}
}

func (j *Janitor) Name() string                { return janitorName }
func (j *Janitor) Interval() time.Duration     { return janitorInterval }
func (j *Janitor) ErrorBackoff() time.Duration { return janitorInterval }
func (j *Janitor) DelayFirst() bool            { return false }

func (j *Janitor) Startup(context.Context) error { return nil }

// Poll sweeps the work directory once.
func (j *Janitor) Poll(ctx context.Context) error {
	maxAge := time.Duration(j.cfg.Workflow.StaleWorkDirHours) * time.Hour
	if maxAge <= 0 {
		return nil
	}
	result := staging.CleanStale(ctx, j.cfg.Paths.WorkDir, maxAge, j.logger)
	if len(result.Errors) > 0 {
		return result.Errors[0].Error
	}
	return nil
}

// HealthCheck reports whether the work directory is usable.
func (j *Janitor) HealthCheck(context.Context) stage.Health {
	if _, err := staging.ListDirectories(j.cfg.Paths.WorkDir); err != nil {
		return stage.Unhealthy(janitorName, err.Error())
	}
	return stage.Healthy(janitorName)
}
