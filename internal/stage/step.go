package stage

import (
	"context"
	"log/slog"
	"time"

	"peiyin/internal/logging"
	"peiyin/internal/metrics"
	"peiyin/internal/services"
)

// Step runs one named pipeline step. The step name is attached to the context
// passed to fn, its duration is recorded, and a failure is logged at debug
// level; reporting the job failure is left to the caller.
func Step(ctx context.Context, logger *slog.Logger, kind, name string, fn func(context.Context) error) error {
	ctx = services.WithStage(ctx, name)
	log := logging.WithContext(ctx, logger)
	start := time.Now()
	log.Debug("step started", logging.String(logging.FieldEventType, "step_start"))

	err := fn(ctx)
	elapsed := time.Since(start)
	metrics.ObserveStep(kind, name, elapsed)
	if err != nil {
		log.Debug("step failed",
			logging.String(logging.FieldEventType, "step_failed"),
			logging.Duration("elapsed", elapsed),
			logging.Error(err),
		)
		return err
	}
	log.Debug("step finished",
		logging.String(logging.FieldEventType, "step_complete"),
		logging.Duration("elapsed", elapsed),
	)
	return nil
}
