package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"peiyin/internal/logging"
	"peiyin/internal/metrics"
	"peiyin/internal/services"
)

// minSleep keeps a misconfigured zero interval from spinning.
const minSleep = 100 * time.Millisecond

// Start launches every registered lane.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.lanes) == 0 {
		m.mu.Unlock()
		return errors.New("workflow lanes not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	lanes := append([]*laneState(nil), m.lanes...)
	for _, state := range lanes {
		state.logger = m.laneLogger(state.lane.Name())
	}
	m.wg.Add(len(lanes))
	m.mu.Unlock()

	for _, state := range lanes {
		go m.runLane(runCtx, state)
	}
	return nil
}

// Stop cancels the lanes and waits for in-flight work to unwind.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Running reports whether lanes are active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *Manager) runLane(ctx context.Context, state *laneState) {
	defer m.wg.Done()
	lane := state.lane
	logger := state.logger
	ctx = services.WithLane(ctx, lane.Name())

	if err := m.guard(ctx, lane.Startup); err != nil && ctx.Err() == nil {
		logger.Warn("lane startup failed; continuing",
			logging.Error(err),
			logging.String(logging.FieldEventType, "lane_startup_failed"),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
	}
	logger.Info("lane started",
		logging.String(logging.FieldEventType, "lane_started"),
		logging.Duration("interval", lane.Interval()),
	)

	first := true
	for {
		if ctx.Err() != nil {
			logger.Info("lane stopped", logging.String(logging.FieldEventType, "lane_stopped"))
			return
		}
		if first && lane.DelayFirst() {
			first = false
			if !sleep(ctx, lane.Interval()) {
				continue
			}
		}
		first = false

		pollCtx := services.WithRequestID(ctx, uuid.NewString())
		err := m.guard(pollCtx, lane.Poll)
		m.recordPoll(state, err)

		wait := lane.Interval()
		if err != nil && ctx.Err() == nil {
			metrics.IncLoopError(lane.Name())
			logging.WithContext(pollCtx, logger).Error("lane poll failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "lane_poll_failed"),
				logging.String(logging.FieldErrorHint, services.Hint(err)),
				logging.Duration("retry_in", lane.ErrorBackoff()),
			)
			wait = lane.ErrorBackoff()
		}
		sleep(ctx, wait)
	}
}

// guard turns a panic escaping fn into an error so one lane cannot take the
// daemon down.
func (m *Manager) guard(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

func (m *Manager) recordPoll(state *laneState, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state.lastPoll = time.Now()
	state.polls++
	if err != nil {
		state.lastErr = err
	} else {
		state.lastErr = nil
	}
}

func (m *Manager) laneLogger(name string) *slog.Logger {
	if m.logger == nil {
		return logging.NewNop()
	}
	return m.logger.With(
		logging.String("component", "workflow-"+name),
		logging.String("lane", name),
	)
}

// sleep waits d or until ctx ends, reporting whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	d = max(d, minSleep)
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
