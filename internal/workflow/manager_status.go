package workflow

import (
	"context"
	"time"

	"peiyin/internal/logging"
	"peiyin/internal/queue"
	"peiyin/internal/stage"
)

// LaneStatus describes one lane's recent activity.
type LaneStatus struct {
	Name      string       `json:"name"`
	Polls     int64        `json:"polls"`
	LastPoll  time.Time    `json:"last_poll,omitzero"`
	LastError string       `json:"last_error,omitempty"`
	Health    stage.Health `json:"health"`
}

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running  bool                                   `json:"running"`
	JobStats map[queue.JobKind]map[queue.Status]int `json:"job_stats"`
	Lanes    []LaneStatus                           `json:"lanes"`
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	running := m.running
	lanes := make([]LaneStatus, 0, len(m.lanes))
	checkers := make([]stage.Checker, 0, len(m.lanes))
	for _, state := range m.lanes {
		status := LaneStatus{Name: state.lane.Name(), Polls: state.polls, LastPoll: state.lastPoll}
		if state.lastErr != nil {
			status.LastError = state.lastErr.Error()
		}
		lanes = append(lanes, status)
		checkers = append(checkers, state.lane)
	}
	m.mu.RUnlock()

	for i, checker := range checkers {
		lanes[i].Health = checker.HealthCheck(ctx)
	}

	var stats map[queue.JobKind]map[queue.Status]int
	if m.store != nil {
		var err error
		stats, err = m.store.Stats(ctx)
		if err != nil && m.logger != nil {
			m.logger.Warn("failed to read job stats", logging.Error(err))
		}
	}
	return StatusSummary{Running: running, JobStats: stats, Lanes: lanes}
}

// Ready reports whether every lane is healthy.
func (s StatusSummary) Ready() bool {
	for _, lane := range s.Lanes {
		if !lane.Health.Ready {
			return false
		}
	}
	return true
}
