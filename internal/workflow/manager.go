package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"peiyin/internal/config"
	"peiyin/internal/queue"
	"peiyin/internal/stage"
)

// Lane is one supervised poll loop.
type Lane interface {
	stage.Checker
	Name() string
	Interval() time.Duration
	ErrorBackoff() time.Duration
	// DelayFirst reports whether the loop sleeps one interval before its
	// first Poll.
	DelayFirst() bool
	Startup(ctx context.Context) error
	Poll(ctx context.Context) error
}

// StatsReader supplies job counts for Status.
type StatsReader interface {
	Stats(ctx context.Context) (map[queue.JobKind]map[queue.Status]int, error)
}

// Manager runs registered lanes.
type Manager struct {
	cfg    *config.Config
	store  StatsReader
	logger *slog.Logger

	lanes []*laneState

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type laneState struct {
	lane   Lane
	logger *slog.Logger

	lastErr  error
	lastPoll time.Time
	polls    int64
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store StatsReader, logger *slog.Logger) *Manager {
	return &Manager{cfg: cfg, store: store, logger: logger}
}

// Register adds lanes. Lanes registered while running start with the next
// Start.
func (m *Manager) Register(lanes ...Lane) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, lane := range lanes {
		if lane == nil {
			continue
		}
		m.lanes = append(m.lanes, &laneState{lane: lane})
	}
}

// Lanes returns the registered lane names in registration order.
func (m *Manager) Lanes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.lanes))
	for _, state := range m.lanes {
		names = append(names, state.lane.Name())
	}
	return names
}
