package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"peiyin/internal/logging"
	"peiyin/internal/queue"
	"peiyin/internal/stage"
	"peiyin/internal/testsupport"
	"peiyin/internal/workflow"
)

type stubLane struct {
	name       string
	interval   time.Duration
	delayFirst bool
	startupErr error
	pollErr    error
	panicOnce  bool

	mu       sync.Mutex
	startups int
	polls    int
	polled   chan struct{}
}

func newStubLane(name string) *stubLane {
	return &stubLane{name: name, interval: 10 * time.Millisecond, polled: make(chan struct{}, 64)}
}

func (s *stubLane) Name() string                { return s.name }
func (s *stubLane) Interval() time.Duration     { return s.interval }
func (s *stubLane) ErrorBackoff() time.Duration { return s.interval }
func (s *stubLane) DelayFirst() bool            { return s.delayFirst }

func (s *stubLane) Startup(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startups++
	return s.startupErr
}

func (s *stubLane) Poll(context.Context) error {
	s.mu.Lock()
	s.polls++
	shouldPanic := s.panicOnce
	s.panicOnce = false
	err := s.pollErr
	s.mu.Unlock()
	select {
	case s.polled <- struct{}{}:
	default:
	}
	if shouldPanic {
		panic("lane exploded")
	}
	return err
}

func (s *stubLane) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(s.name)
}

func (s *stubLane) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startups, s.polls
}

func waitPolls(t *testing.T, lane *stubLane, n int) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for i := 0; i < n; i++ {
		select {
		case <-lane.polled:
		case <-deadline:
			_, polls := lane.counts()
			t.Fatalf("lane %s: expected %d polls, saw %d", lane.name, n, polls)
		}
	}
}

func newManager(t *testing.T) *workflow.Manager {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return workflow.NewManager(cfg, store, logging.NewNop())
}

func TestManagerRunsLanesIndependently(t *testing.T) {
	mgr := newManager(t)
	fast := newStubLane("fast")
	failing := newStubLane("failing")
	failing.pollErr = errors.New("store unavailable")
	failing.startupErr = errors.New("purge failed")
	mgr.Register(fast, failing)

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitPolls(t, fast, 3)
	waitPolls(t, failing, 3)

	status := mgr.Status(context.Background())
	if !status.Running || len(status.Lanes) != 2 {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.Lanes[1].LastError != "store unavailable" {
		t.Fatalf("expected lane error recorded, got %+v", status.Lanes[1])
	}
	if status.Lanes[0].LastError != "" || !status.Ready() {
		t.Fatalf("unexpected healthy lane %+v", status.Lanes[0])
	}

	mgr.Stop()
	if mgr.Running() {
		t.Fatal("expected manager stopped")
	}
	if startups, _ := failing.counts(); startups != 1 {
		t.Fatalf("expected one startup, got %d", startups)
	}
}

func TestManagerDelayFirstWaitsOneInterval(t *testing.T) {
	mgr := newManager(t)
	lane := newStubLane("delayed")
	lane.delayFirst = true
	lane.interval = time.Hour
	mgr.Register(lane)

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	mgr.Stop()
	if startups, polls := lane.counts(); startups != 1 || polls != 0 {
		t.Fatalf("expected startup only, got startups=%d polls=%d", startups, polls)
	}
}

func TestManagerSurvivesLanePanic(t *testing.T) {
	mgr := newManager(t)
	lane := newStubLane("fragile")
	lane.panicOnce = true
	mgr.Register(lane)

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitPolls(t, lane, 2)
	mgr.Stop()
}

func TestManagerStartRequiresLanes(t *testing.T) {
	mgr := newManager(t)
	if err := mgr.Start(context.Background()); err == nil {
		t.Fatal("expected error without lanes")
	}
}

func TestManagerRejectsDoubleStart(t *testing.T) {
	mgr := newManager(t)
	mgr.Register(newStubLane("only"))
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()
	if err := mgr.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
}

func TestStatusReportsJobCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewDubbing(t, store, cfg, "https://cdn.example/a.mp4", queue.ModeAudio)
	mgr := workflow.NewManager(cfg, store, logging.NewNop())
	mgr.Register(newStubLane("idle"))

	status := mgr.Status(context.Background())
	if status.Running {
		t.Fatal("manager was never started")
	}
	if got := status.JobStats[queue.KindCompositeDubbing][queue.StatusPending]; got != 1 {
		t.Fatalf("expected one pending dubbing job, got %d (%v)", got, status.JobStats)
	}
}

func TestJanitorRemovesOnlyStaleDirectories(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.StaleWorkDirHours = 1
	stale := filepath.Join(cfg.Paths.WorkDir, "dubbing-1-abc")
	fresh := filepath.Join(cfg.Paths.WorkDir, "dubbing-2-def")
	for _, dir := range []string{stale, fresh} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	janitor := workflow.NewJanitor(cfg, logging.NewNop())
	if err := janitor.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale dir removed, stat err=%v", err)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("expected fresh dir kept: %v", err)
	}
	if health := janitor.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("unexpected health %+v", health)
	}
}
