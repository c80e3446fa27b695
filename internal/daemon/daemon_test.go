package daemon_test

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"peiyin/internal/daemon"
	"peiyin/internal/logging"
	"peiyin/internal/stage"
	"peiyin/internal/testsupport"
	"peiyin/internal/workflow"
)

type idleLane struct{}

func (idleLane) Name() string                             { return "idle" }
func (idleLane) Interval() time.Duration                  { return time.Hour }
func (idleLane) ErrorBackoff() time.Duration              { return time.Hour }
func (idleLane) DelayFirst() bool                         { return true }
func (idleLane) Startup(context.Context) error            { return nil }
func (idleLane) Poll(context.Context) error               { return nil }
func (idleLane) HealthCheck(context.Context) stage.Health { return stage.Healthy("idle") }

func newDaemon(t *testing.T, handler http.Handler) *daemon.Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, logger)
	mgr.Register(idleLane{})
	d, err := daemon.New(cfg, store, logger, mgr, handler)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Stop() })
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newDaemon(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running || !status.Workflow.Running {
		t.Fatalf("expected daemon and workflow to be running, got %+v", status)
	}
	if status.APIAddress != "" {
		t.Fatalf("expected no api address without a handler, got %q", status.APIAddress)
	}
	if !strings.HasSuffix(status.LockFilePath, "peiyind.lock") {
		t.Fatalf("unexpected lock path %q", status.LockFilePath)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status(ctx)
	if status.Running || status.Workflow.Running {
		t.Fatalf("expected daemon to be stopped, got %+v", status)
	}
}

func TestDaemonLockRejectsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	build := func() *daemon.Daemon {
		mgr := workflow.NewManager(cfg, store, logger)
		mgr.Register(idleLane{})
		d, err := daemon.New(cfg, store, logger, mgr, nil)
		if err != nil {
			t.Fatalf("daemon.New: %v", err)
		}
		t.Cleanup(func() { d.Stop() })
		return d
	}

	first := build()
	second := build()
	ctx := context.Background()

	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	err := second.Start(ctx)
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock conflict, got %v", err)
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("second Start after release: %v", err)
	}
}

func TestLockedOutDaemonLeavesWorkDirAlone(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.StaleWorkDirHours = 1
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	running := workflow.NewManager(cfg, store, logger)
	running.Register(idleLane{})
	first, err := daemon.New(cfg, store, logger, running, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { first.Stop() })
	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	inUse := filepath.Join(cfg.Paths.WorkDir, "vocal_removal-abc-1")
	if err := os.MkdirAll(inUse, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(inUse, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	sweeping := workflow.NewManager(cfg, store, logger)
	sweeping.Register(workflow.NewJanitor(cfg, logger))
	second, err := daemon.New(cfg, store, logger, sweeping, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { second.Stop() })
	if err := second.Start(ctx); err == nil {
		t.Fatal("expected lock conflict")
	}
	time.Sleep(50 * time.Millisecond)
	if _, err := os.Stat(inUse); err != nil {
		t.Fatalf("work dir of the running daemon was removed: %v", err)
	}
}

func TestDaemonServesAPI(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "pong "+r.URL.Path)
	})
	d := newDaemon(t, handler)
	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	addr := d.Status(ctx).APIAddress
	if addr == "" || strings.HasSuffix(addr, ":0") {
		t.Fatalf("expected bound api address, got %q", addr)
	}
	resp, err := http.Get("http://" + addr + "/ping")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "pong /ping" {
		t.Fatalf("unexpected body %q", body)
	}

	d.Stop()
	client := &http.Client{Timeout: time.Second}
	if resp, err := client.Get("http://" + addr + "/ping"); err == nil {
		resp.Body.Close()
		t.Fatal("expected api server to be closed after Stop")
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := daemon.New(nil, nil, nil, nil, nil); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}
