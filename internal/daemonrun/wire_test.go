package daemonrun_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"peiyin/internal/api"
	"peiyin/internal/daemonrun"
	"peiyin/internal/logging"
	"peiyin/internal/notifications"
	"peiyin/internal/testsupport"
)

func TestWireRegistersLanes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	c, err := daemonrun.Wire(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("Wire: %v", err)
	}
	if c.Refresher != nil {
		t.Fatal("expected no refresher when recommendations are disabled")
	}
	want := []string{"vocal_removal", "dubbing", "work_dir_janitor"}
	if got := c.Workflow.Lanes(); !slices.Equal(got, want) {
		t.Fatalf("lanes = %v, want %v", got, want)
	}

	cfg = testsupport.NewConfig(t, testsupport.WithRecommendations(3))
	store = testsupport.MustOpenStore(t, cfg)
	c, err = daemonrun.Wire(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("Wire: %v", err)
	}
	if c.Refresher == nil || !slices.Contains(c.Workflow.Lanes(), "recommendation") {
		t.Fatalf("expected recommendation lane, got %v", c.Workflow.Lanes())
	}
}

func TestWiredVocalRemovalRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	pipe := testsupport.NewPipeline(t, cfg, store)

	notify := &testsupport.Notifier{}
	c, err := daemonrun.Wire(cfg, store, logging.NewNop(),
		daemonrun.WithToolExecutor(pipe.Exec),
		daemonrun.WithNotifier(notify),
	)
	if err != nil {
		t.Fatalf("Wire: %v", err)
	}
	srv := httptest.NewServer(c.Handler.Router())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := c.Workflow.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(c.Workflow.Stop)

	source := pipe.SourceURL("/episode-1.mp4")
	body, _ := json.Marshal(map[string]string{"source_url": source})
	resp, err := http.Post(srv.URL+"/api/vocal-removal", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("enqueue status = %d", resp.StatusCode)
	}

	var status api.VocalRemovalStatus
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(srv.URL + "/api/vocal-removal?source_url=" + url.QueryEscape(source))
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		status = api.VocalRemovalStatus{}
		err = json.NewDecoder(resp.Body).Decode(&status)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if status.Status == "completed" || status.Status == "failed" {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if status.Status != "completed" {
		t.Fatalf("job did not complete: %+v", status)
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.PublicDir, filepath.FromSlash(status.OutputPath))); err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if status.OutputURL == "" {
		t.Fatal("expected output url")
	}
	// The notification follows the store write.
	for time.Now().Before(deadline) && len(notify.Events()) == 0 {
		time.Sleep(10 * time.Millisecond)
	}
	events := notify.Events()
	if len(events) != 1 || events[0].Event != notifications.EventJobCompleted {
		t.Fatalf("expected completion notification, got %+v", events)
	}
}

func TestReadPIDMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemonrun.ReadPID(cfg); err == nil {
		t.Fatal("expected error without a pid file")
	}
}
