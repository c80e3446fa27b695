package sourceprep_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"peiyin/internal/download"
	"peiyin/internal/logging"
	"peiyin/internal/media/ffmpeg"
	"peiyin/internal/mediacache"
	"peiyin/internal/services"
	"peiyin/internal/services/demucs"
	"peiyin/internal/sourceprep"
	"peiyin/internal/testsupport"
)

type fixture struct {
	prep      *sourceprep.Preparer
	exec      *testsupport.FakeExecutor
	downloads *atomic.Int32
	url       string
	workDir   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	var downloads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downloads.Add(1)
		_, _ = w.Write([]byte("source-video"))
	}))
	t.Cleanup(srv.Close)

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	exec := testsupport.NewFakeExecutor()
	sep, err := demucs.New("demucs", cfg.Tools.DemucsModel, 0, demucs.WithExecutor(exec))
	if err != nil {
		t.Fatalf("demucs.New: %v", err)
	}
	prep := sourceprep.New(
		mediacache.NewManager(cfg, store, logging.NewNop()),
		download.New(download.Options{Retries: 1}),
		ffmpeg.New("ffmpeg", ffmpeg.WithExecutor(exec)),
		sep,
		logging.NewNop(),
	)
	work := filepath.Join(testsupport.BaseDir(cfg), "job")
	if err := os.MkdirAll(work, 0o755); err != nil {
		t.Fatal(err)
	}
	return &fixture{prep: prep, exec: exec, downloads: &downloads, url: srv.URL + "/ep1/clip.mp4", workDir: work}
}

func TestSeparatedComputesOnceThenHitsCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.prep.Separated(ctx, "composite_dubbing", f.url, f.workDir)
	if err != nil {
		t.Fatalf("Separated: %v", err)
	}
	if !first.Downloaded || first.BackgroundAudio == "" || first.MuteVideo == "" {
		t.Fatalf("unexpected artifacts %+v", first)
	}
	if len(f.exec.CallsTo("demucs")) != 1 {
		t.Fatalf("expected one separation run")
	}

	second, err := f.prep.Separated(ctx, "composite_dubbing", f.url, f.workDir)
	if err != nil {
		t.Fatalf("Separated again: %v", err)
	}
	if second.Downloaded || second != (sourceprep.Artifacts{BackgroundAudio: first.BackgroundAudio, MuteVideo: first.MuteVideo}) {
		t.Fatalf("expected pure cache hit, got %+v", second)
	}
	if f.downloads.Load() != 1 || len(f.exec.CallsTo("demucs")) != 1 {
		t.Fatalf("cache hit must not download or separate again")
	}
}

func TestMutedReusesCacheAndSkipsSeparation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	path, err := f.prep.Muted(ctx, "composite_dubbing", f.url, f.workDir)
	if err != nil {
		t.Fatalf("Muted: %v", err)
	}
	if filepath.Base(path) != mediacache.Key(f.url)+"_mute.mp4" {
		t.Fatalf("unexpected mute path %q", path)
	}
	if len(f.exec.CallsTo("demucs")) != 0 {
		t.Fatal("video mode must not separate")
	}

	// A later audio-mode job only needs the background track.
	arts, err := f.prep.Separated(ctx, "composite_dubbing", f.url, f.workDir)
	if err != nil {
		t.Fatalf("Separated: %v", err)
	}
	if arts.MuteVideo != path {
		t.Fatalf("expected cached mute video reused, got %q", arts.MuteVideo)
	}
	mutes := 0
	for _, call := range f.exec.CallsTo("ffmpeg") {
		if call.Has("-an") {
			mutes++
		}
	}
	if mutes != 1 {
		t.Fatalf("expected a single mute pass, got %d", mutes)
	}
}

func TestSeparationOutputMissingFails(t *testing.T) {
	f := newFixture(t)
	f.exec.DemucsNoOutput = true
	_, err := f.prep.Separated(context.Background(), "vocal_removal", f.url, f.workDir)
	if !errors.Is(err, demucs.ErrOutputNotFound) {
		t.Fatalf("expected ErrOutputNotFound, got %v", err)
	}
	if services.Category(err) != services.CategoryTool {
		t.Fatalf("expected tool category, got %s", services.Category(err))
	}
}
