package testsupport

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"peiyin/internal/config"
	"peiyin/internal/download"
	"peiyin/internal/logging"
	"peiyin/internal/media/ffmpeg"
	"peiyin/internal/media/ffprobe"
	"peiyin/internal/mediacache"
	"peiyin/internal/queue"
	"peiyin/internal/services/demucs"
	"peiyin/internal/sourceprep"
)

// Pipeline bundles the media collaborators of the executors, backed by a
// FakeExecutor and an httptest server that serves every path as a clip.
type Pipeline struct {
	Exec      *FakeExecutor
	Cache     *mediacache.Manager
	Prep      *sourceprep.Preparer
	FFmpeg    *ffmpeg.Client
	Probe     ffprobe.Prober
	Server    *httptest.Server
	Downloads *atomic.Int32
}

// NewPipeline wires a Pipeline against store.
func NewPipeline(t testing.TB, cfg *config.Config, store *queue.Store) *Pipeline {
	t.Helper()

	downloads := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.mp4" {
			http.NotFound(w, r)
			return
		}
		downloads.Add(1)
		_, _ = w.Write([]byte("source clip " + r.URL.Path))
	}))
	t.Cleanup(srv.Close)

	exec := NewFakeExecutor()
	sep, err := demucs.New(cfg.Tools.DemucsBinary, cfg.Tools.DemucsModel, 0, demucs.WithExecutor(exec))
	if err != nil {
		t.Fatalf("demucs.New: %v", err)
	}
	ff := ffmpeg.New(cfg.Tools.FFmpegBinary,
		ffmpeg.WithExecutor(exec),
		ffmpeg.WithAudioEncoding(cfg.Tools.AudioCodec, cfg.Tools.AudioBitrate),
	)
	cache := mediacache.NewManager(cfg, store, logging.NewNop())
	prep := sourceprep.New(cache, download.New(download.Options{Retries: 1}), ff, sep, logging.NewNop())
	return &Pipeline{
		Exec:      exec,
		Cache:     cache,
		Prep:      prep,
		FFmpeg:    ff,
		Probe:     ffprobe.Prober{Binary: cfg.Tools.FFprobeBinary, Executor: exec},
		Server:    srv,
		Downloads: downloads,
	}
}

// SourceURL returns a URL on the pipeline server.
func (p *Pipeline) SourceURL(path string) string {
	return p.Server.URL + path
}
