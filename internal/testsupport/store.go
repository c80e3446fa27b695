package testsupport

import (
	"context"
	"testing"

	"peiyin/internal/config"
	"peiyin/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewDubbing creates a pending composite-dubbing job whose user media file
// exists on disk.
func NewDubbing(t testing.TB, store *queue.Store, cfg *config.Config, sourceURL string, mode queue.DubbingMode) *queue.CompositeDubbingJob {
	t.Helper()

	media := UploadPath(cfg, string(mode)+"-"+RandomSuffix()+".m4a")
	if mode == queue.ModeVideo {
		media = UploadPath(cfg, string(mode)+"-"+RandomSuffix()+".mp4")
	}
	WriteFile(t, media, 64)
	req, err := queue.NewDubbingRequest(mode, media)
	if err != nil {
		t.Fatalf("NewDubbingRequest: %v", err)
	}
	job, err := store.NewCompositeDubbing(context.Background(), queue.DubbingSubmission{
		UserID:    "user-1",
		SourceURL: sourceURL,
		Request:   req,
		Display:   queue.DisplayMetadata{CaptionText: "hello", Duration: 3.5},
	})
	if err != nil {
		t.Fatalf("NewCompositeDubbing: %v", err)
	}
	return job
}
