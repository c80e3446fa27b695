package queue_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"peiyin/internal/queue"
	"peiyin/internal/testsupport"
)

func openStore(t *testing.T) *queue.Store {
	t.Helper()
	return testsupport.MustOpenStore(t, testsupport.NewConfig(t))
}

func TestOpenCreatesDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if store.Path() != filepath.Join(cfg.Paths.DataDir, "queue.db") {
		t.Fatalf("unexpected db path %q", store.Path())
	}
	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.DatabaseReadable || !health.IntegrityCheck || len(health.MissingTables) != 0 {
		t.Fatalf("unexpected health %+v", health)
	}
}

func TestReopenKeepsData(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, _, err := store.EnqueueVocalRemoval(context.Background(), "https://cdn/a.mp4", "h1"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	store.Close()

	reopened := testsupport.MustOpenStore(t, cfg)
	job, err := reopened.GetVocalRemoval(context.Background(), "https://cdn/a.mp4")
	if err != nil || job == nil {
		t.Fatalf("expected job after reopen, got %v, %v", job, err)
	}
}

func TestEnqueueVocalRemovalDeduplicates(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	first, created, err := store.EnqueueVocalRemoval(ctx, "https://cdn/a.mp4", "hash-a")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if !created || first.Status != queue.StatusPending {
		t.Fatalf("expected new pending job, got created=%v status=%s", created, first.Status)
	}

	if err := store.ClaimVocalRemoval(ctx, first.SourceURL); err != nil {
		t.Fatalf("claim: %v", err)
	}
	second, created, err := store.EnqueueVocalRemoval(ctx, "https://cdn/a.mp4", "hash-a")
	if err != nil {
		t.Fatalf("second enqueue: %v", err)
	}
	if created {
		t.Fatal("expected existing record to be returned")
	}
	if second.ID != first.ID || second.Status != queue.StatusProcessing {
		t.Fatalf("expected same processing record, got %+v", second)
	}
	all, err := store.ListVocalRemovals(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected one record, got %d", len(all))
	}
}

func TestClaimIsAtomic(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if _, _, err := store.EnqueueVocalRemoval(ctx, "https://cdn/a.mp4", "h"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := store.ClaimVocalRemoval(ctx, "https://cdn/a.mp4"); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if err := store.ClaimVocalRemoval(ctx, "https://cdn/a.mp4"); !errors.Is(err, queue.ErrNotClaimed) {
		t.Fatalf("expected ErrNotClaimed, got %v", err)
	}
	if err := store.ClaimVocalRemoval(ctx, "https://cdn/missing.mp4"); !errors.Is(err, queue.ErrNotClaimed) {
		t.Fatalf("expected ErrNotClaimed for missing job, got %v", err)
	}
}

func TestTerminalWritesAreIdempotentAndExclusive(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	url := "https://cdn/a.mp4"
	if _, _, err := store.EnqueueVocalRemoval(ctx, url, "h"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := store.CompleteVocalRemoval(ctx, url, "vocal_removal/h_no_vocals.mp4"); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition from pending, got %v", err)
	}
	if err := store.ClaimVocalRemoval(ctx, url); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := store.CompleteVocalRemoval(ctx, url, "vocal_removal/h_no_vocals.mp4"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := store.CompleteVocalRemoval(ctx, url, "vocal_removal/h_no_vocals.mp4"); err != nil {
		t.Fatalf("repeat complete should be a no-op: %v", err)
	}
	if err := store.FailVocalRemoval(ctx, url, "late failure"); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition out of completed, got %v", err)
	}

	job, err := store.GetVocalRemoval(ctx, url)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.Status != queue.StatusCompleted || job.OutputPath == nil || job.ErrorMessage != nil {
		t.Fatalf("completed job must carry only an output path: %+v", job)
	}
	if err := store.FailVocalRemoval(ctx, "https://cdn/none.mp4", "x"); !errors.Is(err, queue.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestFailRecordsMessageVerbatim(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	job := testsupport.NewDubbing(t, store, testsupport.NewConfig(t), "https://cdn/a.mp4", queue.ModeAudio)
	if err := store.ClaimCompositeDubbing(ctx, job.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	msg := "separate: demucs: exit status 1: CUDA out of memory"
	if err := store.FailCompositeDubbing(ctx, job.ID, msg); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if err := store.FailCompositeDubbing(ctx, job.ID, "second"); err != nil {
		t.Fatalf("repeat fail should be a no-op: %v", err)
	}
	got, err := store.GetCompositeDubbing(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != queue.StatusFailed || got.ErrorMessage == nil || *got.ErrorMessage != msg || got.OutputPath != nil {
		t.Fatalf("unexpected failed job %+v", got)
	}
}

func TestEmptyFailureMessageIsReplaced(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if _, _, err := store.EnqueueVocalRemoval(ctx, "u", "h"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := store.ClaimVocalRemoval(ctx, "u"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := store.FailVocalRemoval(ctx, "u", "  "); err != nil {
		t.Fatalf("fail: %v", err)
	}
	job, _ := store.GetVocalRemoval(ctx, "u")
	if job.ErrorMessage == nil || *job.ErrorMessage == "" {
		t.Fatalf("failed job must carry a message, got %+v", job)
	}
}

func TestDubbingJobsAreNeverDeduplicated(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	a := testsupport.NewDubbing(t, store, cfg, "https://cdn/a.mp4", queue.ModeAudio)
	b := testsupport.NewDubbing(t, store, cfg, "https://cdn/a.mp4", queue.ModeAudio)
	if a.ID == b.ID {
		t.Fatalf("expected distinct ids, got %d twice", a.ID)
	}
	if a.Status != queue.StatusPending || a.CaptionText != "hello" || a.Duration != 3.5 {
		t.Fatalf("unexpected job %+v", a)
	}
	req, err := a.Request()
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if _, ok := req.(queue.AudioDubbingRequest); !ok {
		t.Fatalf("expected audio request, got %T", req)
	}
}

func TestPendingOrderMatchesInsertion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	urls := []string{"https://cdn/c.mp4", "https://cdn/a.mp4", "https://cdn/b.mp4"}
	for _, url := range urls {
		if _, _, err := store.EnqueueVocalRemoval(ctx, url, url); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	pending, err := store.PendingVocalRemovals(ctx)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	for i, job := range pending {
		if job.SourceURL != urls[i] {
			t.Fatalf("position %d: expected %s, got %s", i, urls[i], job.SourceURL)
		}
	}

	var ids []int64
	for range 3 {
		ids = append(ids, testsupport.NewDubbing(t, store, cfg, "https://cdn/x.mp4", queue.ModeVideo).ID)
	}
	dubs, err := store.PendingCompositeDubbings(ctx)
	if err != nil {
		t.Fatalf("pending dubbings: %v", err)
	}
	for i, job := range dubs {
		if job.ID != ids[i] {
			t.Fatalf("position %d: expected id %d, got %d", i, ids[i], job.ID)
		}
	}
}

func TestPurgeFailedLeavesOtherStatuses(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	mk := func(url string) {
		if _, _, err := store.EnqueueVocalRemoval(ctx, url, url); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	mk("pending")
	mk("processing")
	mk("completed")
	mk("failed")
	for _, url := range []string{"processing", "completed", "failed"} {
		if err := store.ClaimVocalRemoval(ctx, url); err != nil {
			t.Fatalf("claim %s: %v", url, err)
		}
	}
	if err := store.CompleteVocalRemoval(ctx, "completed", "vocal_removal/x.mp4"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := store.FailVocalRemoval(ctx, "failed", "boom"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	failedDub := testsupport.NewDubbing(t, store, cfg, "https://cdn/a.mp4", queue.ModeAudio)
	keptDub := testsupport.NewDubbing(t, store, cfg, "https://cdn/a.mp4", queue.ModeAudio)
	if err := store.ClaimCompositeDubbing(ctx, failedDub.ID); err != nil {
		t.Fatalf("claim dub: %v", err)
	}
	if err := store.FailCompositeDubbing(ctx, failedDub.ID, "boom"); err != nil {
		t.Fatalf("fail dub: %v", err)
	}

	n, err := store.PurgeFailedVocalRemovals(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected one vocal removal purged, got %d (%v)", n, err)
	}
	n, err = store.PurgeFailedCompositeDubbings(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected one dubbing purged, got %d (%v)", n, err)
	}

	remaining, err := store.ListVocalRemovals(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 3 {
		t.Fatalf("expected 3 remaining vocal removals, got %d", len(remaining))
	}
	if gone, _ := store.GetCompositeDubbing(ctx, failedDub.ID); gone != nil {
		t.Fatalf("expected failed dubbing deleted")
	}
	if kept, _ := store.GetCompositeDubbing(ctx, keptDub.ID); kept == nil {
		t.Fatalf("expected pending dubbing kept")
	}

	again, created, err := store.EnqueueVocalRemoval(ctx, "failed", "failed")
	if err != nil || !created || again.Status != queue.StatusPending {
		t.Fatalf("expected purged url to be admitted again, got %+v created=%v err=%v", again, created, err)
	}
}

func TestCacheEntriesAreInsertOnly(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	entry := queue.CacheEntry{URLHash: "k", Kind: queue.CacheMuteVideo, SourceURL: "u", Path: "/cache/k_mute.mp4"}
	inserted, err := store.InsertCacheEntry(ctx, entry)
	if err != nil || !inserted {
		t.Fatalf("expected insert, got %v %v", inserted, err)
	}
	entry.Path = "/elsewhere.mp4"
	inserted, err = store.InsertCacheEntry(ctx, entry)
	if err != nil || inserted {
		t.Fatalf("expected second insert to be ignored, got %v %v", inserted, err)
	}
	got, err := store.GetCacheEntry(ctx, "k", queue.CacheMuteVideo)
	if err != nil || got == nil || got.Path != "/cache/k_mute.mp4" {
		t.Fatalf("expected original row, got %+v %v", got, err)
	}
	if other, _ := store.GetCacheEntry(ctx, "k", queue.CacheBackgroundAudio); other != nil {
		t.Fatalf("kinds must not share rows")
	}
}

func TestReplaceRecommendations(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if err := store.UpsertSeason(ctx, queue.Season{ID: "s1", CartoonID: "c1", Number: 1, AllJSONURL: "https://cdn/s1/all.json", IsActive: true}); err != nil {
		t.Fatalf("upsert season: %v", err)
	}
	thumb := "https://cdn/s1/ep1/t.jpg"
	first := []queue.RecommendedClip{
		{SeasonID: "s1", EpisodeName: "ep1", ClipPath: "ep1/a.mp4", VideoURL: "https://cdn/s1/ep1/a.mp4", Thumbnail: &thumb},
		{SeasonID: "s1", EpisodeName: "ep1", ClipPath: "ep1/b.mp4", VideoURL: "https://cdn/s1/ep1/b.mp4"},
	}
	if err := store.ReplaceRecommendations(ctx, first); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := store.ReplaceRecommendations(ctx, first[1:]); err != nil {
		t.Fatalf("replace again: %v", err)
	}
	clips, err := store.ListRecommendations(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(clips) != 1 || clips[0].ClipPath != "ep1/b.mp4" || clips[0].SortOrder != 0 || clips[0].Thumbnail != nil {
		t.Fatalf("unexpected recommendations %+v", clips)
	}
	count, err := store.CountRecommendations(ctx)
	if err != nil || count != 1 {
		t.Fatalf("expected count 1, got %d (%v)", count, err)
	}
	active, err := store.ActiveSeasons(ctx)
	if err != nil || len(active) != 1 {
		t.Fatalf("expected one active season, got %d (%v)", len(active), err)
	}
}

func TestStatsGroupsByKind(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	if _, _, err := store.EnqueueVocalRemoval(ctx, "u", "h"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	testsupport.NewDubbing(t, store, cfg, "u", queue.ModeAudio)
	testsupport.NewDubbing(t, store, cfg, "u", queue.ModeVideo)

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats[queue.KindVocalRemoval][queue.StatusPending] != 1 || stats[queue.KindCompositeDubbing][queue.StatusPending] != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	health, err := store.Health(ctx)
	if err != nil || health.Total != 3 || health.Pending != 3 {
		t.Fatalf("unexpected health %+v (%v)", health, err)
	}
}
