package queue

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

const dubbingColumns = "id, user_id, source_url, media_path, mode, status, output_path, error_message, is_public, " +
	"caption_text, translation, thumbnail, duration, created_at, updated_at"

// NewCompositeDubbing inserts a pending job for one user submission. Every
// call creates a new record.
func (s *Store) NewCompositeDubbing(ctx context.Context, sub DubbingSubmission) (*CompositeDubbingJob, error) {
	ctx = ensureContext(ctx)
	if sub.Request == nil {
		return nil, fmt.Errorf("new composite dubbing: request is required")
	}
	if strings.TrimSpace(sub.SourceURL) == "" {
		return nil, fmt.Errorf("new composite dubbing: source url is required")
	}
	if strings.TrimSpace(sub.Request.MediaPath()) == "" {
		return nil, fmt.Errorf("new composite dubbing: media path is required")
	}

	now := s.timestamp()
	job := &CompositeDubbingJob{
		UserID:          strings.TrimSpace(sub.UserID),
		SourceURL:       strings.TrimSpace(sub.SourceURL),
		MediaPath:       sub.Request.MediaPath(),
		Mode:            sub.Request.Mode(),
		Status:          StatusPending,
		IsPublic:        sub.IsPublic,
		DisplayMetadata: sub.Display,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var id int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.NamedExecContext(ctx, `INSERT INTO composite_dubbing_jobs
			(user_id, source_url, media_path, mode, status, is_public, caption_text, translation, thumbnail, duration, created_at, updated_at)
			VALUES (:user_id, :source_url, :media_path, :mode, :status, :is_public, :caption_text, :translation, :thumbnail, :duration, :created_at, :updated_at)`,
			job)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("new composite dubbing: %w", err)
	}
	job.ID = id
	return job, nil
}

// GetCompositeDubbing fetches a job by id. It returns nil, nil when absent.
func (s *Store) GetCompositeDubbing(ctx context.Context, id int64) (*CompositeDubbingJob, error) {
	ctx = ensureContext(ctx)
	var job CompositeDubbingJob
	found, err := getOne(ctx, s.db, &job, "SELECT "+dubbingColumns+" FROM composite_dubbing_jobs WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("get composite dubbing: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &job, nil
}

// PendingCompositeDubbings lists pending jobs in insertion order.
func (s *Store) PendingCompositeDubbings(ctx context.Context) ([]*CompositeDubbingJob, error) {
	return s.ListCompositeDubbings(ctx, StatusPending)
}

// ListCompositeDubbings returns jobs filtered by status (all when none given) in insertion order.
func (s *Store) ListCompositeDubbings(ctx context.Context, statuses ...Status) ([]*CompositeDubbingJob, error) {
	ctx = ensureContext(ctx)
	query, args, err := statusFilter("SELECT "+dubbingColumns+" FROM composite_dubbing_jobs", statuses)
	if err != nil {
		return nil, err
	}
	var jobs []*CompositeDubbingJob
	if err := s.db.SelectContext(ctx, &jobs, s.db.Rebind(query+" ORDER BY id"), args...); err != nil {
		return nil, fmt.Errorf("list composite dubbings: %w", err)
	}
	return jobs, nil
}

// ListPublicCompositeDubbings returns completed public jobs, newest first.
func (s *Store) ListPublicCompositeDubbings(ctx context.Context, limit int) ([]*CompositeDubbingJob, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 50
	}
	var jobs []*CompositeDubbingJob
	if err := s.db.SelectContext(ctx, &jobs,
		"SELECT "+dubbingColumns+" FROM composite_dubbing_jobs WHERE is_public = 1 AND status = ? ORDER BY id DESC LIMIT ?",
		StatusCompleted, limit); err != nil {
		return nil, fmt.Errorf("list public composite dubbings: %w", err)
	}
	return jobs, nil
}

// ClaimCompositeDubbing atomically moves a pending job to processing.
func (s *Store) ClaimCompositeDubbing(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE composite_dubbing_jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusProcessing, s.timestamp(), id, StatusPending)
	if err != nil {
		return fmt.Errorf("claim composite dubbing: %w", err)
	}
	return claimResult(res, "dubbing#"+strconv.FormatInt(id, 10))
}

// CompleteCompositeDubbing records the relative output path on a processing job.
func (s *Store) CompleteCompositeDubbing(ctx context.Context, id int64, outputPath string) error {
	if strings.TrimSpace(outputPath) == "" {
		return fmt.Errorf("complete composite dubbing: output path is required")
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE composite_dubbing_jobs SET status = ?, output_path = ?, error_message = NULL, updated_at = ?
		 WHERE id = ? AND status = ?`,
		StatusCompleted, outputPath, s.timestamp(), id, StatusProcessing)
	if err != nil {
		return fmt.Errorf("complete composite dubbing: %w", err)
	}
	return s.checkTerminal(ctx, res, StatusCompleted, s.dubbingStatus(ctx, id))
}

// FailCompositeDubbing records message verbatim on a processing job.
func (s *Store) FailCompositeDubbing(ctx context.Context, id int64, message string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE composite_dubbing_jobs SET status = ?, error_message = ?, output_path = NULL, updated_at = ?
		 WHERE id = ? AND status = ?`,
		StatusFailed, failureMessage(message), s.timestamp(), id, StatusProcessing)
	if err != nil {
		return fmt.Errorf("fail composite dubbing: %w", err)
	}
	return s.checkTerminal(ctx, res, StatusFailed, s.dubbingStatus(ctx, id))
}

// PurgeFailedCompositeDubbings deletes every failed dubbing record.
func (s *Store) PurgeFailedCompositeDubbings(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM composite_dubbing_jobs WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("purge failed composite dubbings: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) dubbingStatus(ctx context.Context, id int64) func() (Status, bool, error) {
	return func() (Status, bool, error) {
		job, err := s.GetCompositeDubbing(ctx, id)
		if err != nil || job == nil {
			return "", false, err
		}
		return job.Status, true, nil
	}
}
