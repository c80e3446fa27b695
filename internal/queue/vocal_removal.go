package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const vocalRemovalColumns = "id, source_url, url_hash, status, output_path, error_message, created_at, updated_at"

// EnqueueVocalRemoval creates a pending job for sourceURL unless a record for
// that URL already exists, in which case the existing record is returned
// unchanged. created reports whether a new record was inserted.
//
// A failed record keeps its URL reserved until the next worker startup purge.
func (s *Store) EnqueueVocalRemoval(ctx context.Context, sourceURL, urlHash string) (*VocalRemovalJob, bool, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return nil, false, fmt.Errorf("enqueue vocal removal: source url is required")
	}
	now := s.timestamp()
	var inserted int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO vocal_removal_jobs
			(source_url, url_hash, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(source_url) DO NOTHING`,
			sourceURL, urlHash, StatusPending, now, now)
		if err != nil {
			return err
		}
		inserted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("enqueue vocal removal: %w", err)
	}
	job, err := s.GetVocalRemoval(ctx, sourceURL)
	if err != nil {
		return nil, false, err
	}
	if job == nil {
		return nil, false, fmt.Errorf("enqueue vocal removal: %w: %s", ErrJobNotFound, sourceURL)
	}
	return job, inserted > 0, nil
}

// GetVocalRemoval fetches the job for sourceURL. It returns nil, nil when absent.
func (s *Store) GetVocalRemoval(ctx context.Context, sourceURL string) (*VocalRemovalJob, error) {
	ctx = ensureContext(ctx)
	var job VocalRemovalJob
	found, err := getOne(ctx, s.db, &job,
		"SELECT "+vocalRemovalColumns+" FROM vocal_removal_jobs WHERE source_url = ?", strings.TrimSpace(sourceURL))
	if err != nil {
		return nil, fmt.Errorf("get vocal removal: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &job, nil
}

// PendingVocalRemovals lists pending jobs in insertion order.
func (s *Store) PendingVocalRemovals(ctx context.Context) ([]*VocalRemovalJob, error) {
	return s.ListVocalRemovals(ctx, StatusPending)
}

// ListVocalRemovals returns jobs filtered by status (all when none given) in insertion order.
func (s *Store) ListVocalRemovals(ctx context.Context, statuses ...Status) ([]*VocalRemovalJob, error) {
	ctx = ensureContext(ctx)
	query, args, err := statusFilter("SELECT "+vocalRemovalColumns+" FROM vocal_removal_jobs", statuses)
	if err != nil {
		return nil, err
	}
	var jobs []*VocalRemovalJob
	if err := s.db.SelectContext(ctx, &jobs, s.db.Rebind(query+" ORDER BY id"), args...); err != nil {
		return nil, fmt.Errorf("list vocal removals: %w", err)
	}
	return jobs, nil
}

// ClaimVocalRemoval atomically moves a pending job to processing. It returns
// ErrNotClaimed when the job is missing or no longer pending.
func (s *Store) ClaimVocalRemoval(ctx context.Context, sourceURL string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE vocal_removal_jobs SET status = ?, updated_at = ? WHERE source_url = ? AND status = ?`,
		StatusProcessing, s.timestamp(), sourceURL, StatusPending)
	if err != nil {
		return fmt.Errorf("claim vocal removal: %w", err)
	}
	return claimResult(res, sourceURL)
}

// CompleteVocalRemoval records the relative output path on a processing job.
// Repeating the call on a completed job is a no-op.
func (s *Store) CompleteVocalRemoval(ctx context.Context, sourceURL, outputPath string) error {
	if strings.TrimSpace(outputPath) == "" {
		return fmt.Errorf("complete vocal removal: output path is required")
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE vocal_removal_jobs SET status = ?, output_path = ?, error_message = NULL, updated_at = ?
		 WHERE source_url = ? AND status = ?`,
		StatusCompleted, outputPath, s.timestamp(), sourceURL, StatusProcessing)
	if err != nil {
		return fmt.Errorf("complete vocal removal: %w", err)
	}
	return s.checkTerminal(ctx, res, StatusCompleted, s.vocalRemovalStatus(ctx, sourceURL))
}

// FailVocalRemoval records message verbatim on a processing job. Repeating the
// call on a failed job is a no-op.
func (s *Store) FailVocalRemoval(ctx context.Context, sourceURL, message string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE vocal_removal_jobs SET status = ?, error_message = ?, output_path = NULL, updated_at = ?
		 WHERE source_url = ? AND status = ?`,
		StatusFailed, failureMessage(message), s.timestamp(), sourceURL, StatusProcessing)
	if err != nil {
		return fmt.Errorf("fail vocal removal: %w", err)
	}
	return s.checkTerminal(ctx, res, StatusFailed, s.vocalRemovalStatus(ctx, sourceURL))
}

// PurgeFailedVocalRemovals deletes every failed vocal-removal record.
func (s *Store) PurgeFailedVocalRemovals(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM vocal_removal_jobs WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("purge failed vocal removals: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) vocalRemovalStatus(ctx context.Context, sourceURL string) func() (Status, bool, error) {
	return func() (Status, bool, error) {
		job, err := s.GetVocalRemoval(ctx, sourceURL)
		if err != nil || job == nil {
			return "", false, err
		}
		return job.Status, true, nil
	}
}
