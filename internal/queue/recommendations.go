package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// UpsertSeason creates or replaces a season row.
func (s *Store) UpsertSeason(ctx context.Context, season Season) error {
	season.ID = strings.TrimSpace(season.ID)
	if season.ID == "" {
		return fmt.Errorf("upsert season: id is required")
	}
	if season.CreatedAt.IsZero() {
		season.CreatedAt = s.timestamp()
	}
	ctx = ensureContext(ctx)
	err := retryOnBusy(ctx, func() error {
		_, err := s.db.NamedExecContext(ctx, `INSERT INTO seasons (id, cartoon_id, number, all_json_url, is_active, created_at)
			VALUES (:id, :cartoon_id, :number, :all_json_url, :is_active, :created_at)
			ON CONFLICT(id) DO UPDATE SET
				cartoon_id = excluded.cartoon_id,
				number = excluded.number,
				all_json_url = excluded.all_json_url,
				is_active = excluded.is_active`, season)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert season: %w", err)
	}
	return nil
}

// ListSeasons returns every season ordered by cartoon and number.
func (s *Store) ListSeasons(ctx context.Context) ([]Season, error) {
	var seasons []Season
	if err := s.db.SelectContext(ensureContext(ctx), &seasons,
		`SELECT id, cartoon_id, number, all_json_url, is_active, created_at FROM seasons ORDER BY cartoon_id, number, id`); err != nil {
		return nil, fmt.Errorf("list seasons: %w", err)
	}
	return seasons, nil
}

// ActiveSeasons returns enabled seasons.
func (s *Store) ActiveSeasons(ctx context.Context) ([]Season, error) {
	var seasons []Season
	if err := s.db.SelectContext(ensureContext(ctx), &seasons,
		`SELECT id, cartoon_id, number, all_json_url, is_active, created_at FROM seasons WHERE is_active = 1 ORDER BY cartoon_id, number, id`); err != nil {
		return nil, fmt.Errorf("active seasons: %w", err)
	}
	return seasons, nil
}

// CountRecommendations returns the number of stored recommended clips.
func (s *Store) CountRecommendations(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ensureContext(ctx), &count, `SELECT COUNT(1) FROM recommended_clips`); err != nil {
		return 0, fmt.Errorf("count recommendations: %w", err)
	}
	return count, nil
}

// ListRecommendations returns the current recommendation set in display order.
func (s *Store) ListRecommendations(ctx context.Context) ([]RecommendedClip, error) {
	var clips []RecommendedClip
	if err := s.db.SelectContext(ensureContext(ctx), &clips,
		`SELECT id, season_id, episode_name, clip_path, video_url, thumbnail, original_text, translation_cn, duration, sort_order, created_at
		 FROM recommended_clips ORDER BY sort_order, id`); err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	return clips, nil
}

// ReplaceRecommendations swaps the whole recommendation set in one
// transaction, assigning sort_order by slice position.
func (s *Store) ReplaceRecommendations(ctx context.Context, clips []RecommendedClip) error {
	now := s.timestamp()
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM recommended_clips`); err != nil {
			return err
		}
		for i := range clips {
			clip := clips[i]
			clip.SortOrder = i
			clip.CreatedAt = now
			if _, err := tx.NamedExecContext(ctx, `INSERT INTO recommended_clips
				(season_id, episode_name, clip_path, video_url, thumbnail, original_text, translation_cn, duration, sort_order, created_at)
				VALUES (:season_id, :episode_name, :clip_path, :video_url, :thumbnail, :original_text, :translation_cn, :duration, :sort_order, :created_at)`,
				clip); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace recommendations: %w", err)
	}
	return nil
}
