package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

var requiredTables = []string{
	"schema_version",
	"vocal_removal_jobs",
	"composite_dubbing_jobs",
	"media_cache",
	"seasons",
	"recommended_clips",
}

// Stats returns job counts grouped by kind and status.
func (s *Store) Stats(ctx context.Context) (map[JobKind]map[Status]int, error) {
	ctx = ensureContext(ctx)
	var rows []struct {
		Kind   JobKind `db:"kind"`
		Status Status  `db:"status"`
		Count  int     `db:"count"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT 'vocal_removal' AS kind, status, COUNT(1) AS count FROM vocal_removal_jobs GROUP BY status
		UNION ALL
		SELECT 'composite_dubbing' AS kind, status, COUNT(1) AS count FROM composite_dubbing_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	stats := make(map[JobKind]map[Status]int, 2)
	for _, kind := range AllJobKinds() {
		stats[kind] = make(map[Status]int, 4)
	}
	for _, row := range rows {
		stats[row.Kind][row.Status] = row.Count
	}
	return stats, nil
}

// Health aggregates job state across both kinds for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for _, byStatus := range stats {
		for status, count := range byStatus {
			health.Total += count
			switch status {
			case StatusPending:
				health.Pending += count
			case StatusProcessing:
				health.Processing += count
			case StatusFailed:
				health.Failed += count
			case StatusCompleted:
				health.Completed += count
			}
		}
	}
	return health, nil
}

// CheckHealth returns diagnostic information about the job database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}
	if s.path == "" {
		return health, errors.New("queue database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat queue database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("queue database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping queue database: %w", err)
	}
	health.DatabaseReadable = true

	var tables []string
	if err := s.db.SelectContext(connCtx, &tables, "SELECT name FROM sqlite_master WHERE type = 'table'"); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("list tables: %w", err)
	}
	present := make(map[string]struct{}, len(tables))
	for _, name := range tables {
		present[name] = struct{}{}
	}
	for _, name := range requiredTables {
		if _, ok := present[name]; !ok {
			health.MissingTables = append(health.MissingTables, name)
		}
	}

	if _, ok := present["schema_version"]; ok {
		if err := s.db.GetContext(connCtx, &health.SchemaVersion, "SELECT version FROM schema_version LIMIT 1"); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("read schema version: %w", err)
		}
	}

	var integrity string
	if err := s.db.GetContext(connCtx, &integrity, "PRAGMA integrity_check"); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrity, "ok")
	return health, nil
}
