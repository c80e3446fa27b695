package queue

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const unknownFailure = "unknown error"

func failureMessage(message string) string {
	if strings.TrimSpace(message) == "" {
		return unknownFailure
	}
	return message
}

func claimResult(res sql.Result, key any) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %v", ErrNotClaimed, key)
	}
	return nil
}

// checkTerminal resolves a terminal UPDATE that matched no processing row:
// the same terminal state already stored is success, anything else is an error.
func (s *Store) checkTerminal(ctx context.Context, res sql.Result, target Status, current func() (Status, bool, error)) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("terminal rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	status, found, err := current()
	if err != nil {
		return err
	}
	if !found {
		return ErrJobNotFound
	}
	if status == target {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, status, target)
}

// statusFilter appends a status IN (...) clause when statuses are given.
func statusFilter(base string, statuses []Status) (string, []any, error) {
	if len(statuses) == 0 {
		return base, nil, nil
	}
	query, args, err := sqlx.In(base+" WHERE status IN (?)", statuses)
	if err != nil {
		return "", nil, fmt.Errorf("build status filter: %w", err)
	}
	return query, args, nil
}
