package queue

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ResetStuckProcessing resets items in processing states back to the start of their current stage.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = CASE status
             WHEN ? THEN ?
             WHEN ? THEN ?
             ELSE status
         END,
             progress_stage = 'Reset from stuck processing',
             progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (?, ?)`,
		StatusAcquiring, StatusPending,
		StatusOrganizing, StatusAcquired,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusAcquiring,
		StatusOrganizing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck items: %w", err)
	}
	return res.RowsAffected()
}

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight item.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE queue_items SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing returns items stuck in processing back to the start
// of their current stage when heartbeats expire. With no statuses given every
// processing status is eligible; otherwise only the listed ones are reclaimed.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time, statuses ...Status) (int64, error) {
	transitions := processingRollbackTransitions()
	if len(statuses) > 0 {
		wanted := make(map[Status]struct{}, len(statuses))
		for _, status := range statuses {
			wanted[status] = struct{}{}
		}
		filtered := make([]statusTransition, 0, len(transitions))
		for _, transition := range transitions {
			if _, ok := wanted[transition.from]; ok {
				filtered = append(filtered, transition)
			}
		}
		transitions = filtered
	}
	if len(transitions) == 0 {
		return 0, nil
	}

	var query strings.Builder
	query.WriteString(`UPDATE queue_items SET status = CASE status`)
	args := make([]any, 0, len(transitions)*3+2)
	for _, transition := range transitions {
		query.WriteString(` WHEN ? THEN ?`)
		args = append(args, transition.from, transition.to)
	}
	query.WriteString(` ELSE status END,
            progress_stage = 'Reclaimed from stale processing',
            progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
        WHERE status IN (`)
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano))
	query.WriteString(makePlaceholders(len(transitions)))
	query.WriteString(`) AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`)
	for _, transition := range transitions {
		args = append(args, transition.from)
	}
	args = append(args, cutoff.UTC().Format(time.RFC3339Nano))

	res, err := s.execWithRetry(ctx, query.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale items: %w", err)
	}
	return res.RowsAffected()
}

// StopItems fails the given items with the user-stop reason. Completed and
// already-failed items are left untouched. The workflow manager checks the
// review reason to discard in-flight stage results for stopped items.
func (s *Store) StopItems(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+7)
	args = append(args,
		StatusFailed,
		UserStopMessage,
		UserStopMessage,
		UserStopReason,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, StatusCompleted, StatusFailed)

	query := `UPDATE queue_items
        SET status = ?, error_message = ?, progress_stage = 'Failed',
            progress_percent = 0, progress_message = ?, last_heartbeat = NULL,
            needs_review = 1, review_reason = ?, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status NOT IN (?, ?)`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("stop items: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed items back to pending for reprocessing.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE queue_items
            SET status = ?, progress_stage = 'Retry requested', progress_percent = 0,
                progress_message = NULL, error_message = NULL, needs_review = 0,
                review_reason = NULL, updated_at = ?
            WHERE status = ?`,
			StatusPending,
			time.Now().UTC().Format(time.RFC3339Nano),
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed items: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, StatusPending, time.Now().UTC().Format(time.RFC3339Nano))
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE queue_items
        SET status = ?, progress_stage = 'Retry requested', progress_percent = 0,
            progress_message = NULL, error_message = NULL, needs_review = 0,
            review_reason = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status = '` + string(StatusFailed) + `'`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected items: %w", err)
	}
	return res.RowsAffected()
}
