package queue

import (
	"context"
	"fmt"
	"strings"
	"time"
)

func rollbackCaseClause() (string, []any, []any) {
	transitions := processingRollbackTransitions()
	var sb strings.Builder
	sb.WriteString("CASE status")
	caseArgs := make([]any, 0, len(transitions)*2)
	whereArgs := make([]any, 0, len(transitions))
	for _, tr := range transitions {
		sb.WriteString(" WHEN ? THEN ?")
		caseArgs = append(caseArgs, tr.from, tr.to)
		whereArgs = append(whereArgs, tr.from)
	}
	sb.WriteString(" ELSE status END")
	return sb.String(), caseArgs, whereArgs
}

// ResetStuckProcessing resets videos in processing states back to the start of their current stage.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	caseClause, caseArgs, whereArgs := rollbackCaseClause()
	args := make([]any, 0, len(caseArgs)+len(whereArgs)+1)
	args = append(args, caseArgs...)
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano))
	args = append(args, whereArgs...)

	res, err := s.execWithRetry(
		ctx,
		`UPDATE source_videos
         SET status = `+caseClause+`,
             progress_stage = 'Reset from stuck processing',
             progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (`+makePlaceholders(len(whereArgs))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck videos: %w", err)
	}
	return res.RowsAffected()
}

// UpdateHeartbeat updates the last heartbeat timestamp for an in-flight video.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE source_videos SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing returns videos stuck in processing back to the start
// of their current stage when heartbeats expire.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	caseClause, caseArgs, whereArgs := rollbackCaseClause()
	args := make([]any, 0, len(caseArgs)+len(whereArgs)+2)
	args = append(args, caseArgs...)
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano))
	args = append(args, whereArgs...)
	args = append(args, cutoff.UTC().Format(time.RFC3339Nano))

	res, err := s.execWithRetry(
		ctx,
		`UPDATE source_videos
         SET status = `+caseClause+`,
             progress_stage = 'Reclaimed from stale processing',
             progress_percent = 0, progress_message = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status IN (`+makePlaceholders(len(whereArgs))+`) AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale videos: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed videos back to pending for reprocessing.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE source_videos
            SET status = ?, progress_stage = 'Retry requested', progress_percent = 0,
                progress_message = NULL, error_message = NULL, updated_at = ?
            WHERE status = ?`,
			StatusPending,
			time.Now().UTC().Format(time.RFC3339Nano),
			StatusFailed,
		)
		if err != nil {
			return 0, fmt.Errorf("retry failed videos: %w", err)
		}
		return res.RowsAffected()
	}

	placeholders := makePlaceholders(len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, StatusPending, time.Now().UTC().Format(time.RFC3339Nano))
	for _, id := range ids {
		args = append(args, id)
	}
	query := `UPDATE source_videos
        SET status = ?, progress_stage = 'Retry requested', progress_percent = 0,
            progress_message = NULL, error_message = NULL, updated_at = ?
        WHERE id IN (` + placeholders + `) AND status = '` + string(StatusFailed) + `'`
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry selected videos: %w", err)
	}
	return res.RowsAffected()
}
