package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrSegmentNotFound indicates a segment lookup by video and sequence failed.
var ErrSegmentNotFound = errors.New("segment not found")

// ReplaceSegments deletes any existing segments for a video and inserts the
// provided set in a single transaction. Segment IDs and timestamps are
// populated on the passed slice.
func (s *Store) ReplaceSegments(ctx context.Context, videoID int64, segments []*Segment) error {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin segments tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM micro_segments WHERE video_id = ?`, videoID); err != nil {
			return fmt.Errorf("delete segments: %w", err)
		}

		for _, seg := range segments {
			if seg.Status == "" {
				seg.Status = SegmentPending
			}
			res, err := tx.ExecContext(
				ctx,
				`INSERT INTO micro_segments (
                    video_id, sequence, phase, start_time, end_time, script_text,
                    anchored, confidence, status, audio_path, audio_duration,
                    output_path, created_at, updated_at
                ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				videoID,
				seg.Sequence,
				seg.Phase,
				seg.StartTime,
				seg.EndTime,
				nullableString(seg.ScriptText),
				boolToInt(seg.Anchored),
				seg.Confidence,
				seg.Status,
				nullableString(seg.AudioPath),
				seg.AudioDuration,
				nullableString(seg.OutputPath),
				timestamp,
				timestamp,
			)
			if err != nil {
				return fmt.Errorf("insert segment %d: %w", seg.Sequence, err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("segment insert id: %w", err)
			}
			seg.ID = id
			seg.VideoID = videoID
			seg.CreatedAt = now
			seg.UpdatedAt = now
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit segments: %w", err)
		}
		return nil
	})
}

// SegmentsForVideo returns the segments of a video ordered by sequence.
func (s *Store) SegmentsForVideo(ctx context.Context, videoID int64) ([]*Segment, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+segmentColumns+` FROM micro_segments WHERE video_id = ? ORDER BY sequence`,
		videoID,
	)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	var segments []*Segment
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

// SegmentBySequence fetches one segment of a video by its sequence number.
func (s *Store) SegmentBySequence(ctx context.Context, videoID int64, sequence int) (*Segment, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+segmentColumns+` FROM micro_segments WHERE video_id = ? AND sequence = ?`,
		videoID,
		sequence,
	)
	seg, err := scanSegment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get segment: %w", err)
	}
	return seg, nil
}

// UpdateSegment persists changes to an existing segment row.
func (s *Store) UpdateSegment(ctx context.Context, seg *Segment) error {
	if seg == nil {
		return errors.New("segment is nil")
	}
	seg.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE micro_segments
         SET phase = ?, start_time = ?, end_time = ?, script_text = ?, anchored = ?,
             confidence = ?, status = ?, audio_path = ?, audio_duration = ?,
             output_path = ?, error_message = ?, updated_at = ?
         WHERE id = ?`,
		seg.Phase,
		seg.StartTime,
		seg.EndTime,
		nullableString(seg.ScriptText),
		boolToInt(seg.Anchored),
		seg.Confidence,
		seg.Status,
		nullableString(seg.AudioPath),
		seg.AudioDuration,
		nullableString(seg.OutputPath),
		nullableString(seg.ErrorMessage),
		seg.UpdatedAt.Format(time.RFC3339Nano),
		seg.ID,
	); err != nil {
		return fmt.Errorf("update segment: %w", err)
	}
	return nil
}

// ClaimSegmentRender atomically moves a segment into the rendering state.
// The claim succeeds only when the segment is in a state a render may start
// from; a segment already rendering cannot be claimed again, so concurrent
// triggers resolve to exactly one winner. Returns the claimed segment, or
// (nil, false, nil) when the segment exists but could not be claimed, or
// (nil, false, error) when the segment does not exist.
func (s *Store) ClaimSegmentRender(ctx context.Context, videoID int64, sequence int) (*Segment, bool, error) {
	seg, err := s.SegmentBySequence(ctx, videoID, sequence)
	if err != nil {
		return nil, false, err
	}
	if seg == nil {
		return nil, false, fmt.Errorf("%w: video %d sequence %d", ErrSegmentNotFound, videoID, sequence)
	}

	placeholders := makePlaceholders(len(renderClaimableStatuses))
	args := make([]any, 0, len(renderClaimableStatuses)+4)
	now := time.Now().UTC().Format(time.RFC3339Nano)
	args = append(args, SegmentRendering, now, videoID, sequence)
	for _, status := range renderClaimableStatuses {
		args = append(args, status)
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE micro_segments SET status = ?, error_message = NULL, updated_at = ?
         WHERE video_id = ? AND sequence = ? AND status IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, false, fmt.Errorf("claim segment render: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, false, nil
	}

	claimed, err := s.SegmentBySequence(ctx, videoID, sequence)
	if err != nil {
		return nil, false, err
	}
	return claimed, true, nil
}

// SegmentStats returns a count of segments grouped by status for one video.
func (s *Store) SegmentStats(ctx context.Context, videoID int64) (map[SegmentStatus]int, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT status, COUNT(1) FROM micro_segments WHERE video_id = ? GROUP BY status`,
		videoID,
	)
	if err != nil {
		return nil, fmt.Errorf("segment stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[SegmentStatus]int)
	for rows.Next() {
		var status SegmentStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}
