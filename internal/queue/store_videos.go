package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// NewUpload inserts a new video sourced from a local file upload.
func (s *Store) NewUpload(ctx context.Context, title, sourcePath string) (*Video, error) {
	if sourcePath == "" {
		return nil, errors.New("source path required")
	}
	return s.insertVideo(ctx, title, "upload", sourcePath, "")
}

// NewRemote inserts a new video sourced from a remote URL awaiting fetch.
func (s *Store) NewRemote(ctx context.Context, title, sourceURL string) (*Video, error) {
	if sourceURL == "" {
		return nil, errors.New("source url required")
	}
	return s.insertVideo(ctx, title, "remote-url", "", sourceURL)
}

func (s *Store) insertVideo(ctx context.Context, title, sourceType, sourcePath, sourceURL string) (*Video, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO source_videos (
            title, source_type, source_path, source_url, status, created_at, updated_at,
            progress_stage, progress_percent, progress_message
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableString(title),
		sourceType,
		nullableString(sourcePath),
		nullableString(sourceURL),
		StatusPending,
		timestamp,
		timestamp,
		nil,
		0.0,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("insert video: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a source video by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Video, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM source_videos WHERE id = ?`, id)
	video, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	return video, nil
}

// FindBySourcePath returns the first video matching a source path.
func (s *Store) FindBySourcePath(ctx context.Context, sourcePath string) (*Video, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+videoColumns+` FROM source_videos WHERE source_path = ? ORDER BY id LIMIT 1`,
		sourcePath,
	)
	video, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by source path: %w", err)
	}
	return video, nil
}

// Update persists changes to an existing video row.
func (s *Store) Update(ctx context.Context, video *Video) error {
	if video == nil {
		return errors.New("video is nil")
	}
	video.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE source_videos
         SET title = ?, source_type = ?, source_path = ?, source_url = ?, mime_type = ?,
             file_size_bytes = ?, width = ?, height = ?, duration_seconds = ?, subject_area = ?,
             status = ?, error_message = ?, updated_at = ?,
             progress_stage = ?, progress_percent = ?, progress_message = ?,
             audio_path = ?, transcript_json = ?, keypoints_json = ?, script_json = ?,
             visual_cues_json = ?, outputs_json = ?, last_heartbeat = ?
         WHERE id = ?`,
		nullableString(video.Title),
		video.SourceType,
		nullableString(video.SourcePath),
		nullableString(video.SourceURL),
		nullableString(video.MimeType),
		video.FileSizeBytes,
		video.Width,
		video.Height,
		video.DurationSeconds,
		nullableString(video.SubjectArea),
		video.Status,
		nullableString(video.ErrorMessage),
		video.UpdatedAt.Format(time.RFC3339Nano),
		nullableString(video.ProgressStage),
		video.ProgressPercent,
		nullableString(video.ProgressMessage),
		nullableString(video.AudioPath),
		nullableString(video.TranscriptJSON),
		nullableString(video.KeypointsJSON),
		nullableString(video.ScriptJSON),
		nullableString(video.VisualCuesJSON),
		nullableString(video.OutputsJSON),
		nullableTime(video.LastHeartbeat),
		video.ID,
	); err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	return nil
}

// VideosByStatus returns videos matching a status ordered by creation time.
func (s *Store) VideosByStatus(ctx context.Context, status Status) ([]*Video, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+videoColumns+` FROM source_videos WHERE status = ? ORDER BY created_at`, status)
	if err != nil {
		return nil, fmt.Errorf("query by status: %w", err)
	}
	defer rows.Close()

	var videos []*Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}

// List returns videos filtered by status set (or all videos when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Video, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + videoColumns + ` FROM source_videos`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var videos []*Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}

// NextForStatuses returns the oldest video matching any of the provided statuses.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Video, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}

	query := `SELECT ` + videoColumns + ` FROM source_videos WHERE status IN (` + placeholders + `) ORDER BY created_at LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	video, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return video, nil
}

// ClaimForProcessing atomically moves a video from its stage-start status to
// the corresponding processing status. Returns false when another worker has
// already claimed the row or its status changed in the meantime.
func (s *Store) ClaimForProcessing(ctx context.Context, id int64, from, to Status) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE source_videos SET status = ?, last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to,
		now,
		now,
		id,
		from,
	)
	if err != nil {
		return false, fmt.Errorf("claim video: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Remove deletes a video (and its segments via cascade) by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM source_videos WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete video: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearCompleted removes only completed videos from the queue.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM source_videos WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes only failed videos from the queue.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM source_videos WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all videos from the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM source_videos`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}
