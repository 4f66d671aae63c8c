package queue

import (
	"database/sql"
	"errors"
	"time"
)

const videoColumns = "id, title, source_type, source_path, source_url, mime_type, file_size_bytes, width, height, duration_seconds, subject_area, status, error_message, created_at, updated_at, progress_stage, progress_percent, progress_message, audio_path, transcript_json, keypoints_json, script_json, visual_cues_json, outputs_json, last_heartbeat"

const segmentColumns = "id, video_id, sequence, phase, start_time, end_time, script_text, anchored, confidence, status, audio_path, audio_duration, output_path, error_message, created_at, updated_at"

func scanVideo(scanner interface{ Scan(dest ...any) error }) (*Video, error) {
	var (
		id               int64
		title            sql.NullString
		sourceType       string
		sourcePath       sql.NullString
		sourceURL        sql.NullString
		mimeType         sql.NullString
		fileSizeBytes    sql.NullInt64
		width            sql.NullInt64
		height           sql.NullInt64
		durationSeconds  sql.NullFloat64
		subjectArea      sql.NullString
		statusStr        string
		errorMessage     sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		progressStage    sql.NullString
		progressPercent  sql.NullFloat64
		progressMessage  sql.NullString
		audioPath        sql.NullString
		transcriptJSON   sql.NullString
		keypointsJSON    sql.NullString
		scriptJSON       sql.NullString
		visualCuesJSON   sql.NullString
		outputsJSON      sql.NullString
		lastHeartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&title,
		&sourceType,
		&sourcePath,
		&sourceURL,
		&mimeType,
		&fileSizeBytes,
		&width,
		&height,
		&durationSeconds,
		&subjectArea,
		&statusStr,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&audioPath,
		&transcriptJSON,
		&keypointsJSON,
		&scriptJSON,
		&visualCuesJSON,
		&outputsJSON,
		&lastHeartbeatRaw,
	); err != nil {
		return nil, err
	}

	video := &Video{
		ID:              id,
		Title:           title.String,
		SourceType:      sourceType,
		SourcePath:      sourcePath.String,
		SourceURL:       sourceURL.String,
		MimeType:        mimeType.String,
		FileSizeBytes:   fileSizeBytes.Int64,
		Width:           int(width.Int64),
		Height:          int(height.Int64),
		DurationSeconds: durationSeconds.Float64,
		SubjectArea:     subjectArea.String,
		Status:          Status(statusStr),
		ErrorMessage:    errorMessage.String,
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
		AudioPath:       audioPath.String,
		TranscriptJSON:  transcriptJSON.String,
		KeypointsJSON:   keypointsJSON.String,
		ScriptJSON:      scriptJSON.String,
		VisualCuesJSON:  visualCuesJSON.String,
		OutputsJSON:     outputsJSON.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		video.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		video.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			video.LastHeartbeat = &heartbeat
		}
	}
	return video, nil
}

func scanSegment(scanner interface{ Scan(dest ...any) error }) (*Segment, error) {
	var (
		id            int64
		videoID       int64
		sequence      int
		phase         string
		startTime     sql.NullFloat64
		endTime       sql.NullFloat64
		scriptText    sql.NullString
		anchored      sql.NullInt64
		confidence    sql.NullFloat64
		statusStr     string
		audioPath     sql.NullString
		audioDuration sql.NullFloat64
		outputPath    sql.NullString
		errorMessage  sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&videoID,
		&sequence,
		&phase,
		&startTime,
		&endTime,
		&scriptText,
		&anchored,
		&confidence,
		&statusStr,
		&audioPath,
		&audioDuration,
		&outputPath,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	seg := &Segment{
		ID:            id,
		VideoID:       videoID,
		Sequence:      sequence,
		Phase:         phase,
		StartTime:     startTime.Float64,
		EndTime:       endTime.Float64,
		ScriptText:    scriptText.String,
		Anchored:      anchored.Int64 != 0,
		Confidence:    confidence.Float64,
		Status:        SegmentStatus(statusStr),
		AudioPath:     audioPath.String,
		AudioDuration: audioDuration.Float64,
		OutputPath:    outputPath.String,
		ErrorMessage:  errorMessage.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		seg.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		seg.UpdatedAt = updated
	}
	return seg, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	v := value.UTC().Format(time.RFC3339Nano)
	return v
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
