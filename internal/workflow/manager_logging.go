package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"microlesson/internal/logging"
	"microlesson/internal/queue"
	"microlesson/internal/services"
)

func (m *Manager) workerLogger(workerID int) *slog.Logger {
	if m.logger == nil {
		return logging.NewNop()
	}
	return m.logger.With(
		logging.String(logging.FieldComponent, fmt.Sprintf("workflow-worker-%d", workerID)),
	)
}

func (m *Manager) stageLogger(ctx context.Context, base *slog.Logger, video *queue.Video) *slog.Logger {
	if base == nil {
		base = m.logger
	}
	if base == nil {
		base = logging.NewNop()
	}
	if video != nil {
		base = base.With(logging.Int64(logging.FieldVideoID, video.ID))
	}
	return logging.WithContext(ctx, base)
}

func withStageContext(ctx context.Context, stageName string, video *queue.Video, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if video != nil {
		ctx = services.WithVideoID(ctx, video.ID)
	}
	if stageName != "" {
		ctx = services.WithStage(ctx, stageName)
	}
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}

func deriveStageLabel(status queue.Status) string {
	if status == "" {
		return ""
	}
	parts := strings.Fields(strings.ReplaceAll(string(status), "_", " "))
	for i, part := range parts {
		if part == "" {
			continue
		}
		runes := []rune(strings.ToLower(part))
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}
