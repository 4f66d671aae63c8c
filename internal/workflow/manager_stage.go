package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"microlesson/internal/logging"
	"microlesson/internal/queue"
	"microlesson/internal/stage"
)

func (m *Manager) processVideo(ctx context.Context, workerLogger *slog.Logger, video *queue.Video) error {
	stg, ok := m.stageForStatus(video.Status)
	if !ok {
		workerLogger.Warn("no stage configured for status", logging.String("status", string(video.Status)))
		m.waitForVideoOrShutdown(ctx)
		return nil
	}

	requestID := uuid.NewString()
	stageCtx := withStageContext(ctx, stg.name, video, requestID)
	stageLogger := m.stageLogger(stageCtx, workerLogger, video)

	claimed, err := m.store.ClaimForProcessing(stageCtx, video.ID, stg.startStatus, stg.processingStatus)
	if err != nil {
		stageLogger.Error("failed to claim video for processing", logging.Error(err))
		m.setLastError(err)
		return err
	}
	if !claimed {
		// Another worker picked the video up between poll and claim.
		return nil
	}

	if err := m.transitionToProcessing(stageCtx, stg.processingStatus, video); err != nil {
		stageLogger.Error("failed to transition video to processing", logging.Error(err))
		m.setLastError(err)
		return err
	}

	return m.executeStage(stageCtx, stageLogger, stg, video)
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, video *queue.Video) error {
	stageStart := time.Now()
	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("processing_status", string(stg.processingStatus)),
		logging.String("title", strings.TrimSpace(video.Title)),
		logging.String("source_file", strings.TrimSpace(video.SourcePath)),
	)

	handler := stg.handler
	if handler == nil {
		stageLogger.Warn("missing stage handler", logging.String("stage", stg.name))
		video.Status = queue.StatusFailed
		video.ErrorMessage = fmt.Sprintf("stage %s missing handler", stg.name)
		if err := m.store.Update(ctx, video); err != nil {
			stageLogger.Error("failed to persist missing handler failure", logging.Error(err))
		}
		m.setLastError(errors.New("stage handler unavailable"))
		return errors.New("stage handler unavailable")
	}

	if err := handler.Prepare(ctx, video); err != nil {
		m.handleStageFailure(ctx, stg.name, video, err)
		m.setLastError(err)
		return err
	}
	if err := m.store.Update(ctx, video); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		stageLogger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	execErr := m.executeWithHeartbeat(ctx, handler, video)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return execErr
		}
		m.handleStageFailure(ctx, stg.name, video, execErr)
		m.setLastError(execErr)
		return execErr
	}

	if video.Status == stg.processingStatus || video.Status == "" {
		video.Status = stg.doneStatus
	}
	video.LastHeartbeat = nil
	if video.Status == queue.StatusCompleted {
		video.ProgressStage = deriveStageLabel(queue.StatusCompleted)
		if video.ProgressPercent < 100 {
			video.ProgressPercent = 100
		}
		if strings.TrimSpace(video.ProgressMessage) == "" {
			video.ProgressMessage = deriveStageLabel(queue.StatusCompleted)
		}
	}
	if err := m.store.Update(ctx, video); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}
	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("next_status", string(video.Status)),
		logging.String("progress_stage", strings.TrimSpace(video.ProgressStage)),
		logging.String("progress_message", strings.TrimSpace(video.ProgressMessage)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	if video.Status == queue.StatusCompleted {
		m.notifyLessonCompleted(ctx, stageLogger, video)
	}
	m.setLastVideo(video)
	return nil
}

// notifyLessonCompleted sends a best-effort push notification once the final
// stage lands a video in completed.
func (m *Manager) notifyLessonCompleted(ctx context.Context, logger *slog.Logger, video *queue.Video) {
	svc := m.notificationService()
	if svc == nil {
		return
	}
	segments := 0
	if stats, err := m.store.SegmentStats(ctx, video.ID); err == nil {
		segments = stats[queue.SegmentRendered]
	}
	if err := svc.NotifyLessonCompleted(ctx, video.Title, segments); err != nil {
		logger.Warn("lesson completion notification failed", logging.Error(err))
	}
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, handler stage.Handler, video *queue.Video) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, video.ID)

	execErr := handler.Execute(ctx, video)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (m *Manager) transitionToProcessing(ctx context.Context, processing queue.Status, video *queue.Video) error {
	if processing == "" {
		return errors.New("processing status must not be empty")
	}

	now := time.Now().UTC()
	video.Status = processing
	if video.ProgressStage == "" {
		video.ProgressStage = deriveStageLabel(processing)
	}
	if video.ProgressMessage == "" {
		video.ProgressMessage = fmt.Sprintf("%s started", deriveStageLabel(processing))
	}
	video.ProgressPercent = 0
	video.ErrorMessage = ""
	video.LastHeartbeat = &now

	if err := m.store.Update(ctx, video); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	m.setLastVideo(video)
	return nil
}
