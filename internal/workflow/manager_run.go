package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"microlesson/internal/logging"
	"microlesson/internal/queue"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.statusOrder) == 0 {
		m.mu.Unlock()
		return errors.New("workflow stages not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	workers := m.workers
	m.wg.Add(workers)
	m.mu.Unlock()

	for i := 0; i < workers; i++ {
		go m.runWorker(runCtx, i)
	}

	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runWorker(ctx context.Context, workerID int) {
	defer m.wg.Done()
	logger := m.workerLogger(workerID)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// One worker is enough to sweep expired heartbeats.
		if workerID == 0 {
			if err := m.heartbeat.ReclaimStaleVideos(ctx, logger); err != nil {
				logger.Warn("reclaim stale processing failed; stuck videos may remain",
					logging.Error(err),
					logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
					logging.String(logging.FieldErrorHint, "check queue database access"),
				)
			}
		}

		video, err := m.nextVideo(ctx)
		if err != nil {
			m.handleNextVideoError(ctx, logger, err)
			continue
		}
		if video == nil {
			m.waitForVideoOrShutdown(ctx)
			continue
		}

		if err := m.processVideo(ctx, logger, video); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

func (m *Manager) nextVideo(ctx context.Context) (*queue.Video, error) {
	m.mu.RLock()
	statuses := m.statusOrder
	m.mu.RUnlock()
	if len(statuses) == 0 {
		return nil, nil
	}
	return m.store.NextForStatuses(ctx, statuses...)
}

func (m *Manager) handleNextVideoError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to fetch next video",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_fetch_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	select {
	case <-ctx.Done():
		return
	case <-time.After(time.Duration(m.cfg.Workflow.ErrorRetryInterval) * time.Second):
	}
}

func (m *Manager) waitForVideoOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(m.pollInterval):
	}
}
