package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"microlesson/internal/config"
	"microlesson/internal/notifications"
	"microlesson/internal/queue"
)

// Manager coordinates queue processing using registered stage handlers.
type Manager struct {
	cfg          *config.Config
	store        *queue.Store
	logger       *slog.Logger
	pollInterval time.Duration
	workers      int

	heartbeat *HeartbeatMonitor
	notifier  notifications.Service

	stages             []pipelineStage
	stageByStart       map[queue.Status]pipelineStage
	statusOrder        []queue.Status
	processingStatuses []queue.Status

	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	lastErr   error
	lastVideo *queue.Video
}

// NewManager constructs a new workflow manager.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	workers := cfg.Workflow.Workers
	if workers < 1 {
		workers = 1
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		pollInterval: time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		workers:      workers,
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		notifier: notifications.NewService(cfg),
	}
}

// SetNotifier replaces the notification service. Primarily for tests.
func (m *Manager) SetNotifier(svc notifications.Service) {
	if svc == nil {
		return
	}
	m.mu.Lock()
	m.notifier = svc
	m.mu.Unlock()
}

func (m *Manager) notificationService() notifications.Service {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.notifier
}
