package workflow

import (
	"microlesson/internal/queue"
	"microlesson/internal/stage"
)

// StageSet bundles the concrete workflow handlers the manager orchestrates.
type StageSet struct {
	Transcriber  stage.Handler
	Analyzer     stage.Handler
	ScriptWriter stage.Handler
	Segmenter    stage.Handler
	Synthesizer  stage.Handler
	Renderer     stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
}

// ConfigureStages registers the concrete stage handlers the workflow will run.
// Stages with a nil handler are skipped; videos whose status starts a skipped
// stage stay queued until a handler is registered.
func (m *Manager) ConfigureStages(set StageSet) {
	definitions := []pipelineStage{
		{
			name:             "transcriber",
			handler:          set.Transcriber,
			startStatus:      queue.StatusPending,
			processingStatus: queue.StatusTranscribing,
			doneStatus:       queue.StatusTranscribed,
		},
		{
			name:             "analyzer",
			handler:          set.Analyzer,
			startStatus:      queue.StatusTranscribed,
			processingStatus: queue.StatusAnalyzing,
			doneStatus:       queue.StatusAnalyzed,
		},
		{
			name:             "script-writer",
			handler:          set.ScriptWriter,
			startStatus:      queue.StatusAnalyzed,
			processingStatus: queue.StatusScripting,
			doneStatus:       queue.StatusScripted,
		},
		{
			name:             "segmenter",
			handler:          set.Segmenter,
			startStatus:      queue.StatusScripted,
			processingStatus: queue.StatusSegmenting,
			doneStatus:       queue.StatusSegmented,
		},
		{
			name:             "synthesizer",
			handler:          set.Synthesizer,
			startStatus:      queue.StatusSegmented,
			processingStatus: queue.StatusSynthesizing,
			doneStatus:       queue.StatusSynthesized,
		},
		{
			name:             "renderer",
			handler:          set.Renderer,
			startStatus:      queue.StatusSynthesized,
			processingStatus: queue.StatusRendering,
			doneStatus:       queue.StatusCompleted,
		},
	}

	stages := make([]pipelineStage, 0, len(definitions))
	stageByStart := make(map[queue.Status]pipelineStage, len(definitions))
	statusOrder := make([]queue.Status, 0, len(definitions))
	processing := make([]queue.Status, 0, len(definitions))
	for _, def := range definitions {
		if def.handler == nil {
			continue
		}
		stages = append(stages, def)
		stageByStart[def.startStatus] = def
		statusOrder = append(statusOrder, def.startStatus)
		processing = append(processing, def.processingStatus)
	}

	m.mu.Lock()
	m.stages = stages
	m.stageByStart = stageByStart
	m.statusOrder = statusOrder
	m.processingStatuses = processing
	m.mu.Unlock()
}

func (m *Manager) stageForStatus(status queue.Status) (pipelineStage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stg, ok := m.stageByStart[status]
	return stg, ok
}
