package workflow

import "reel/internal/queue"

// ConfigureStages registers the concrete stage handlers the workflow will run.
func (m *Manager) ConfigureStages(set StageSet) {
	stages := make([]pipelineStage, 0, 2)
	if set.Acquirer != nil {
		stages = append(stages, pipelineStage{
			name:             "acquire",
			handler:          set.Acquirer,
			startStatus:      queue.StatusPending,
			processingStatus: queue.StatusAcquiring,
			doneStatus:       queue.StatusAcquired,
		})
	}
	if set.Organizer != nil {
		stages = append(stages, pipelineStage{
			name:             "organize",
			handler:          set.Organizer,
			startStatus:      queue.StatusAcquired,
			processingStatus: queue.StatusOrganizing,
			doneStatus:       queue.StatusCompleted,
		})
	}

	var p *pipeline
	if len(stages) > 0 {
		p = newPipeline(stages)
	}

	m.mu.Lock()
	m.pipeline = p
	m.mu.Unlock()
}
