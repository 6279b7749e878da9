package workflow

import (
	"log/slog"

	"reel/internal/queue"
	"reel/internal/stage"
)

// StageSet bundles the concrete workflow handlers the manager orchestrates.
type StageSet struct {
	Acquirer  stage.Handler
	Organizer stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
}

type pipeline struct {
	stages             []pipelineStage
	statusOrder        []queue.Status
	stageByStart       map[queue.Status]pipelineStage
	processingStatuses []queue.Status
}

func newPipeline(stages []pipelineStage) *pipeline {
	p := &pipeline{stages: stages}
	p.stageByStart = make(map[queue.Status]pipelineStage, len(stages))
	p.statusOrder = make([]queue.Status, 0, len(stages))
	seenProcessing := make(map[queue.Status]struct{})
	for _, stg := range stages {
		p.stageByStart[stg.startStatus] = stg
		p.statusOrder = append(p.statusOrder, stg.startStatus)
		if stg.processingStatus != "" {
			if _, ok := seenProcessing[stg.processingStatus]; !ok {
				p.processingStatuses = append(p.processingStatuses, stg.processingStatus)
				seenProcessing[stg.processingStatus] = struct{}{}
			}
		}
	}
	return p
}

func (p *pipeline) stageForStatus(status queue.Status) (pipelineStage, bool) {
	if p == nil {
		return pipelineStage{}, false
	}
	stg, ok := p.stageByStart[status]
	return stg, ok
}

// loggerAware lets stage handlers receive the per-item logger before Prepare
// runs, so their own log lines land in the item log file.
type loggerAware interface {
	SetLogger(*slog.Logger)
}
