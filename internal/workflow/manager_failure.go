package workflow

import (
	"context"
	"errors"
	"strings"

	"reel/internal/logging"
	"reel/internal/queue"
)

func (m *Manager) handleStageFailure(ctx context.Context, stageName string, item *queue.Item, stageErr error) {
	base := m.logger
	if base == nil {
		base = logging.NewNop()
	}
	logger := m.stageLogger(ctx, base, stageName, item).With(logging.String(logging.FieldComponent, "workflow-manager"))

	queue.MarkFailure(item, stageErr)

	logger.Error("stage failed", logging.Args(
		logging.String("resolved_status", string(queue.StatusFailed)),
		logging.String("error_message", strings.TrimSpace(item.ErrorMessage)),
		logging.Alert("stage_failure"),
		logging.Bool("needs_review", item.NeedsReview),
		logging.Error(stageErr),
		logging.String(logging.FieldEventType, "stage_failure"),
	)...)

	if err := m.store.Update(ctx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not update stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}

	m.setLastItem(item)
	m.notifyStageError(ctx, stageName, item, stageErr)
	m.checkQueueCompletion(ctx)
}
