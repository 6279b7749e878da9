package daemon

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"reel/internal/acquisition"
	"reel/internal/logging"
	"reel/internal/notifications"
	"reel/internal/queue"
)

// Add validates a video URL and enqueues it for acquisition. The boolean
// reports whether a new item was created; re-adding a URL that is still
// active returns the existing item instead of a duplicate.
func (d *Daemon) Add(ctx context.Context, rawURL string) (*queue.Item, bool, error) {
	if d.store == nil {
		return nil, false, errors.New("queue store unavailable")
	}
	trimmed := strings.TrimSpace(rawURL)
	if err := acquisition.ValidateURL(trimmed); err != nil {
		return nil, false, err
	}
	existing, err := d.store.FindBySourceURL(ctx, trimmed)
	if err != nil {
		return nil, false, err
	}
	if existing != nil && existing.IsActive() {
		d.logger.Info("url already queued",
			logging.Int64(logging.FieldItemID, existing.ID),
			logging.String("source_url", trimmed))
		return existing, false, nil
	}
	item, err := d.store.NewItem(ctx, trimmed)
	if err != nil {
		return nil, false, fmt.Errorf("enqueue url: %w", err)
	}
	d.logger.Info("url queued",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String("source_url", trimmed))
	return item, true, nil
}

// ListQueue returns queue items filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Item, error) {
	if d.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	if len(statuses) == 0 {
		return d.store.List(ctx)
	}
	return d.store.List(ctx, statuses...)
}

// GetQueueItem fetches a single queue item by identifier.
func (d *Daemon) GetQueueItem(ctx context.Context, id int64) (*queue.Item, error) {
	if d.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	return d.store.GetByID(ctx, id)
}

// ClearQueue removes all queue items.
func (d *Daemon) ClearQueue(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return d.store.Clear(ctx)
}

// ClearCompleted removes only completed queue items.
func (d *Daemon) ClearCompleted(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return d.store.ClearCompleted(ctx)
}

// ClearFailed removes only failed queue items.
func (d *Daemon) ClearFailed(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return d.store.ClearFailed(ctx)
}

// ResetStuck transitions in-flight items back to their resume statuses.
func (d *Daemon) ResetStuck(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return d.store.ResetStuckProcessing(ctx)
}

// RetryFailed resets failed items (optionally a subset) back to pending.
func (d *Daemon) RetryFailed(ctx context.Context, ids []int64) (int64, error) {
	if d.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return d.store.RetryFailed(ctx, ids...)
}

// StopQueueItems marks the given items failed with a user-stop reason.
// Completed and already-failed items are skipped. The workflow manager
// discards in-flight stage results for stopped items when they finish.
func (d *Daemon) StopQueueItems(ctx context.Context, ids []int64) (int64, error) {
	if d.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	var updated int64
	for _, id := range ids {
		stopped, err := d.store.StopItems(ctx, id)
		if err != nil {
			return updated, fmt.Errorf("persist stop for item %d: %w", id, err)
		}
		if stopped == 0 {
			continue
		}
		updated += stopped
		d.logger.Info("queue item stopped",
			logging.Int64(logging.FieldItemID, id),
			logging.String(logging.FieldEventType, "queue_item_stopped"))
	}
	return updated, nil
}

// RemoveQueueItems deletes the given items from the queue.
func (d *Daemon) RemoveQueueItems(ctx context.Context, ids []int64) (int64, error) {
	if d.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	var removed int64
	for _, id := range ids {
		ok, err := d.store.Remove(ctx, id)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// QueueHealth returns aggregate queue diagnostics.
func (d *Daemon) QueueHealth(ctx context.Context) (queue.HealthSummary, error) {
	if d.store == nil {
		return queue.HealthSummary{}, errors.New("queue store unavailable")
	}
	return d.store.Health(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	if d.store == nil {
		return queue.DatabaseHealth{}, errors.New("queue store unavailable")
	}
	return d.store.CheckHealth(ctx)
}

// TestNotification publishes a test event using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.Publish(ctx, notifications.EventTest, notifications.Payload{}); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
