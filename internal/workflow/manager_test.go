package workflow_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"reel/internal/config"
	"reel/internal/logging"
	"reel/internal/notifications"
	"reel/internal/queue"
	"reel/internal/services"
	"reel/internal/stage"
	"reel/internal/testsupport"
	"reel/internal/workflow"
)

type stubStage struct {
	name        string
	prepareHook func(*queue.Item)
	executeHook func(*queue.Item)
	prepareErr  error
	executeErr  error
	health      stage.Health
}

func newStubStage(name string) *stubStage {
	return &stubStage{name: name, health: stage.Healthy(name)}
}

func (s *stubStage) Prepare(_ context.Context, item *queue.Item) error {
	if s.prepareHook != nil {
		s.prepareHook(item)
	}
	return s.prepareErr
}

func (s *stubStage) Execute(_ context.Context, item *queue.Item) error {
	if s.executeHook != nil {
		s.executeHook(item)
	}
	return s.executeErr
}

func (s *stubStage) HealthCheck(context.Context) stage.Health {
	return s.health
}

func workflowConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Workflow.QueuePollInterval = 0
	return cfg
}

func waitForStatus(t *testing.T, store *queue.Store, id int64, want queue.Status) *queue.Item {
	t.Helper()
	deadline := time.After(30 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for status %s", want)
		default:
		}
		updated, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if updated.Status == want {
			return updated
		}
		time.Sleep(25 * time.Millisecond)
	}
}

func TestManagerProcessesItems(t *testing.T) {
	cfg := workflowConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	acquirer := newStubStage("acquire")
	acquirer.executeHook = func(item *queue.Item) {
		item.Title = "Deep Dive"
		item.ArtifactPath = "/tmp/deep-dive.wav"
	}
	organizer := newStubStage("organize")
	organizer.executeHook = func(item *queue.Item) {
		item.FinalPath = "/library/deep-dive.wav"
	}

	notifier := &recordingNotifier{}
	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), notifier)
	mgr.ConfigureStages(workflow.StageSet{Acquirer: acquirer, Organizer: organizer})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { mgr.Stop() })

	item := testsupport.NewItem(t, store, "https://example.com/watch?v=abc123")

	updated := waitForStatus(t, store, item.ID, queue.StatusCompleted)
	if updated.Title != "Deep Dive" {
		t.Fatalf("expected title from acquire stage, got %q", updated.Title)
	}
	if updated.FinalPath != "/library/deep-dive.wav" {
		t.Fatalf("expected final path from organize stage, got %q", updated.FinalPath)
	}
	if updated.ProgressPercent < 100 {
		t.Fatalf("expected complete progress, got %v", updated.ProgressPercent)
	}
	if updated.LastHeartbeat != nil {
		t.Fatalf("expected heartbeat cleared after completion, got %v", updated.LastHeartbeat)
	}
	if strings.TrimSpace(updated.ItemLogPath) == "" {
		t.Fatal("expected item log path to be recorded")
	}
	if _, err := os.Stat(updated.ItemLogPath); err != nil {
		t.Fatalf("expected item log file on disk: %v", err)
	}

	if got := notifier.count(notifications.EventQueueStarted); got != 1 {
		t.Fatalf("expected one queue start notification, got %d", got)
	}
	deadline := time.After(10 * time.Second)
	for notifier.count(notifications.EventQueueCompleted) == 0 {
		select {
		case <-deadline:
			t.Fatal("expected queue completion notification")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	payload, ok := notifier.lastPayload(notifications.EventQueueCompleted)
	if !ok {
		t.Fatal("expected queue completion payload")
	}
	if processed, _ := payload["processed"].(int); processed != 1 {
		t.Fatalf("expected one processed item in payload, got %v", payload["processed"])
	}
	if failed, _ := payload["failed"].(int); failed != 0 {
		t.Fatalf("expected zero failed items in payload, got %v", payload["failed"])
	}
}

func TestManagerStartRequiresStages(t *testing.T) {
	cfg := workflowConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	mgr := workflow.NewManager(cfg, store, logging.NewNop())
	if err := mgr.Start(context.Background()); err == nil {
		mgr.Stop()
		t.Fatal("expected Start to fail without configured stages")
	}
}

func TestManagerStartFailsPreflight(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Acquisition.YtdlpCommand = "reel-missing-tool"
	store := testsupport.MustOpenStore(t, cfg)

	mgr := workflow.NewManager(cfg, store, logging.NewNop())
	mgr.ConfigureStages(workflow.StageSet{Acquirer: newStubStage("acquire")})

	err := mgr.Start(context.Background())
	if err == nil {
		mgr.Stop()
		t.Fatal("expected Start to fail preflight with missing yt-dlp")
	}
	if !strings.Contains(err.Error(), "preflight") {
		t.Fatalf("expected preflight failure, got %v", err)
	}
}

func TestManagerFailureMarksReview(t *testing.T) {
	cfg := workflowConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	failing := newStubStage("acquire")
	failing.executeErr = services.Wrap(services.ErrValidation, "acquire", "resolve media", "no playable formats", nil)

	notifier := &recordingNotifier{}
	mgr := workflow.NewManagerWithNotifier(cfg, store, logging.NewNop(), notifier)
	mgr.ConfigureStages(workflow.StageSet{Acquirer: failing})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { mgr.Stop() })

	item := testsupport.NewItem(t, store, "https://example.com/watch?v=rev1")

	updated := waitForStatus(t, store, item.ID, queue.StatusFailed)
	if !updated.NeedsReview {
		t.Fatal("expected validation failure to need review")
	}
	if updated.ProgressStage != "Failed" {
		t.Fatalf("expected progress stage 'Failed', got %s", updated.ProgressStage)
	}
	if !strings.Contains(updated.ErrorMessage, "no playable formats") {
		t.Fatalf("expected failure detail in error message, got %s", updated.ErrorMessage)
	}

	deadline := time.After(10 * time.Second)
	for notifier.count(notifications.EventItemFailed) == 0 {
		select {
		case <-deadline:
			t.Fatal("expected item failed notification")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	payload, _ := notifier.lastPayload(notifications.EventItemFailed)
	if review, _ := payload["needsReview"].(bool); !review {
		t.Fatalf("expected needsReview in payload, got %v", payload["needsReview"])
	}
}

func TestManagerFailureDefaultsToFailed(t *testing.T) {
	cfg := workflowConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	failing := newStubStage("acquire")
	failing.executeErr = errors.New("boom")

	mgr := workflow.NewManager(cfg, store, logging.NewNop())
	mgr.ConfigureStages(workflow.StageSet{Acquirer: failing})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := mgr.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { mgr.Stop() })

	item := testsupport.NewItem(t, store, "https://example.com/watch?v=fail1")

	updated := waitForStatus(t, store, item.ID, queue.StatusFailed)
	if updated.NeedsReview {
		t.Fatal("expected transient failure to stay retryable without review")
	}
	if updated.ErrorMessage == "" {
		t.Fatal("expected error message to be populated")
	}
}

func TestManagerStatusIncludesStageHealth(t *testing.T) {
	cfg := workflowConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	handler := newStubStage("acquire")
	handler.health = stage.Unhealthy(handler.name, "yt-dlp missing")

	mgr := workflow.NewManager(cfg, store, logging.NewNop())
	mgr.ConfigureStages(workflow.StageSet{Acquirer: handler})

	status := mgr.Status(context.Background())
	health, ok := status.StageHealth[handler.name]
	if !ok {
		t.Fatalf("expected stage health entry for %s", handler.name)
	}
	if health.Ready {
		t.Fatalf("expected not ready health, got %+v", health)
	}
	if health.Detail != handler.health.Detail {
		t.Fatalf("expected detail %q, got %q", handler.health.Detail, health.Detail)
	}
	if status.Running {
		t.Fatal("expected manager to report not running before Start")
	}
}

func TestHeartbeatMonitorReclaimsStaleItems(t *testing.T) {
	cfg := workflowConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	item := testsupport.NewItem(t, store, "https://example.com/watch?v=stale")
	item.Status = queue.StatusAcquiring
	stale := time.Now().Add(-time.Hour).UTC()
	item.LastHeartbeat = &stale
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	monitor := workflow.NewHeartbeatMonitor(store, logging.NewNop(), time.Second, time.Minute)
	if err := monitor.ReclaimStaleItems(ctx, logging.NewNop(), []queue.Status{queue.StatusAcquiring}); err != nil {
		t.Fatalf("ReclaimStaleItems failed: %v", err)
	}

	updated, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.Status != queue.StatusPending {
		t.Fatalf("expected stale item back to pending, got %s", updated.Status)
	}
	if updated.LastHeartbeat != nil {
		t.Fatal("expected heartbeat cleared on reclaim")
	}
}

type recordedEvent struct {
	event   notifications.Event
	payload notifications.Payload
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{event: event, payload: payload})
	return nil
}

func (r *recordingNotifier) count(event notifications.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, rec := range r.events {
		if rec.event == event {
			total++
		}
	}
	return total
}

func (r *recordingNotifier) lastPayload(event notifications.Event) (notifications.Payload, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].event == event {
			return r.events[i].payload, true
		}
	}
	return nil, false
}
