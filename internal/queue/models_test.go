package queue_test

import (
	"testing"

	"reel/internal/queue"
)

func TestParseStatus(t *testing.T) {
	status, ok := queue.ParseStatus("  Acquiring ")
	if !ok || status != queue.StatusAcquiring {
		t.Fatalf("expected acquiring, got %q ok=%v", status, ok)
	}
	if _, ok := queue.ParseStatus("ripping"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
	if _, ok := queue.ParseStatus(""); ok {
		t.Fatal("expected empty status to be rejected")
	}
}

func TestIsProcessingStatus(t *testing.T) {
	if !queue.IsProcessingStatus(queue.StatusAcquiring) || !queue.IsProcessingStatus(queue.StatusOrganizing) {
		t.Fatal("expected acquiring and organizing to be processing statuses")
	}
	if queue.IsProcessingStatus(queue.StatusPending) || queue.IsProcessingStatus(queue.StatusAcquired) {
		t.Fatal("expected pending and acquired to be non-processing")
	}
}

func TestItemIsActive(t *testing.T) {
	for _, status := range []queue.Status{queue.StatusPending, queue.StatusAcquiring, queue.StatusAcquired, queue.StatusOrganizing} {
		if !(queue.Item{Status: status}).IsActive() {
			t.Fatalf("expected %s item to be active", status)
		}
	}
	for _, status := range []queue.Status{queue.StatusCompleted, queue.StatusFailed} {
		if (queue.Item{Status: status}).IsActive() {
			t.Fatalf("expected %s item to be inactive", status)
		}
	}
}

func TestInitProgressPreservesExistingStage(t *testing.T) {
	item := &queue.Item{ProgressStage: "Acquire", ErrorMessage: "previous failure"}
	item.InitProgress("Organize", "Filing artifact")
	if item.ProgressStage != "Acquire" {
		t.Fatalf("expected existing stage preserved, got %q", item.ProgressStage)
	}
	if item.ErrorMessage != "" {
		t.Fatal("expected error message cleared")
	}
	if item.ProgressPercent != 0 || item.ProgressMessage != "Filing artifact" {
		t.Fatalf("unexpected progress fields: %#v", item)
	}

	fresh := &queue.Item{}
	fresh.InitProgress("Acquire", "Starting")
	if fresh.ProgressStage != "Acquire" {
		t.Fatalf("expected stage set when empty, got %q", fresh.ProgressStage)
	}
}

func TestStageKey(t *testing.T) {
	cases := map[queue.Status]string{
		queue.StatusPending:    "planned",
		queue.StatusAcquiring:  "acquiring",
		queue.StatusAcquired:   "acquired",
		queue.StatusOrganizing: "organizing",
		queue.StatusCompleted:  "final",
		queue.StatusFailed:     "failed",
	}
	for status, want := range cases {
		if got := status.StageKey(); got != want {
			t.Fatalf("StageKey(%s) = %q, want %q", status, got, want)
		}
	}
}

func TestDisplayTitle(t *testing.T) {
	item := queue.Item{SourceURL: "https://example.com/watch"}
	if got := item.DisplayTitle(); got != "https://example.com/watch" {
		t.Fatalf("expected source url fallback, got %q", got)
	}
	item.MediaID = "abc123"
	if got := item.DisplayTitle(); got != "abc123" {
		t.Fatalf("expected media id fallback, got %q", got)
	}
	item.Title = "Deep Dive"
	if got := item.DisplayTitle(); got != "Deep Dive" {
		t.Fatalf("expected title, got %q", got)
	}
}
