package api

import (
	"testing"
	"time"

	"reel/internal/queue"
	"reel/internal/stage"
	"reel/internal/workflow"
)

func TestFromQueueItemMapsFields(t *testing.T) {
	created := time.Date(2026, time.March, 14, 9, 26, 53, 0, time.UTC)
	item := &queue.Item{
		ID:              42,
		SourceURL:       "https://www.youtube.com/watch?v=abc123def45",
		MediaID:         "abc123def45",
		Title:           "Sample Track",
		Uploader:        "Channel",
		DurationSeconds: 12.5,
		Status:          queue.StatusAcquired,
		Method:          "ytdlp/android-enhanced",
		ProgressStage:   "Acquired",
		ProgressPercent: 100,
		ProgressMessage: "Audio artifact staged",
		ArtifactPath:    "/staging/reel-1/abc123def45.wav",
		FinalPath:       "/library/Sample Track [abc123def45].wav",
		MetadataJSON:    `{"media_id":"abc123def45"}`,
		NeedsReview:     true,
		ReviewReason:    "terminal acquisition failure",
		CreatedAt:       created,
		UpdatedAt:       created.Add(time.Minute),
	}

	dto := FromQueueItem(item)
	if dto.ID != 42 {
		t.Fatalf("unexpected id: %d", dto.ID)
	}
	if dto.SourceURL != item.SourceURL {
		t.Fatalf("unexpected source url: %q", dto.SourceURL)
	}
	if dto.MediaID != "abc123def45" || dto.Title != "Sample Track" || dto.Uploader != "Channel" {
		t.Fatalf("metadata fields not mapped: %+v", dto)
	}
	if dto.Status != string(queue.StatusAcquired) {
		t.Fatalf("unexpected status: %q", dto.Status)
	}
	if dto.Method != "ytdlp/android-enhanced" {
		t.Fatalf("unexpected method: %q", dto.Method)
	}
	if dto.Progress.Stage != "Acquired" || dto.Progress.Percent != 100 {
		t.Fatalf("unexpected progress: %+v", dto.Progress)
	}
	if dto.CreatedAt != "2026-03-14T09:26:53.000Z" {
		t.Fatalf("unexpected created timestamp: %q", dto.CreatedAt)
	}
	if string(dto.Metadata) != item.MetadataJSON {
		t.Fatalf("metadata not passed through: %s", dto.Metadata)
	}
	if !dto.NeedsReview || dto.ReviewReason == "" {
		t.Fatalf("review flags not mapped: %+v", dto)
	}
}

func TestFromQueueItemHandlesZeroValues(t *testing.T) {
	dto := FromQueueItem(nil)
	if dto.ID != 0 || dto.Status != "" {
		t.Fatalf("expected zero DTO for nil item, got %+v", dto)
	}

	dto = FromQueueItem(&queue.Item{ID: 1, Status: queue.StatusPending})
	if dto.CreatedAt != "" || dto.UpdatedAt != "" {
		t.Fatalf("expected empty timestamps, got %q / %q", dto.CreatedAt, dto.UpdatedAt)
	}
	if dto.Metadata != nil {
		t.Fatalf("expected nil metadata, got %s", dto.Metadata)
	}
}

func TestFromStatusSummary(t *testing.T) {
	summary := workflow.StatusSummary{
		Running:   true,
		LastError: "acquisition failed",
		LastItem:  &queue.Item{ID: 3, SourceURL: "https://youtu.be/abc123def45", Status: queue.StatusFailed},
		QueueStats: map[queue.Status]int{
			queue.StatusPending: 2,
			queue.StatusFailed:  1,
		},
		StageHealth: map[string]stage.Health{
			"organize": {Name: "organize", Ready: true},
			"acquire":  {Name: "acquire", Ready: false, Detail: "yt-dlp binary not found"},
		},
	}

	wf := FromStatusSummary(summary)
	if !wf.Running {
		t.Fatal("expected running workflow status")
	}
	if wf.QueueStats["pending"] != 2 || wf.QueueStats["failed"] != 1 {
		t.Fatalf("unexpected queue stats: %+v", wf.QueueStats)
	}
	if wf.LastError != "acquisition failed" {
		t.Fatalf("unexpected last error: %q", wf.LastError)
	}
	if wf.LastItem == nil || wf.LastItem.ID != 3 {
		t.Fatalf("unexpected last item: %+v", wf.LastItem)
	}
	if len(wf.StageHealth) != 2 {
		t.Fatalf("unexpected stage health count: %d", len(wf.StageHealth))
	}
	if wf.StageHealth[0].Name != "acquire" || wf.StageHealth[1].Name != "organize" {
		t.Fatalf("expected sorted stage health, got %+v", wf.StageHealth)
	}
	if wf.StageHealth[0].Ready || wf.StageHealth[0].Detail == "" {
		t.Fatalf("unexpected acquire health: %+v", wf.StageHealth[0])
	}
}

func TestFormatTime(t *testing.T) {
	if got := FormatTime(time.Time{}); got != "" {
		t.Fatalf("expected empty string for zero time, got %q", got)
	}
	ts := time.Date(2026, time.January, 2, 15, 4, 5, 0, time.UTC)
	if got := FormatTime(ts); got != "2026-01-02T15:04:05.000Z" {
		t.Fatalf("unexpected formatted time: %q", got)
	}
}
