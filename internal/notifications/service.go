package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reel/internal/config"
)

const userAgent = "Reel/0.1.0"

// Event identifies a notable workflow moment worth pushing to the user.
type Event string

const (
	// EventQueueStarted fires when the daemon begins working through a
	// non-empty queue.
	EventQueueStarted Event = "queue_started"
	// EventQueueCompleted fires when the last active item settles.
	EventQueueCompleted Event = "queue_completed"
	// EventItemCompleted fires when an item's audio lands in the library.
	EventItemCompleted Event = "item_completed"
	// EventItemFailed fires when a stage gives up on an item.
	EventItemFailed Event = "item_failed"
	// EventAgentEngaged fires when the browser agent takes over a download.
	EventAgentEngaged Event = "agent_engaged"
	// EventTest exercises delivery end to end.
	EventTest Event = "test"
)

// Payload carries event-specific values keyed by convention ("title",
// "finalFile", "error", "count", "processed", "failed", "duration").
type Payload map[string]any

// Service publishes workflow events. Implementations decide delivery and may
// drop events the user disabled.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		completed:    cfg.Notifications.Completed,
		failed:       cfg.Notifications.Failed,
		agentEngaged: cfg.Notifications.AgentEngaged,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	completed    bool
	failed       bool
	agentEngaged bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled(event) {
		return nil
	}
	data, ok := n.render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, data)
}

// enabled maps events onto the user-facing toggles: completion-class events
// follow notifications.completed, failures follow notifications.failed, and
// agent promotion follows notifications.agent_engaged.
func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventQueueStarted, EventQueueCompleted, EventItemCompleted:
		return n.completed
	case EventItemFailed:
		return n.failed
	case EventAgentEngaged:
		return n.agentEngaged
	default:
		return true
	}
}

func (n *ntfyService) render(event Event, payload Payload) (message, bool) {
	switch event {
	case EventQueueStarted:
		count := intValue(payload, "count")
		return message{
			title: "Reel - Queue Started",
			body:  fmt.Sprintf("Started processing queue with %d items", count),
			tags:  []string{"reel", "queue", "started"},
		}, true
	case EventQueueCompleted:
		return renderQueueCompleted(payload), true
	case EventItemCompleted:
		title := stringValue(payload, "title")
		body := fmt.Sprintf("✅ Ready: %s", title)
		if finalFile := stringValue(payload, "finalFile"); finalFile != "" {
			body = fmt.Sprintf("%s\nFile: %s", body, finalFile)
		}
		return message{
			title:    "Reel - Complete",
			body:     body,
			tags:     []string{"reel", "audio", "completed"},
			priority: "high",
		}, true
	case EventItemFailed:
		return renderItemFailed(payload), true
	case EventAgentEngaged:
		title := stringValue(payload, "title")
		if title == "" {
			title = stringValue(payload, "url")
		}
		return message{
			title: "Reel - Agent Engaged",
			body:  fmt.Sprintf("🤖 Browser agent engaged for: %s", title),
			tags:  []string{"reel", "agent", "engaged"},
		}, true
	case EventTest:
		return message{
			title:    "Reel - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"reel", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func renderQueueCompleted(payload Payload) message {
	processed := intValue(payload, "processed")
	failed := intValue(payload, "failed")
	duration := durationValue(payload, "duration").Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var title, body string
	if failed == 0 {
		title = "Reel - Queue Complete"
		body = fmt.Sprintf("Queue processing complete: %d items processed in %s", processed, durationText)
	} else {
		title = "Reel - Queue Complete (with errors)"
		body = fmt.Sprintf("Queue processing complete: %d succeeded, %d failed in %s", processed, failed, durationText)
	}
	return message{
		title: title,
		body:  body,
		tags:  []string{"reel", "queue", "completed"},
	}
}

func renderItemFailed(payload Payload) message {
	var builder strings.Builder
	builder.WriteString("❌ Failed")
	if context := stringValue(payload, "context"); context != "" {
		builder.WriteString(": ")
		builder.WriteString(context)
	}
	reason := stringValue(payload, "error")
	if reason == "" {
		reason = "unknown"
	}
	builder.WriteString("\n")
	builder.WriteString(reason)
	if boolValue(payload, "needsReview") {
		builder.WriteString("\nManual review required")
	}
	return message{
		title:    "Reel - Failed",
		body:     builder.String(),
		tags:     []string{"reel", "error", "alert"},
		priority: "high",
	}
}

func stringValue(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	switch v := payload[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		if v == nil {
			return ""
		}
		return strings.TrimSpace(v.Error())
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return ""
	}
}

func intValue(payload Payload, key string) int {
	if payload == nil {
		return 0
	}
	switch v := payload[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func boolValue(payload Payload, key string) bool {
	if payload == nil {
		return false
	}
	v, _ := payload[key].(bool)
	return v
}

func durationValue(payload Payload, key string) time.Duration {
	if payload == nil {
		return 0
	}
	switch v := payload[key].(type) {
	case time.Duration:
		return v
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	default:
		return 0
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
