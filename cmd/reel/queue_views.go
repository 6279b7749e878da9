package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"reel/internal/api"
)

func buildQueueStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

func buildQueueListRows(items []api.QueueItem) [][]string {
	if len(items) == 0 {
		return nil
	}
	sorted := api.SortQueueItemsNewestFirst(items)

	rows := make([][]string, 0, len(sorted))
	for _, item := range sorted {
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.ID),
			queueItemTitle(item),
			formatStatusLabel(item.Status),
			formatMethod(item.Method),
			formatDisplayTime(item.CreatedAt),
		})
	}
	return rows
}

func queueItemTitle(item api.QueueItem) string {
	if title := strings.TrimSpace(item.Title); title != "" {
		return title
	}
	if source := strings.TrimSpace(item.SourceURL); source != "" {
		return source
	}
	return "Unknown"
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatMethod(method string) string {
	method = strings.TrimSpace(method)
	if method == "" {
		return "-"
	}
	return method
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t := api.ParseQueueTime(value); !t.IsZero() {
		return t.UTC().Format("2006-01-02 15:04")
	}
	return value
}

func formatDurationSeconds(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	return d.String()
}

func buildQueueItemDetailLines(item api.QueueItem) []string {
	lines := []string{fmt.Sprintf("Item %d: %s", item.ID, queueItemTitle(item))}
	appendDetail := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		lines = append(lines, fmt.Sprintf("  %-10s %s", label+":", value))
	}

	appendDetail("Source", item.SourceURL)
	appendDetail("Media ID", item.MediaID)
	appendDetail("Uploader", item.Uploader)
	if item.DurationSeconds > 0 {
		appendDetail("Duration", formatDurationSeconds(item.DurationSeconds))
	}
	appendDetail("Status", formatStatusLabel(item.Status))
	appendDetail("Method", item.Method)
	if stage := strings.TrimSpace(item.Progress.Stage); stage != "" {
		progress := fmt.Sprintf("%s %.0f%%", stage, item.Progress.Percent)
		if message := strings.TrimSpace(item.Progress.Message); message != "" {
			progress += " (" + message + ")"
		}
		appendDetail("Progress", progress)
	}
	appendDetail("Artifact", item.ArtifactPath)
	appendDetail("Library", item.FinalPath)
	appendDetail("Item log", item.ItemLogPath)
	appendDetail("Created", formatDisplayTime(item.CreatedAt))
	appendDetail("Updated", formatDisplayTime(item.UpdatedAt))
	appendDetail("Error", item.ErrorMessage)
	if item.NeedsReview {
		reason := strings.TrimSpace(item.ReviewReason)
		if reason == "" {
			reason = "flagged for review"
		}
		appendDetail("Review", reason)
	}
	return lines
}
