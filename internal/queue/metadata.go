package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"reel/internal/acquisition"
	"reel/internal/textutil"
)

// Metadata captures what acquisition learned about the media. It is stored
// on the item as JSON so the organize stage and status output share one view
// of the source.
type Metadata struct {
	MediaID         string  `json:"media_id,omitempty"`
	Title           string  `json:"title,omitempty"`
	Uploader        string  `json:"uploader,omitempty"`
	UploadDate      string  `json:"upload_date,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Method          string  `json:"method,omitempty"`
	Canonical       bool    `json:"canonical"`
}

// MetadataFromArtifact captures an acquisition result as item metadata.
func MetadataFromArtifact(artifact *acquisition.AudioArtifact) Metadata {
	if artifact == nil {
		return Metadata{}
	}
	return Metadata{
		MediaID:         artifact.Source.ID,
		Title:           artifact.Title,
		Uploader:        artifact.Source.Uploader,
		UploadDate:      artifact.Source.UploadDate,
		DurationSeconds: artifact.DurationSeconds,
		Method:          artifact.Method,
		Canonical:       artifact.Canonical,
	}
}

// MetadataFromJSON builds metadata from stored JSON, falling back to the
// provided title when the payload is empty or unreadable.
func MetadataFromJSON(data, fallbackTitle string) Metadata {
	meta := Metadata{Title: fallbackTitle}
	_ = json.Unmarshal([]byte(data), &meta)
	if strings.TrimSpace(meta.Title) == "" {
		meta.Title = fallbackTitle
	}
	return meta
}

// DisplayTitle returns the best human-readable label for the media.
func (m Metadata) DisplayTitle() string {
	if title := strings.TrimSpace(m.Title); title != "" {
		return title
	}
	return strings.TrimSpace(m.MediaID)
}

// LibraryFileName returns the sanitized name the organize stage files the
// artifact under, keeping the acquired file's extension. The shape is
// "Title [media-id].ext" so re-downloading the same media overwrites the
// previous copy instead of accumulating duplicates.
func (m Metadata) LibraryFileName(artifactPath string) string {
	ext := filepath.Ext(artifactPath)
	base := m.DisplayTitle()
	if base == "" {
		base = strings.TrimSuffix(filepath.Base(artifactPath), ext)
	}
	if id := strings.TrimSpace(m.MediaID); id != "" && !strings.Contains(base, id) {
		base = fmt.Sprintf("%s [%s]", base, id)
	}
	base = textutil.SanitizeFileName(base)
	if base == "" {
		base = "audio"
	}
	return base + ext
}

// PersistMetadata stores the metadata JSON and its headline fields on the
// item. The item is only mutated after the update succeeds.
func PersistMetadata(ctx context.Context, store *Store, item *Item, meta Metadata) error {
	if item == nil {
		return fmt.Errorf("item is nil")
	}
	encoded, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	updated := *item
	updated.MetadataJSON = string(encoded)
	updated.MediaID = meta.MediaID
	if title := strings.TrimSpace(meta.Title); title != "" {
		updated.Title = title
	}
	updated.Uploader = meta.Uploader
	updated.DurationSeconds = meta.DurationSeconds
	updated.Method = meta.Method
	if err := store.Update(ctx, &updated); err != nil {
		return fmt.Errorf("persist metadata: %w", err)
	}
	*item = updated
	return nil
}
