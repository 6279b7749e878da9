// Package api defines wire-format types and converters for the IPC layer. It
// translates internal queue models into transport-friendly DTOs so CLI and
// other consumers can render daemon state without coupling to internal types.
//
// # Key Types
//
// QueueItem: transport representation of a queue entry with source URL,
// resolved media metadata, acquisition method, progress, and review state.
//
// WorkflowStatus: daemon running state, queue stats, stage health, and last item.
//
// DaemonStatus: aggregated runtime information including external binary
// dependencies.
//
// # Converters
//
// FromQueueItem: queue.Item -> QueueItem with formatted timestamps and
// metadata passthrough.
//
// FromStatusSummary: workflow.StatusSummary -> WorkflowStatus.
//
// StageHealthSlice: deterministic ordering of stage health map.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Internal enums (queue.Status) are exposed as
// lowercase strings. Timestamps use RFC3339 with milliseconds. Metadata is
// passed through as json.RawMessage to avoid double-encoding.
package api
