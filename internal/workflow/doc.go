// Package workflow advances queue items through the configured processing
// stages.
//
// The Manager polls the queue, reclaims stale work via heartbeats, and feeds
// items into registered stage handlers (acquire, organize) while capturing
// progress and failure metadata. It also aggregates queue stats, calls stage
// health checks, and emits queue-level notifications when processing starts
// or completes.
//
// Items move through one sequential pipeline: pending -> acquiring ->
// acquired -> organizing -> completed. A single runner goroutine picks the
// next eligible item, so at most one download or filing operation is in
// flight at a time and the acquisition tiers never compete for bandwidth or
// the browser display.
//
// Add new lifecycle stages by extending StageSet, updating the queue status
// enums, and teaching the manager how to transition items; this package is
// the authoritative home for that coordination logic.
package workflow
