// Package notifications delivers workflow events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set.
// Enumerated event types cover the acquisition milestones (item completed,
// item failed, agent engaged, queue lifecycle) so workflow code can emit
// consistent, user-friendly messages without duplicating HTTP glue. The
// per-event toggles in [notifications] decide which events actually go out.
//
// Extend this package if you need alternative transports; all workflow code
// depends only on the simple Service interface.
package notifications
