// Package daemon coordinates the long-running reel process.
//
// It wires configuration, queue storage, and the workflow manager into a
// single lifecycle with flock-based locking to prevent multiple instances.
// The daemon exposes queue maintenance helpers, validates and enqueues new
// source URLs, and aggregates dependency availability into status snapshots
// for IPC consumers.
//
// Keep orchestration logic here: individual workflow steps should live in
// their respective packages while the daemon focuses on startup, shutdown,
// and high level coordination.
package daemon
