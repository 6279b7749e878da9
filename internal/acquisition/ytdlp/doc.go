// Package ytdlp wraps the yt-dlp CLI as the primary acquisition backend.
//
// Each fetch renders one extraction strategy plus a client fingerprint into
// CLI flags, streams subprocess output for sampled progress logging, and
// parses the emitted info JSON for source metadata. Error lines are folded
// into a short summary so the waterfall can classify the failure from text.
package ytdlp
