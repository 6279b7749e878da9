// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// The reel pipeline uses it to validate acquired audio artifacts: canonical
// WAV files must carry exactly one audio stream at the configured sample
// rate, and duration sanity checks feed the queue metadata.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual stream properties (codec, sample rate, channels)
//   - Format: container-level metadata (duration, size, format name)
//
// Primary entry point:
//   - Inspect: executes ffprobe and returns a parsed Result
package ffprobe
