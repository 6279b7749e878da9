// Package logs reads daemon log files for the CLI.
//
// Tail returns a slice of lines plus the offset to resume from, so `reel
// show --follow` can poll the daemon without the server holding a stream
// open. A negative offset starts from the last Limit lines; a non-negative
// offset reads forward from that byte position, which is how repeated calls
// pick up exactly the lines appended since the previous call.
//
// Missing files are treated as empty rather than as errors because the
// daemon may not have written its first line yet when a follow starts.
package logs
