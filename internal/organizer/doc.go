// Package organizer finalizes acquired items by filing the staged audio
// artifact into the library directory.
//
// It derives a sanitized library filename from the persisted source metadata,
// handles collision-safe moves across filesystems, reclaims the item's
// scratch directory, and raises the completion notification. Progress updates
// and error wrapping follow the same conventions as the acquire stage so the
// workflow manager can react uniformly.
package organizer
