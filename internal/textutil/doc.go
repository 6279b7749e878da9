// Package textutil provides filename sanitization for library artifacts.
//
// Media titles arrive as arbitrary Unicode from remote metadata. The helpers
// here turn them into names that are safe on common filesystems: NFC
// normalization, reserved-character replacement, control-character stripping,
// whitespace collapsing, and length bounding. SanitizeToken additionally
// produces lowercase ASCII tokens for log filenames and slugs.
package textutil
