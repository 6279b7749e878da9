package queue

import (
	"path/filepath"
	"strings"
)

// ScratchDir returns the acquisition work directory holding the item's
// artifact, or "" when the artifact path is not rooted under base. Cleanup
// after filing must never touch paths outside the staging area, including
// the staging root itself.
func (i Item) ScratchDir(base string) string {
	artifact := strings.TrimSpace(i.ArtifactPath)
	base = strings.TrimSpace(base)
	if artifact == "" || base == "" {
		return ""
	}
	dir := filepath.Dir(artifact)
	rel, err := filepath.Rel(base, dir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return dir
}
