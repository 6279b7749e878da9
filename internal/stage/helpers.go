package stage

import (
	"os"
	"strings"

	"reel/internal/queue"
	"reel/internal/services"
)

// RequireArtifact returns the item's staged artifact path after verifying the
// file exists. On failure it returns a services.ErrValidation suitable for
// stage Execute methods.
func RequireArtifact(item *queue.Item) (string, error) {
	path := ""
	if item != nil {
		path = strings.TrimSpace(item.ArtifactPath)
	}
	if path == "" {
		return "", services.Wrap(
			services.ErrValidation, "stage", "locate artifact",
			"No staged artifact recorded; retry the item", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", services.Wrap(
			services.ErrValidation, "stage", "locate artifact",
			"Staged artifact is missing from disk; retry the item", err)
	}
	if info.IsDir() {
		return "", services.Wrap(
			services.ErrValidation, "stage", "locate artifact",
			"Staged artifact path is a directory; retry the item", nil)
	}
	return path, nil
}
