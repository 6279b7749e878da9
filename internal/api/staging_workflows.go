package api

import (
	"context"
	"fmt"
	"strings"

	"reel/internal/staging"
)

// ActiveScratchProvider surfaces scratch directories still referenced by queue items.
type ActiveScratchProvider interface {
	ActiveScratchDirs(ctx context.Context, stagingDir string) (map[string]struct{}, error)
}

type CleanStagingRequest struct {
	StagingDir string
	CleanAll   bool
	Active     ActiveScratchProvider
}

type CleanStagingResult struct {
	Configured bool
	Scope      string
	Cleanup    staging.CleanResult
}

// CleanStagingDirectories applies scratch cleanup policy used by CLI commands.
func CleanStagingDirectories(ctx context.Context, req CleanStagingRequest) (CleanStagingResult, error) {
	stagingDir := strings.TrimSpace(req.StagingDir)
	if stagingDir == "" {
		return CleanStagingResult{Configured: false}, nil
	}

	if req.CleanAll {
		return CleanStagingResult{
			Configured: true,
			Scope:      "scratch",
			Cleanup:    staging.CleanStale(ctx, stagingDir, 0, nil),
		}, nil
	}

	if req.Active == nil {
		return CleanStagingResult{}, fmt.Errorf("active scratch provider is required when clean_all is false")
	}
	active, err := req.Active.ActiveScratchDirs(ctx, stagingDir)
	if err != nil {
		return CleanStagingResult{}, err
	}
	return CleanStagingResult{
		Configured: true,
		Scope:      "orphaned scratch",
		Cleanup:    staging.CleanOrphaned(ctx, stagingDir, active, nil),
	}, nil
}
