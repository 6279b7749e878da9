package organizer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"log/slog"

	"reel/internal/config"
	"reel/internal/fileutil"
	"reel/internal/logging"
	"reel/internal/notifications"
	"reel/internal/queue"
	"reel/internal/services"
	"reel/internal/stage"
)

// Organizer moves staged audio artifacts into the final library location.
type Organizer struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	notifier notifications.Service
}

// NewOrganizer constructs the organize stage handler using default dependencies.
func NewOrganizer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Organizer {
	return NewOrganizerWithDependencies(cfg, store, logger, notifications.NewService(cfg))
}

// NewOrganizerWithDependencies allows injecting collaborators (used in tests).
func NewOrganizerWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Organizer {
	o := &Organizer{store: store, cfg: cfg, notifier: notifier}
	o.SetLogger(logger)
	return o
}

// SetLogger updates the stage's logging destination while preserving
// component labeling.
func (o *Organizer) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = logging.NewNop()
	}
	o.logger = logging.NewComponentLogger(logger, "organizer")
}

func (o *Organizer) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, o.logger)
	if item.ProgressStage == "" {
		item.ProgressStage = "Organizing"
	}
	item.ProgressMessage = "Preparing library placement"
	item.ProgressPercent = 0
	item.ErrorMessage = ""
	logger.Info(
		"starting organization preparation",
		logging.String("title", item.DisplayTitle()),
		logging.String("artifact", strings.TrimSpace(item.ArtifactPath)),
	)
	return nil
}

func (o *Organizer) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, o.logger)
	artifactPath, err := stage.RequireArtifact(item)
	if err != nil {
		return err
	}
	libraryDir := strings.TrimSpace(o.cfg.Paths.LibraryDir)
	if libraryDir == "" {
		return services.Wrap(
			services.ErrConfiguration,
			"organizing",
			"resolve library dir",
			"Library directory not configured; set paths.library_dir in the config",
			nil,
		)
	}
	if err := os.MkdirAll(libraryDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "organizing", "ensure library dir", "Failed to create library directory", err)
	}

	meta := queue.MetadataFromJSON(item.MetadataJSON, item.Title)
	fileName := meta.LibraryFileName(artifactPath)
	o.updateProgress(ctx, item, "Filing into library", 25)

	targetPath, err := nextLibraryPath(libraryDir, fileName)
	if err != nil {
		return services.Wrap(services.ErrTransient, "organizing", "allocate library filename", "Unable to allocate a library filename", err)
	}
	logger.Info(
		"moving artifact into library",
		logging.String("artifact", artifactPath),
		logging.String("target", targetPath),
	)
	if err := fileutil.MoveFile(artifactPath, targetPath); err != nil {
		return services.Wrap(services.ErrTransient, "organizing", "move to library", "Failed to move audio into library", err)
	}
	item.FinalPath = targetPath

	o.updateProgress(ctx, item, "Cleaning scratch space", 80)
	o.cleanupScratch(ctx, item)

	item.SetProgressComplete("Organized", fmt.Sprintf("Available in library: %s", filepath.Base(targetPath)))
	logger.Info(
		"organization completed",
		logging.String("final_path", targetPath),
		logging.String("progress_message", item.ProgressMessage),
	)

	if o.notifier != nil {
		title := meta.DisplayTitle()
		if title == "" {
			title = filepath.Base(targetPath)
		}
		if err := o.notifier.Publish(ctx, notifications.EventItemCompleted, notifications.Payload{
			"title":     title,
			"finalFile": filepath.Base(targetPath),
		}); err != nil {
			logger.Warn("completion notification failed", logging.Error(err))
		}
	}
	return nil
}

// nextLibraryPath returns fileName joined onto dir, appending a numeric
// suffix when the plain name is already taken.
func nextLibraryPath(dir, fileName string) (string, error) {
	const maxAttempts = 10000
	ext := filepath.Ext(fileName)
	base := strings.TrimSuffix(fileName, ext)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		name := fileName
		if attempt > 1 {
			name = fmt.Sprintf("%s (%d)%s", base, attempt, ext)
		}
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return candidate, nil
			}
			return "", err
		}
	}
	return "", fmt.Errorf("exhausted library filename slots in %s", dir)
}

// cleanupScratch removes the item's scratch directory once the artifact has
// left it. Failures are logged, not fatal.
func (o *Organizer) cleanupScratch(ctx context.Context, item *queue.Item) {
	if item == nil || o.cfg == nil {
		return
	}
	scratch := item.ScratchDir(o.cfg.Paths.StagingDir)
	if scratch == "" {
		return
	}
	logger := logging.WithContext(ctx, o.logger)
	if err := os.RemoveAll(scratch); err != nil {
		logger.Warn("failed to clean scratch directory; leftover files remain",
			logging.String("scratch_dir", scratch),
			logging.Error(err),
			logging.String(logging.FieldEventType, "scratch_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
			logging.String(logging.FieldImpact, "disk space not reclaimed; manual cleanup needed"),
		)
		return
	}
	logger.Debug("cleaned scratch directory", logging.String("scratch_dir", scratch))
}

func (o *Organizer) updateProgress(ctx context.Context, item *queue.Item, message string, percent float64) {
	logger := logging.WithContext(ctx, o.logger)
	copy := *item
	copy.ProgressMessage = message
	copy.ProgressPercent = percent
	if err := o.store.UpdateProgress(ctx, &copy); err != nil {
		logger.Warn("failed to persist organizer progress; queue status may lag",
			logging.Error(err),
			logging.String(logging.FieldEventType, "queue_progress_persist_failed"),
			logging.String(logging.FieldErrorHint, "check queue database access"),
			logging.String(logging.FieldImpact, "queue status may show stale progress"),
		)
		return
	}
	*item = copy
}

// HealthCheck verifies the organize stage prerequisites.
func (o *Organizer) HealthCheck(ctx context.Context) stage.Health {
	const name = "organize"
	if o.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(o.cfg.Paths.LibraryDir) == "" {
		return stage.Unhealthy(name, "library directory not configured")
	}
	return stage.Healthy(name)
}
