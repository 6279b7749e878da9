package workflow

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reel/internal/config"
	"reel/internal/logging"
	"reel/internal/queue"
)

// ItemLogger manages the dedicated log file each queue item accumulates while
// it moves through the pipeline.
type ItemLogger struct {
	baseDir string
	cfg     *config.Config
}

// NewItemLogger creates an item logger rooted under the configured log
// directory.
func NewItemLogger(cfg *config.Config) *ItemLogger {
	dir := ""
	if cfg != nil && cfg.Paths.LogDir != "" {
		dir = filepath.Join(cfg.Paths.LogDir, "items")
	}
	return &ItemLogger{
		baseDir: dir,
		cfg:     cfg,
	}
}

// Ensure prepares the log directory and file path for an item. The path is
// recorded on the item so later stages append to the same file.
func (l *ItemLogger) Ensure(item *queue.Item) (string, error) {
	if item == nil {
		return "", fmt.Errorf("queue item is nil")
	}
	if strings.TrimSpace(l.baseDir) == "" {
		return "", fmt.Errorf("item log directory not configured")
	}
	if strings.TrimSpace(item.ItemLogPath) == "" {
		timestamp := time.Now().UTC().Format("20060102T150405")
		item.ItemLogPath = filepath.Join(l.baseDir, fmt.Sprintf("%s-item-%d.log", timestamp, item.ID))
	}
	if err := os.MkdirAll(filepath.Dir(item.ItemLogPath), 0o755); err != nil {
		return "", fmt.Errorf("ensure item log directory: %w", err)
	}
	return item.ItemLogPath, nil
}

// CreateHandler builds a slog.Handler writing to the specified path.
func (l *ItemLogger) CreateHandler(path string) (slog.Handler, error) {
	level := "info"
	format := "json"
	if l.cfg != nil {
		if strings.TrimSpace(l.cfg.Logging.Level) != "" {
			level = l.cfg.Logging.Level
		}
		if strings.TrimSpace(l.cfg.Logging.Format) != "" {
			format = l.cfg.Logging.Format
		}
	}
	logger, err := logging.New(logging.Options{
		Level:            level,
		Format:           format,
		OutputPaths:      []string{path},
		ErrorOutputPaths: []string{path},
		Development:      false,
	})
	if err != nil {
		return nil, err
	}
	return logger.Handler(), nil
}
