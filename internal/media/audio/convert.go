package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"reel/internal/config"
	"reel/internal/fileutil"
	"reel/internal/logging"
	"reel/internal/services"
)

const (
	wavExt            = ".wav"
	defaultSampleRate = 16000
	defaultChannels   = 1
	defaultTimeout    = 60 * time.Second
	maxErrorTail      = 512
)

// Converter normalizes downloaded audio containers into the canonical
// 16-bit PCM WAV layout via ffmpeg.
type Converter struct {
	binary     string
	sampleRate int
	channels   int
	timeout    time.Duration
	logger     *slog.Logger
}

// NewConverter builds a Converter from the convert section of the config.
func NewConverter(cfg *config.Config, logger *slog.Logger) *Converter {
	conv := &Converter{
		binary:     cfg.FFmpegBinary(),
		sampleRate: cfg.Convert.SampleRate,
		channels:   cfg.Convert.Channels,
		timeout:    time.Duration(cfg.Convert.TimeoutSeconds) * time.Second,
		logger:     logging.NewComponentLogger(logger, "convert"),
	}
	if conv.sampleRate <= 0 {
		conv.sampleRate = defaultSampleRate
	}
	if conv.channels <= 0 {
		conv.channels = defaultChannels
	}
	if conv.timeout <= 0 {
		conv.timeout = defaultTimeout
	}
	return conv
}

// SetLogger updates the converter's logging destination while preserving
// component labeling.
func (c *Converter) SetLogger(logger *slog.Logger) {
	c.logger = logging.NewComponentLogger(logger, "convert")
}

// ToCanonical transcodes containerPath into a canonical WAV at wavPath. The
// source container is left in place for the caller to dispose of. A source
// that is already a WAV is copied (or accepted as-is when both paths match).
func (c *Converter) ToCanonical(ctx context.Context, containerPath, wavPath string) error {
	containerPath = strings.TrimSpace(containerPath)
	wavPath = strings.TrimSpace(wavPath)
	if containerPath == "" || wavPath == "" {
		return services.Wrap(services.ErrValidation, "", "convert", "container and wav paths required", nil)
	}

	if strings.EqualFold(filepath.Ext(containerPath), wavExt) {
		if containerPath == wavPath {
			return nil
		}
		if err := fileutil.CopyFile(containerPath, wavPath); err != nil {
			return services.Wrap(services.ErrTransient, "", "convert", "copy wav", err)
		}
		return nil
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := []string{
		"-hide_banner", "-nostdin",
		"-i", containerPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(c.sampleRate),
		"-ac", strconv.Itoa(c.channels),
		"-y", wavPath,
	}
	started := time.Now()
	cmd := exec.CommandContext(runCtx, c.binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return services.Wrap(services.ErrTimeout, "", "ffmpeg", fmt.Sprintf("conversion exceeded %s", c.timeout), err)
		}
		return services.Wrap(services.ErrExternalTool, "", "ffmpeg", tailOf(output), err)
	}

	info, statErr := os.Stat(wavPath)
	if statErr != nil || info.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, "", "ffmpeg", "conversion produced no output", statErr)
	}

	logging.WithContext(ctx, c.logger).Info("converted to canonical wav",
		logging.String("wav_path", wavPath),
		logging.Int("sample_rate", c.sampleRate),
		logging.Int("channels", c.channels),
		logging.Duration("elapsed", time.Since(started)))
	return nil
}

// tailOf keeps the end of the tool output, which is where ffmpeg puts the
// actionable error line.
func tailOf(output []byte) string {
	text := strings.TrimSpace(string(output))
	if text == "" {
		return "conversion failed"
	}
	if len(text) > maxErrorTail {
		text = text[len(text)-maxErrorTail:]
	}
	return text
}
