package acquisition

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"log/slog"

	"reel/internal/config"
	"reel/internal/identity"
	"reel/internal/logging"
	"reel/internal/media/ffprobe"
	"reel/internal/services"
)

// Prober reports whether the target looks publicly reachable before the
// extraction tiers run. Results are advisory only.
type Prober interface {
	Check(ctx context.Context, url string) ProbeResult
}

// Converter normalizes a downloaded container into the canonical WAV.
type Converter interface {
	ToCanonical(ctx context.Context, containerPath, wavPath string) error
}

// Inspector probes a finished artifact container. Used to backfill duration
// when the backend did not report one and to reject artifacts without an
// audio stream.
type Inspector interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// AgentRunner drives browser-assisted recovery once the scripted tiers fail.
type AgentRunner interface {
	Recover(ctx context.Context, url string) (*AgentOutcome, error)
}

// AgentOutcome mirrors the agent's completion report verbatim.
type AgentOutcome struct {
	Success  bool
	MediaURL string
	Info     map[string]any
	Message  string
}

// Deps bundles the collaborators the waterfall drives. Secondary, Direct,
// Agent, Probe, Converter, and Inspector may be nil; the matching tier or
// step is skipped.
type Deps struct {
	Primary      Backend
	Secondary    Backend
	Direct       DirectFetcher
	Agent        AgentRunner
	Converter    Converter
	Inspector    Inspector
	Probe        Prober
	Fingerprints *identity.Generator
}

// Downloader runs the tiered acquisition waterfall: strategy catalog via the
// primary backend, one secondary attempt, then agent recovery.
type Downloader struct {
	cfg    *config.Config
	logger *slog.Logger
	deps   Deps
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() time.Duration
}

// Option adjusts downloader behavior, used by tests to neutralize waits.
type Option func(*Downloader)

// WithSleep replaces the between-attempt wait.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(d *Downloader) {
		if fn != nil {
			d.sleep = fn
		}
	}
}

// WithJitter replaces the random component added to each backoff delay.
func WithJitter(fn func() time.Duration) Option {
	return func(d *Downloader) {
		if fn != nil {
			d.jitter = fn
		}
	}
}

// NewDownloader constructs the waterfall around the supplied collaborators.
func NewDownloader(cfg *config.Config, logger *slog.Logger, deps Deps, opts ...Option) *Downloader {
	if deps.Fingerprints == nil {
		deps.Fingerprints = identity.NewGenerator()
	}
	d := &Downloader{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "acquisition"),
		deps:   deps,
		sleep:  sleepContext,
		jitter: defaultJitter,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DownloadAudio fetches the audio track for url and returns the canonical
// artifact. Failures after URL validation come back as *Error carrying the
// last concrete cause.
func (d *Downloader) DownloadAudio(ctx context.Context, url string) (*AudioArtifact, error) {
	if err := ValidateURL(url); err != nil {
		return nil, err
	}
	if d.deps.Primary == nil && d.deps.Secondary == nil {
		return nil, services.Wrap(services.ErrConfiguration, "acquiring", "backends", "no acquisition backend configured", nil)
	}
	logger := logging.WithContext(ctx, d.logger)

	if err := os.MkdirAll(d.cfg.Paths.StagingDir, 0o755); err != nil {
		return nil, NewError(KindTransient, "create staging dir: "+err.Error())
	}
	scratch, err := os.MkdirTemp(d.cfg.Paths.StagingDir, "reel-")
	if err != nil {
		return nil, NewError(KindTransient, "create scratch dir: "+err.Error())
	}
	keepScratch := false
	defer func() {
		if !keepScratch {
			os.RemoveAll(scratch)
		}
	}()

	d.runProbe(ctx, logger, url)

	var lastErr error
	if d.deps.Primary != nil {
		artifact, err := d.runCatalog(ctx, logger, url, scratch)
		if err == nil {
			keepScratch = true
			return artifact, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if KindOf(err).Terminal() {
			return nil, asAcquisitionError(err)
		}
		lastErr = err
	}

	if d.deps.Secondary != nil && d.cfg.Acquisition.SecondaryFallback {
		logger.Info("promoting to secondary backend", logging.String("backend", d.deps.Secondary.Name()))
		artifact, err := d.runBackend(ctx, logger, d.deps.Secondary, Request{
			URL:         url,
			Fingerprint: d.deps.Fingerprints.Fingerprint(),
			ScratchDir:  scratch,
		}, d.deps.Secondary.Name())
		if err == nil {
			keepScratch = true
			return artifact, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if KindOf(err).Terminal() {
			return nil, asAcquisitionError(err)
		}
		logger.Warn("secondary backend failed",
			logging.String("backend", d.deps.Secondary.Name()),
			logging.String("kind", KindOf(err).String()),
			logging.Error(err))
		lastErr = err
	}

	if d.deps.Agent != nil {
		artifact, err := d.runAgent(ctx, logger, url, scratch)
		if err == nil {
			keepScratch = true
			return artifact, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, asAcquisitionError(err)
	}

	if lastErr == nil {
		return nil, NewError(KindTransient, "all extraction tiers were skipped")
	}
	return nil, asAcquisitionError(lastErr)
}

func (d *Downloader) runProbe(ctx context.Context, logger *slog.Logger, url string) {
	if d.deps.Probe == nil || !d.cfg.Acquisition.OEmbedProbe {
		return
	}
	result := d.deps.Probe.Check(ctx, url)
	if result.Accessible {
		logger.Info("accessibility probe passed",
			logging.String("title", result.Title),
			logging.String("author", result.Author))
		return
	}
	logger.Warn("accessibility probe reported restriction, continuing anyway",
		logging.String("reason", result.Reason))
}

// runCatalog walks the strategy catalog on the primary backend. Between
// attempts it waits min(2^(attempt-1), cap) seconds plus jitter.
func (d *Downloader) runCatalog(ctx context.Context, logger *slog.Logger, url, scratch string) (*AudioArtifact, error) {
	strategies := Catalog()
	if max := d.cfg.Acquisition.MaxAttempts; max > 0 && max < len(strategies) {
		strategies = strategies[:max]
	}
	var lastErr error
	for i, strategy := range strategies {
		attempt := i + 1
		if attempt > 1 {
			delay := backoffDelay(attempt, d.cfg.Acquisition.BackoffCapSeconds) + d.jitter()
			logger.Info("waiting before retry",
				logging.Int("attempt", attempt),
				logging.Duration("delay", delay))
			if err := d.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}
		req := Request{
			URL:         url,
			Strategy:    strategy,
			Fingerprint: d.deps.Fingerprints.Fingerprint(),
			ScratchDir:  scratch,
		}
		logger.Info("extraction attempt",
			logging.Int("attempt", attempt),
			logging.String("strategy", strategy.ID.String()),
			logging.String("user_agent", req.Fingerprint.UserAgent))
		artifact, err := d.runBackend(ctx, logger, d.deps.Primary, req, d.deps.Primary.Name()+"/"+strategy.ID.String())
		if err == nil {
			logger.Info("extraction succeeded",
				logging.Int("attempt", attempt),
				logging.String("strategy", strategy.ID.String()))
			return artifact, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		kind := KindOf(err)
		logger.Warn("extraction attempt failed",
			logging.Int("attempt", attempt),
			logging.String("strategy", strategy.ID.String()),
			logging.String("kind", kind.String()),
			logging.Error(err))
		if kind.Terminal() {
			return nil, err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = NewError(KindTransient, "strategy catalog is empty")
	}
	return nil, lastErr
}

func (d *Downloader) runBackend(ctx context.Context, logger *slog.Logger, backend Backend, req Request, method string) (*AudioArtifact, error) {
	attemptCtx, cancel := d.attemptContext(ctx)
	defer cancel()
	download, err := backend.FetchAudio(attemptCtx, req)
	if err != nil {
		return nil, err
	}
	return d.finalize(ctx, logger, req.ScratchDir, download, method)
}

func (d *Downloader) runAgent(ctx context.Context, logger *slog.Logger, url, scratch string) (*AudioArtifact, error) {
	logger.Info("promoting to browser agent")
	outcome, err := d.deps.Agent.Recover(ctx, url)
	if err != nil {
		return nil, err
	}
	if !outcome.Success {
		message := strings.TrimSpace(outcome.Message)
		if message == "" {
			message = "agent could not recover the target"
		}
		return nil, NewError(ClassifyText(message), message)
	}
	mediaURL := strings.TrimSpace(outcome.MediaURL)
	if mediaURL == "" {
		return nil, NewError(KindDecisionFailure, "agent reported success without a media url")
	}
	if d.deps.Direct == nil {
		return nil, NewError(KindSessionSetup, "no direct fetcher configured for agent-recovered urls")
	}
	logger.Info("fetching agent-recovered media url")
	attemptCtx, cancel := d.attemptContext(ctx)
	download, err := d.deps.Direct.FetchDirect(attemptCtx, Request{
		URL:         mediaURL,
		Fingerprint: d.deps.Fingerprints.Fingerprint(),
		ScratchDir:  scratch,
	})
	cancel()
	if err != nil {
		return nil, err
	}
	overlayAgentInfo(download, outcome.Info)
	return d.finalize(ctx, logger, scratch, download, "agent")
}

// finalize converts the container to the canonical WAV, removes the
// container on success, and validates the artifact: non-empty, and carrying
// an audio stream when an inspector is wired. On conversion failure the
// container itself becomes the artifact.
func (d *Downloader) finalize(ctx context.Context, logger *slog.Logger, scratch string, download *Download, method string) (*AudioArtifact, error) {
	if download == nil || strings.TrimSpace(download.Path) == "" {
		return nil, NewError(KindTransient, "backend returned no audio file")
	}
	artifactPath := download.Path
	canonical := false
	if d.deps.Converter != nil {
		wavPath := filepath.Join(scratch, artifactBaseName(download)+".wav")
		if err := d.deps.Converter.ToCanonical(ctx, download.Path, wavPath); err != nil {
			logger.Warn("conversion failed, keeping original container", logging.Error(err))
		} else {
			if wavPath != download.Path {
				os.Remove(download.Path)
			}
			artifactPath = wavPath
			canonical = true
		}
	}
	info, err := os.Stat(artifactPath)
	if err != nil || info.Size() == 0 {
		return nil, NewError(KindTransient, "artifact missing or empty after download")
	}
	duration := download.Info.DurationSeconds
	if d.deps.Inspector != nil {
		probe, probeErr := d.deps.Inspector.Inspect(ctx, artifactPath)
		switch {
		case probeErr != nil:
			logger.Warn("artifact inspection failed", logging.Error(probeErr))
		case probe.AudioStreamCount() == 0:
			return nil, NewError(KindTransient, "artifact has no audio stream")
		default:
			if duration <= 0 {
				duration = probe.DurationSeconds()
			}
			if canonical && probe.HasVideo() {
				logger.Warn("canonical artifact still carries a video stream",
					logging.String("artifact", artifactPath))
			}
		}
	}
	title := strings.TrimSpace(download.Info.Title)
	if title == "" {
		title = artifactBaseName(download)
	}
	return &AudioArtifact{
		FilePath:        artifactPath,
		WorkDir:         scratch,
		Title:           title,
		DurationSeconds: duration,
		Canonical:       canonical,
		Method:          method,
		Source:          download.Info,
	}, nil
}

func (d *Downloader) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(d.cfg.Acquisition.AttemptTimeout) * time.Second
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func artifactBaseName(download *Download) string {
	if id := strings.TrimSpace(download.Info.ID); id != "" {
		return id
	}
	base := filepath.Base(download.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func overlayAgentInfo(download *Download, info map[string]any) {
	if download == nil || info == nil {
		return
	}
	if download.Info.Title == "" {
		if title, ok := info["title"].(string); ok {
			download.Info.Title = title
		}
	}
	if download.Info.Uploader == "" {
		if uploader, ok := info["uploader"].(string); ok {
			download.Info.Uploader = uploader
		}
	}
	if download.Info.DurationSeconds == 0 {
		if duration, ok := info["duration"].(float64); ok {
			download.Info.DurationSeconds = duration
		}
	}
}

func asAcquisitionError(err error) error {
	if err == nil {
		return nil
	}
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr
	}
	return NewError(KindOf(err), err.Error())
}

// backoffDelay returns the base wait before the given attempt: exponential
// from 2 seconds, capped.
func backoffDelay(attempt, capSeconds int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	shift := attempt - 1
	if shift > 30 {
		shift = 30
	}
	base := time.Duration(1<<uint(shift)) * time.Second
	if capSeconds > 0 {
		if capped := time.Duration(capSeconds) * time.Second; base > capped {
			base = capped
		}
	}
	return base
}

func defaultJitter() time.Duration {
	return time.Duration(rand.Int64N(int64(time.Second)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
