package acquiring

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"log/slog"

	"reel/internal/acquisition"
	"reel/internal/acquisition/native"
	"reel/internal/acquisition/ytdlp"
	"reel/internal/agent"
	"reel/internal/config"
	"reel/internal/logging"
	"reel/internal/media/audio"
	"reel/internal/media/ffprobe"
	"reel/internal/notifications"
	"reel/internal/queue"
	"reel/internal/services"
	"reel/internal/services/llm"
	"reel/internal/stage"
)

// Acquirer manages the audio acquisition workflow stage.
type Acquirer struct {
	store      *queue.Store
	cfg        *config.Config
	logger     *slog.Logger
	notifier   notifications.Service
	deps       acquisition.Deps
	opts       []acquisition.Option
	downloader *acquisition.Downloader
}

// NewAcquirer constructs the acquisition handler using default dependencies.
func NewAcquirer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Acquirer {
	notifier := notifications.NewService(cfg)
	return NewAcquirerWithDependencies(cfg, store, logger, notifier, DefaultDeps(cfg, logger))
}

// DefaultDeps wires the production waterfall collaborators: yt-dlp primary,
// the native secondary backend, ffmpeg conversion, ffprobe artifact
// inspection, plus the optional probe and agent tiers. One-shot fetches
// share this wiring with the daemon stage.
func DefaultDeps(cfg *config.Config, logger *slog.Logger) acquisition.Deps {
	deps := acquisition.Deps{}

	primary, err := ytdlp.New(cfg.YtdlpBinary(), logger)
	if err != nil {
		logger.Warn("yt-dlp client unavailable", logging.Error(err))
	} else {
		deps.Primary = primary
		deps.Direct = primary
	}
	deps.Secondary = native.New(logger)
	deps.Converter = audio.NewConverter(cfg, logger)
	deps.Inspector = ffprobe.NewTool(cfg.FFprobeBinary())
	if cfg.Acquisition.OEmbedProbe {
		probe, probeErr := acquisition.NewOEmbedProbe()
		if probeErr != nil {
			logger.Warn("oembed probe unavailable", logging.Error(probeErr))
		} else {
			deps.Probe = probe
		}
	}
	if cfg.Agent.Enabled {
		deps.Agent = newAgentTier(cfg, logger)
	}

	return deps
}

// NewAcquirerWithDependencies allows injecting all collaborators (used in
// tests). The agent tier is wrapped so its engagement raises a notification
// regardless of which runner backs it.
func NewAcquirerWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service, deps acquisition.Deps, opts ...acquisition.Option) *Acquirer {
	if deps.Agent != nil {
		deps.Agent = &notifyingAgent{
			inner:    deps.Agent,
			notifier: notifier,
			logger:   logging.NewComponentLogger(logger, "acquirer"),
		}
	}
	a := &Acquirer{
		store:    store,
		cfg:      cfg,
		notifier: notifier,
		deps:     deps,
		opts:     opts,
	}
	a.SetLogger(logger)
	return a
}

func newAgentTier(cfg *config.Config, logger *slog.Logger) acquisition.AgentRunner {
	decisionCfg := cfg.DecisionLLM()
	resolverCfg := cfg.ResolverLLM()
	decision := llm.NewClient(llm.Config{
		APIKey:         decisionCfg.APIKey,
		BaseURL:        decisionCfg.BaseURL,
		Model:          decisionCfg.Model,
		TimeoutSeconds: decisionCfg.TimeoutSeconds,
	})
	resolver := llm.NewClient(llm.Config{
		APIKey:         resolverCfg.APIKey,
		BaseURL:        resolverCfg.BaseURL,
		Model:          resolverCfg.Model,
		TimeoutSeconds: resolverCfg.TimeoutSeconds,
	})
	width, height := cfg.DisplayBounds()
	return agent.NewRunner(cfg, logger, agent.NewModels(decision, resolver, width, height))
}

type loggerAware interface {
	SetLogger(*slog.Logger)
}

// SetLogger updates the stage's logging destination while preserving
// component labeling, and propagates the new destination to the tier
// collaborators so their output lands in the same item log.
func (a *Acquirer) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = logging.NewNop()
	}
	a.logger = logging.NewComponentLogger(logger, "acquirer")
	for _, dep := range []any{a.deps.Primary, a.deps.Secondary, a.deps.Direct, a.deps.Agent, a.deps.Converter, a.deps.Inspector} {
		if aware, ok := dep.(loggerAware); ok {
			aware.SetLogger(logger)
		}
	}
	a.downloader = acquisition.NewDownloader(a.cfg, logger, a.deps, a.opts...)
}

func (a *Acquirer) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, a.logger)
	if item.ProgressStage == "" {
		item.ProgressStage = "Acquiring"
	}
	item.ProgressMessage = "Starting acquisition"
	item.ProgressPercent = 0
	item.ErrorMessage = ""
	logger.Info(
		"starting acquisition preparation",
		logging.String("source_url", strings.TrimSpace(item.SourceURL)),
	)
	return nil
}

func (a *Acquirer) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, a.logger)
	if a.downloader == nil {
		return services.Wrap(services.ErrConfiguration, "acquiring", "execute", "Acquisition downloader unavailable", nil)
	}

	url := strings.TrimSpace(item.SourceURL)
	logger.Info(
		"starting acquisition execution",
		logging.String("source_url", url),
		logging.Bool("agent_enabled", a.deps.Agent != nil),
	)

	artifact, err := a.downloader.DownloadAudio(ctx, url)
	if err != nil {
		return err
	}

	item.ArtifactPath = artifact.FilePath
	meta := queue.MetadataFromArtifact(artifact)
	if err := queue.PersistMetadata(ctx, a.store, item, meta); err != nil {
		return services.Wrap(services.ErrTransient, "acquiring", "persist metadata", "Failed to persist acquisition metadata", err)
	}
	item.SetProgressComplete("Acquired", "Audio artifact staged")
	logger.Info(
		"acquisition completed",
		logging.String("artifact", artifact.FilePath),
		logging.String("method", artifact.Method),
		logging.Bool("canonical", artifact.Canonical),
		logging.Float64("duration_seconds", artifact.DurationSeconds),
	)
	return nil
}

// HealthCheck verifies the acquisition stage dependencies.
func (a *Acquirer) HealthCheck(ctx context.Context) stage.Health {
	const name = "acquire"
	if a.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(a.cfg.Paths.StagingDir) == "" {
		return stage.Unhealthy(name, "staging directory not configured")
	}
	if a.deps.Primary == nil && a.deps.Secondary == nil {
		return stage.Unhealthy(name, "no acquisition backend available")
	}
	if a.deps.Primary != nil {
		binary := strings.TrimSpace(a.cfg.YtdlpBinary())
		if _, err := exec.LookPath(binary); err != nil {
			return stage.Unhealthy(name, fmt.Sprintf("yt-dlp binary %q not found", binary))
		}
	}
	if a.deps.Converter != nil {
		binary := strings.TrimSpace(a.cfg.FFmpegBinary())
		if _, err := exec.LookPath(binary); err != nil {
			return stage.Unhealthy(name, fmt.Sprintf("ffmpeg binary %q not found", binary))
		}
	}
	return stage.Healthy(name)
}

// notifyingAgent publishes the agent-engaged event when the waterfall
// promotes to the browser tier, then delegates to the wrapped runner.
type notifyingAgent struct {
	inner    acquisition.AgentRunner
	notifier notifications.Service
	logger   *slog.Logger
}

func (n *notifyingAgent) Recover(ctx context.Context, url string) (*acquisition.AgentOutcome, error) {
	if n.notifier != nil {
		if err := n.notifier.Publish(ctx, notifications.EventAgentEngaged, notifications.Payload{"url": url}); err != nil {
			n.logger.Warn("agent engagement notification failed", logging.Error(err))
		}
	}
	return n.inner.Recover(ctx, url)
}

func (n *notifyingAgent) SetLogger(logger *slog.Logger) {
	n.logger = logging.NewComponentLogger(logger, "acquirer")
	if aware, ok := n.inner.(loggerAware); ok {
		aware.SetLogger(logger)
	}
}
