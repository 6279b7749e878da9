package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	LibraryDir string `toml:"library_dir"`
	LogDir     string `toml:"log_dir"`
}

// Acquisition contains settings for the download strategy waterfall.
type Acquisition struct {
	MaxAttempts       int    `toml:"max_attempts"`
	AttemptTimeout    int    `toml:"attempt_timeout"`
	BackoffCapSeconds int    `toml:"backoff_cap_seconds"`
	OEmbedProbe       bool   `toml:"oembed_probe"`
	SecondaryFallback bool   `toml:"secondary_fallback"`
	YtdlpCommand      string `toml:"ytdlp_command"`
}

// Convert contains settings for canonical audio conversion.
type Convert struct {
	FFmpegCommand  string `toml:"ffmpeg_command"`
	FFprobeCommand string `toml:"ffprobe_command"`
	SampleRate     int    `toml:"sample_rate"`
	Channels       int    `toml:"channels"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// LLM contains shared model connection settings used as fallback for the
// agent's decision and resolver endpoints.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Agent contains configuration for the vision-guided browser fallback.
type Agent struct {
	Enabled bool `toml:"enabled"`

	// Decision model settings - if not set, falls back to [llm] settings.
	DecisionAPIKey  string `toml:"decision_api_key"`
	DecisionBaseURL string `toml:"decision_base_url"`
	DecisionModel   string `toml:"decision_model"`

	// Resolver model settings - if not set, falls back to [llm] settings.
	ResolverAPIKey  string `toml:"resolver_api_key"`
	ResolverBaseURL string `toml:"resolver_base_url"`
	ResolverModel   string `toml:"resolver_model"`

	MaxIterations          int    `toml:"max_iterations"`
	ScreenshotDelaySeconds int    `toml:"screenshot_delay_seconds"`
	ActionDelaySeconds     int    `toml:"action_delay_seconds"`
	BrowserTimeoutSeconds  int    `toml:"browser_timeout_seconds"`
	DisplaySize            string `toml:"display_size"`
	KeepTranscripts        bool   `toml:"keep_transcripts"`

	XvfbCommand    string `toml:"xvfb_command"`
	BrowserCommand string `toml:"browser_command"`
	ScrotCommand   string `toml:"scrot_command"`
	XdotoolCommand string `toml:"xdotool_command"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Completed      bool   `toml:"completed"`
	Failed         bool   `toml:"failed"`
	AgentEngaged   bool   `toml:"agent_engaged"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`

	// StageOverrides raises or lowers the log level for individual workflow
	// stages, keyed by stage name ("acquire", "organize").
	StageOverrides map[string]string `toml:"stage_overrides"`
}

// Config encapsulates all configuration values for Reel.
//
// Configuration sections by subsystem:
//   - Paths: staging/library/log directories
//   - Acquisition: waterfall attempt limits, timeouts, backoff, probes
//   - Convert: ffmpeg canonical audio settings
//   - LLM: shared model connection fallback
//   - Agent: vision-guided browser fallback settings
//   - Workflow: daemon polling intervals
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Acquisition   Acquisition   `toml:"acquisition"`
	Convert       Convert       `toml:"convert"`
	LLM           LLM           `toml:"llm"`
	Agent         Agent         `toml:"agent"`
	Workflow      Workflow      `toml:"workflow"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reel/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/reel/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// LibraryDir is created on a best-effort basis so the daemon can run when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryDir) != "" {
		// Best-effort to avoid failing config load when storage is offline.
		_ = os.MkdirAll(c.Paths.LibraryDir, 0o755)
	}
	return nil
}

// YtdlpBinary returns the yt-dlp command, defaulting when unset.
func (c *Config) YtdlpBinary() string {
	if cmd := strings.TrimSpace(c.Acquisition.YtdlpCommand); cmd != "" {
		return cmd
	}
	return "yt-dlp"
}

// FFmpegBinary returns the ffmpeg command, defaulting when unset.
func (c *Config) FFmpegBinary() string {
	if cmd := strings.TrimSpace(c.Convert.FFmpegCommand); cmd != "" {
		return cmd
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe command, defaulting when unset.
func (c *Config) FFprobeBinary() string {
	if cmd := strings.TrimSpace(c.Convert.FFprobeCommand); cmd != "" {
		return cmd
	}
	return "ffprobe"
}

// XvfbBinary returns the Xvfb command, defaulting when unset.
func (c *Config) XvfbBinary() string {
	if cmd := strings.TrimSpace(c.Agent.XvfbCommand); cmd != "" {
		return cmd
	}
	return "Xvfb"
}

// BrowserBinary returns the browser command, defaulting when unset.
func (c *Config) BrowserBinary() string {
	if cmd := strings.TrimSpace(c.Agent.BrowserCommand); cmd != "" {
		return cmd
	}
	return "chromium"
}

// ScrotBinary returns the scrot command, defaulting when unset.
func (c *Config) ScrotBinary() string {
	if cmd := strings.TrimSpace(c.Agent.ScrotCommand); cmd != "" {
		return cmd
	}
	return "scrot"
}

// XdotoolBinary returns the xdotool command, defaulting when unset.
func (c *Config) XdotoolBinary() string {
	if cmd := strings.TrimSpace(c.Agent.XdotoolCommand); cmd != "" {
		return cmd
	}
	return "xdotool"
}

// DisplayBounds parses the configured display size into width and height.
func (c *Config) DisplayBounds() (int, int) {
	parts := strings.SplitN(strings.TrimSpace(c.Agent.DisplaySize), "x", 2)
	if len(parts) != 2 {
		return defaultDisplayWidth, defaultDisplayHeight
	}
	width, werr := strconv.Atoi(strings.TrimSpace(parts[0]))
	height, herr := strconv.Atoi(strings.TrimSpace(parts[1]))
	if werr != nil || herr != nil || width <= 0 || height <= 0 {
		return defaultDisplayWidth, defaultDisplayHeight
	}
	return width, height
}

func expandPath(pathValue string) (string, error) {
	trimmed := strings.TrimSpace(pathValue)
	if trimmed == "" {
		return "", nil
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			trimmed = home
		} else if strings.HasPrefix(trimmed, "~/") {
			trimmed = filepath.Join(home, trimmed[2:])
		}
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", pathValue, err)
	}
	return abs, nil
}

// ExpandPath expands ~ and returns an absolute path.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the embedded sample configuration to the given path.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig bundles resolved connection settings for one model endpoint.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// DecisionLLM returns the decision model settings with [llm] fallback applied.
func (c *Config) DecisionLLM() LLMConfig {
	return c.resolveLLM(c.Agent.DecisionAPIKey, c.Agent.DecisionBaseURL, c.Agent.DecisionModel)
}

// ResolverLLM returns the resolver model settings with [llm] fallback applied.
func (c *Config) ResolverLLM() LLMConfig {
	return c.resolveLLM(c.Agent.ResolverAPIKey, c.Agent.ResolverBaseURL, c.Agent.ResolverModel)
}

func (c *Config) resolveLLM(apiKey, baseURL, model string) LLMConfig {
	resolved := LLMConfig{
		APIKey:         strings.TrimSpace(apiKey),
		BaseURL:        strings.TrimSpace(baseURL),
		Model:          strings.TrimSpace(model),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
	if resolved.APIKey == "" {
		resolved.APIKey = strings.TrimSpace(c.LLM.APIKey)
	}
	if resolved.BaseURL == "" {
		resolved.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	}
	if resolved.Model == "" {
		resolved.Model = strings.TrimSpace(c.LLM.Model)
	}
	return resolved
}
