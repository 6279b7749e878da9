package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"reel/internal/config"
)

func TestLoadDefaultsExpandPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantStaging := filepath.Join(tempHome, ".local", "share", "reel", "staging")
	if cfg.Paths.StagingDir != wantStaging {
		t.Fatalf("unexpected staging dir: got %q want %q", cfg.Paths.StagingDir, wantStaging)
	}
	if cfg.Paths.LibraryDir != filepath.Join(tempHome, "library") {
		t.Fatalf("unexpected library dir: %q", cfg.Paths.LibraryDir)
	}
	if cfg.Agent.Enabled {
		t.Fatal("expected agent tier disabled by default")
	}
	if cfg.Acquisition.MaxAttempts != 8 {
		t.Fatalf("unexpected max attempts: %d", cfg.Acquisition.MaxAttempts)
	}
	if cfg.Acquisition.BackoffCapSeconds != 30 {
		t.Fatalf("unexpected backoff cap: %d", cfg.Acquisition.BackoffCapSeconds)
	}
	if !cfg.Acquisition.OEmbedProbe || !cfg.Acquisition.SecondaryFallback {
		t.Fatal("expected probe and secondary fallback enabled by default")
	}
	if cfg.Convert.SampleRate != 16000 || cfg.Convert.Channels != 1 {
		t.Fatalf("unexpected convert defaults: %d/%d", cfg.Convert.SampleRate, cfg.Convert.Channels)
	}
	if cfg.Agent.MaxIterations != 20 {
		t.Fatalf("unexpected iteration budget: %d", cfg.Agent.MaxIterations)
	}
	if cfg.Workflow.QueuePollInterval != config.Default().Workflow.QueuePollInterval {
		t.Fatalf("unexpected poll interval: %d", cfg.Workflow.QueuePollInterval)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %q/%q", cfg.Logging.Format, cfg.Logging.Level)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StagingDir, cfg.Paths.LibraryDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "reel.toml")

	type payload struct {
		Acquisition struct {
			MaxAttempts       int  `toml:"max_attempts"`
			SecondaryFallback bool `toml:"secondary_fallback"`
		} `toml:"acquisition"`
		Agent struct {
			Enabled       bool   `toml:"enabled"`
			DecisionModel string `toml:"decision_model"`
			ResolverModel string `toml:"resolver_model"`
			DisplaySize   string `toml:"display_size"`
		} `toml:"agent"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Acquisition.MaxAttempts = 3
	custom.Acquisition.SecondaryFallback = false
	custom.Agent.Enabled = true
	custom.Agent.DecisionModel = "qwen2.5-vl"
	custom.Agent.ResolverModel = "ui-tars"
	custom.Agent.DisplaySize = "1280x720"
	custom.Logging.Format = "json"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Acquisition.MaxAttempts != 3 {
		t.Fatalf("expected max attempts 3, got %d", cfg.Acquisition.MaxAttempts)
	}
	if cfg.Acquisition.SecondaryFallback {
		t.Fatal("expected secondary fallback disabled")
	}
	if !cfg.Agent.Enabled {
		t.Fatal("expected agent enabled")
	}
	if cfg.Agent.DecisionModel != "qwen2.5-vl" || cfg.Agent.ResolverModel != "ui-tars" {
		t.Fatalf("unexpected agent models: %q/%q", cfg.Agent.DecisionModel, cfg.Agent.ResolverModel)
	}
	width, height := cfg.DisplayBounds()
	if width != 1280 || height != 720 {
		t.Fatalf("unexpected display bounds: %dx%d", width, height)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json logging, got %q", cfg.Logging.Format)
	}
}

func TestLLMKeyEnvFallback(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "reel.toml")
	if err := os.WriteFile(configPath, []byte("[llm]\nmodel = \"demo\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("REEL_LLM_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "env-key")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Fatalf("expected env fallback key, got %q", cfg.LLM.APIKey)
	}
}

func TestDecisionResolverFallBackToSharedLLM(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Model = "shared-model"
	cfg.LLM.BaseURL = "http://models.local/v1"
	cfg.Agent.ResolverModel = "ui-tars"

	decision := cfg.DecisionLLM()
	if decision.Model != "shared-model" || decision.BaseURL != "http://models.local/v1" {
		t.Fatalf("unexpected decision settings: %+v", decision)
	}
	resolver := cfg.ResolverLLM()
	if resolver.Model != "ui-tars" {
		t.Fatalf("expected resolver model override, got %q", resolver.Model)
	}
	if resolver.BaseURL != "http://models.local/v1" {
		t.Fatalf("expected resolver base url fallback, got %q", resolver.BaseURL)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "[acquisition]") {
		t.Fatalf("sample config missing acquisition section: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}

	if runtime.GOOS != "windows" {
		if err := config.CreateSample(path); err == nil {
			t.Fatal("expected error when sample already exists")
		}
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Acquisition.MaxAttempts = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive max attempts")
	}

	cfg = config.Default()
	cfg.Convert.SampleRate = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive sample rate")
	}

	cfg = config.Default()
	cfg.Agent.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when agent enabled without models")
	}

	cfg = config.Default()
	cfg.Agent.Enabled = true
	cfg.LLM.Model = "shared"
	cfg.Agent.DisplaySize = "bogus"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for malformed display size")
	}

	cfg = config.Default()
	cfg.Workflow.QueuePollInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive poll interval")
	}
}

func TestBinaryOverrides(t *testing.T) {
	cfg := config.Default()
	if cfg.YtdlpBinary() != "yt-dlp" || cfg.FFmpegBinary() != "ffmpeg" || cfg.XvfbBinary() != "Xvfb" {
		t.Fatalf("unexpected binary defaults: %q %q %q", cfg.YtdlpBinary(), cfg.FFmpegBinary(), cfg.XvfbBinary())
	}
	cfg.Acquisition.YtdlpCommand = "/opt/yt-dlp"
	cfg.Agent.BrowserCommand = "chromium-browser"
	if cfg.YtdlpBinary() != "/opt/yt-dlp" {
		t.Fatalf("expected yt-dlp override, got %q", cfg.YtdlpBinary())
	}
	if cfg.BrowserBinary() != "chromium-browser" {
		t.Fatalf("expected browser override, got %q", cfg.BrowserBinary())
	}
}
