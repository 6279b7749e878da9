package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAcquisition()
	c.normalizeConvert()
	c.normalizeLLM()
	c.normalizeAgent()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAcquisition() {
	if c.Acquisition.MaxAttempts <= 0 {
		c.Acquisition.MaxAttempts = defaultMaxAttempts
	}
	if c.Acquisition.AttemptTimeout <= 0 {
		c.Acquisition.AttemptTimeout = defaultAttemptTimeout
	}
	if c.Acquisition.BackoffCapSeconds <= 0 {
		c.Acquisition.BackoffCapSeconds = defaultBackoffCapSeconds
	}
	c.Acquisition.YtdlpCommand = strings.TrimSpace(c.Acquisition.YtdlpCommand)
}

func (c *Config) normalizeConvert() {
	if c.Convert.SampleRate <= 0 {
		c.Convert.SampleRate = defaultSampleRate
	}
	if c.Convert.Channels <= 0 {
		c.Convert.Channels = defaultChannels
	}
	if c.Convert.TimeoutSeconds <= 0 {
		c.Convert.TimeoutSeconds = defaultConvertTimeoutSeconds
	}
	c.Convert.FFmpegCommand = strings.TrimSpace(c.Convert.FFmpegCommand)
	c.Convert.FFprobeCommand = strings.TrimSpace(c.Convert.FFprobeCommand)
}

func (c *Config) normalizeLLM() {
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("REEL_LLM_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeAgent() {
	c.Agent.DecisionAPIKey = strings.TrimSpace(c.Agent.DecisionAPIKey)
	c.Agent.DecisionBaseURL = strings.TrimSpace(c.Agent.DecisionBaseURL)
	c.Agent.DecisionModel = strings.TrimSpace(c.Agent.DecisionModel)
	c.Agent.ResolverAPIKey = strings.TrimSpace(c.Agent.ResolverAPIKey)
	c.Agent.ResolverBaseURL = strings.TrimSpace(c.Agent.ResolverBaseURL)
	c.Agent.ResolverModel = strings.TrimSpace(c.Agent.ResolverModel)
	if c.Agent.MaxIterations <= 0 {
		c.Agent.MaxIterations = defaultMaxIterations
	}
	if c.Agent.ScreenshotDelaySeconds < 0 {
		c.Agent.ScreenshotDelaySeconds = defaultScreenshotDelaySeconds
	}
	if c.Agent.ActionDelaySeconds < 0 {
		c.Agent.ActionDelaySeconds = defaultActionDelaySeconds
	}
	if c.Agent.BrowserTimeoutSeconds <= 0 {
		c.Agent.BrowserTimeoutSeconds = defaultBrowserTimeoutSeconds
	}
	c.Agent.DisplaySize = strings.TrimSpace(c.Agent.DisplaySize)
	if c.Agent.DisplaySize == "" {
		c.Agent.DisplaySize = defaultDisplaySize
	}
	c.Agent.XvfbCommand = strings.TrimSpace(c.Agent.XvfbCommand)
	c.Agent.BrowserCommand = strings.TrimSpace(c.Agent.BrowserCommand)
	c.Agent.ScrotCommand = strings.TrimSpace(c.Agent.ScrotCommand)
	c.Agent.XdotoolCommand = strings.TrimSpace(c.Agent.XdotoolCommand)
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
