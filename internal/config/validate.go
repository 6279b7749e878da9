package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateAcquisition(); err != nil {
		return err
	}
	if err := c.validateConvert(); err != nil {
		return err
	}
	if err := c.validateAgent(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		return errors.New("paths.staging_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateAcquisition() error {
	return ensurePositiveMap(map[string]int{
		"acquisition.max_attempts":        c.Acquisition.MaxAttempts,
		"acquisition.attempt_timeout":     c.Acquisition.AttemptTimeout,
		"acquisition.backoff_cap_seconds": c.Acquisition.BackoffCapSeconds,
	})
}

func (c *Config) validateConvert() error {
	return ensurePositiveMap(map[string]int{
		"convert.sample_rate":     c.Convert.SampleRate,
		"convert.channels":        c.Convert.Channels,
		"convert.timeout_seconds": c.Convert.TimeoutSeconds,
	})
}

func (c *Config) validateAgent() error {
	if !c.Agent.Enabled {
		return nil
	}
	if c.DecisionLLM().Model == "" {
		return errors.New("agent.decision_model must be set when agent.enabled is true (or set llm.model)")
	}
	if c.ResolverLLM().Model == "" {
		return errors.New("agent.resolver_model must be set when agent.enabled is true (or set llm.model)")
	}
	if err := ensurePositiveMap(map[string]int{
		"agent.max_iterations":          c.Agent.MaxIterations,
		"agent.browser_timeout_seconds": c.Agent.BrowserTimeoutSeconds,
	}); err != nil {
		return err
	}
	if err := validateDisplaySize(c.Agent.DisplaySize); err != nil {
		return err
	}
	return nil
}

func validateDisplaySize(value string) error {
	parts := strings.SplitN(strings.TrimSpace(value), "x", 2)
	if len(parts) != 2 {
		return fmt.Errorf("agent.display_size must look like %q, got %q", defaultDisplaySize, value)
	}
	width, werr := strconv.Atoi(strings.TrimSpace(parts[0]))
	height, herr := strconv.Atoi(strings.TrimSpace(parts[1]))
	if werr != nil || herr != nil || width <= 0 || height <= 0 {
		return fmt.Errorf("agent.display_size must look like %q, got %q", defaultDisplaySize, value)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"workflow.heartbeat_interval":   c.Workflow.HeartbeatInterval,
		"workflow.heartbeat_timeout":    c.Workflow.HeartbeatTimeout,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must exceed workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
