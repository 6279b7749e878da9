package main

import (
	"fmt"

	"reel/internal/config"
	"reel/internal/daemonrun"
)

func loadConfig() (*config.Config, error) {
	cfg, _, _, err := config.Load("")
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("prepare directories: %w", err)
	}
	return cfg, nil
}

func runOptions(cfg *config.Config) daemonrun.Options {
	opts := daemonrun.Options{}
	if cfg != nil {
		opts.LogLevel = cfg.Logging.Level
	}
	return opts
}
