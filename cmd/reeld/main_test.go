package main

import (
	"os"
	"testing"

	"reel/internal/config"
)

func TestRunOptionsUsesConfiguredLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Level = "debug"

	opts := runOptions(&cfg)
	if opts.LogLevel != "debug" {
		t.Fatalf("expected log level debug, got %q", opts.LogLevel)
	}
	if opts.Development {
		t.Fatal("expected development mode to stay off")
	}

	if got := runOptions(nil); got.LogLevel != "" {
		t.Fatalf("expected empty log level for nil config, got %q", got.LogLevel)
	}
}

func TestLoadConfigCreatesDirectories(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	for _, dir := range []string{cfg.Paths.StagingDir, cfg.Paths.LibraryDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %s to be a directory", dir)
		}
	}
}
