package main

import (
	"errors"
	"testing"

	"reel/internal/acquisition"
)

func TestFetchReportsAcquisitionError(t *testing.T) {
	env := setupCLITestEnv(t)

	// The stubbed yt-dlp produces no download, so a single primary attempt
	// with both fallback tiers disabled fails without touching the network.
	extra := "\n[acquisition]\nmax_attempts = 1\noembed_probe = false\nsecondary_fallback = false\n\n[logging]\nlevel = \"error\""
	if err := appendLine(env.configPath, extra); err != nil {
		t.Fatalf("extend config: %v", err)
	}

	_, _, err := runCLI(t, []string{"fetch", "https://www.youtube.com/watch?v=abcdefghijk"}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected fetch to fail with stubbed downloader")
	}
	var aerr *acquisition.Error
	if !errors.As(err, &aerr) {
		t.Fatalf("expected *acquisition.Error, got %T: %v", err, err)
	}
	if aerr.Kind.Terminal() {
		t.Fatalf("stub failure should stay retryable, got kind %s", aerr.Kind)
	}
}

func TestFetchRequiresURL(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"fetch", "   "}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected blank url rejection")
	}
}
