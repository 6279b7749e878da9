package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"reel/internal/queue"
)

func TestStagingListAndCleanAll(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"staging", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("staging list: %v", err)
	}
	requireContains(t, out, "No scratch directories found")

	scratch := filepath.Join(env.cfg.Paths.StagingDir, "reel-cli01")
	if err := os.Mkdir(scratch, 0o755); err != nil {
		t.Fatalf("create scratch: %v", err)
	}
	if err := os.WriteFile(filepath.Join(scratch, "audio.wav"), []byte("pcm"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	out, _, err = runCLI(t, []string{"staging", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("staging list: %v", err)
	}
	requireContains(t, out, "reel-cli01")
	requireContains(t, out, "Total: 1 directories")

	out, _, err = runCLI(t, []string{"staging", "clean", "--all"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("staging clean: %v", err)
	}
	requireContains(t, out, "Removed 1 scratch directories")
	if _, err := os.Stat(scratch); !os.IsNotExist(err) {
		t.Fatal("scratch directory should have been removed")
	}

	out, _, err = runCLI(t, []string{"staging", "clean", "--all"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("staging clean: %v", err)
	}
	requireContains(t, out, "No scratch directories to clean")
}

func TestStagingCleanKeepsReferencedDirs(t *testing.T) {
	env := setupCLITestEnv(t)

	stagingDir := env.cfg.Paths.StagingDir
	keep := filepath.Join(stagingDir, "reel-keep01")
	drop := filepath.Join(stagingDir, "reel-drop01")
	stamp := time.Now().Add(-time.Hour)
	for _, dir := range []string{keep, drop} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatalf("create %s: %v", dir, err)
		}
		if err := os.Chtimes(dir, stamp, stamp); err != nil {
			t.Fatalf("age %s: %v", dir, err)
		}
	}

	ctx := context.Background()
	item, err := env.store.NewItem(ctx, "https://example.com/watch?v=keep")
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	item.Status = queue.StatusAcquired
	item.ArtifactPath = filepath.Join(keep, "audio.wav")
	if err := env.store.Update(ctx, item); err != nil {
		t.Fatalf("update item: %v", err)
	}

	out, _, err := runCLI(t, []string{"staging", "clean"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("staging clean: %v", err)
	}
	requireContains(t, out, "Removed 1 orphaned scratch directories")

	if _, err := os.Stat(keep); err != nil {
		t.Fatalf("referenced scratch should remain: %v", err)
	}
	if _, err := os.Stat(drop); !os.IsNotExist(err) {
		t.Fatal("orphaned scratch should have been removed")
	}
}
