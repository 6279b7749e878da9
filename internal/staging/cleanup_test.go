package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"reel/internal/logging"
)

func mkdirAged(t *testing.T, parent, name string, age time.Duration) string {
	t.Helper()
	dir := filepath.Join(parent, name)
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	if age > 0 {
		stamp := time.Now().Add(-age)
		if err := os.Chtimes(dir, stamp, stamp); err != nil {
			t.Fatalf("age %s: %v", name, err)
		}
	}
	return dir
}

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	oldDir := mkdirAged(t, tmpDir, "reel-old", 2*time.Hour)
	recentDir := mkdirAged(t, tmpDir, "reel-recent", 0)

	result := CleanStale(context.Background(), tmpDir, time.Hour, logging.NewNop())

	if len(result.Removed) != 1 {
		t.Fatalf("expected 1 removed, got %d", len(result.Removed))
	}
	if result.Removed[0] != oldDir {
		t.Errorf("expected %s to be removed, got %s", oldDir, result.Removed[0])
	}

	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Error("old directory should have been removed")
	}
	if _, err := os.Stat(recentDir); err != nil {
		t.Error("recent directory should still exist")
	}
}

func TestCleanStaleIgnoresFiles(t *testing.T) {
	tmpDir := t.TempDir()

	oldFile := filepath.Join(tmpDir, "leftover.wav")
	if err := os.WriteFile(oldFile, []byte("test"), 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}
	oldTime := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldFile, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	result := CleanStale(context.Background(), tmpDir, time.Hour, logging.NewNop())

	if len(result.Removed) != 0 {
		t.Errorf("expected no removals for files, got %d", len(result.Removed))
	}
	if _, err := os.Stat(oldFile); err != nil {
		t.Error("file should not have been removed")
	}
}

func TestCleanOrphanedEmptyDir(t *testing.T) {
	for _, dir := range []string{"", "   "} {
		result := CleanOrphaned(context.Background(), dir, nil, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanOrphanedRemovesUnreferencedDirs(t *testing.T) {
	tmpDir := t.TempDir()

	activeDir := mkdirAged(t, tmpDir, "reel-active1234", time.Hour)
	orphanDir := mkdirAged(t, tmpDir, "reel-orphan5678", time.Hour)

	activeDirs := map[string]struct{}{
		"reel-active1234": {},
	}

	result := CleanOrphaned(context.Background(), tmpDir, activeDirs, logging.NewNop())

	if len(result.Removed) != 1 {
		t.Fatalf("expected 1 removed, got %d", len(result.Removed))
	}
	if result.Removed[0] != orphanDir {
		t.Errorf("expected %s to be removed, got %s", orphanDir, result.Removed[0])
	}

	if _, err := os.Stat(orphanDir); !os.IsNotExist(err) {
		t.Error("orphaned directory should have been removed")
	}
	if _, err := os.Stat(activeDir); err != nil {
		t.Error("referenced directory should still exist")
	}
}

func TestCleanOrphanedKeepsRecentDirs(t *testing.T) {
	tmpDir := t.TempDir()

	freshDir := mkdirAged(t, tmpDir, "reel-fresh", 0)

	result := CleanOrphaned(context.Background(), tmpDir, map[string]struct{}{}, logging.NewNop())

	if len(result.Removed) != 0 {
		t.Errorf("expected fresh directory to be spared, got %v", result.Removed)
	}
	if _, err := os.Stat(freshDir); err != nil {
		t.Error("fresh directory should still exist")
	}
}

func TestListDirectoriesInvalidPaths(t *testing.T) {
	for _, path := range []string{"", "/nonexistent/path/12345"} {
		dirs, err := ListDirectories(path)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", path, err)
		}
		if dirs != nil {
			t.Errorf("expected nil for path %q, got %v", path, dirs)
		}
	}
}

func TestListDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	older := mkdirAged(t, tmpDir, "reel-older", time.Hour)
	newer := mkdirAged(t, tmpDir, "reel-newer", 0)

	file := filepath.Join(tmpDir, "not-a-dir.txt")
	if err := os.WriteFile(file, []byte("test"), 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}

	innerFile := filepath.Join(older, "audio.wav")
	if err := os.WriteFile(innerFile, []byte("12345"), 0o644); err != nil {
		t.Fatalf("create inner file: %v", err)
	}
	stamp := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, stamp, stamp); err != nil {
		t.Fatalf("re-age older: %v", err)
	}

	dirs, err := ListDirectories(tmpDir)
	if err != nil {
		t.Fatalf("ListDirectories: %v", err)
	}

	if len(dirs) != 2 {
		t.Fatalf("expected 2 directories, got %d", len(dirs))
	}
	if dirs[0].Path != newer {
		t.Errorf("expected newest directory first, got %s", dirs[0].Path)
	}

	var foundOlder bool
	for _, d := range dirs {
		if d.Name == "reel-older" {
			foundOlder = true
			if d.Size != 5 {
				t.Errorf("size = %d, want 5", d.Size)
			}
		}
	}
	if !foundOlder {
		t.Error("did not find reel-older in results")
	}
}

func TestDirInfo(t *testing.T) {
	tmpDir := t.TempDir()

	dir := mkdirAged(t, tmpDir, "reel-scratch", 0)

	dirs, err := ListDirectories(tmpDir)
	if err != nil {
		t.Fatalf("ListDirectories: %v", err)
	}

	if len(dirs) != 1 {
		t.Fatalf("expected 1 directory, got %d", len(dirs))
	}

	info := dirs[0]
	if info.Name != "reel-scratch" {
		t.Errorf("Name = %q, want reel-scratch", info.Name)
	}
	if info.Path != dir {
		t.Errorf("Path = %q, want %q", info.Path, dir)
	}
	if info.ModTime.IsZero() {
		t.Error("ModTime should not be zero")
	}
}
