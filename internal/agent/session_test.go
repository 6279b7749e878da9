package agent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"reel/internal/config"
	"reel/internal/logging"
)

func writeStub(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return path
}

func instantSleep(context.Context, time.Duration) error { return nil }

func testSessionConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	bin := t.TempDir()

	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Agent.XvfbCommand = writeStub(t, bin, "Xvfb", "sleep 60")
	cfg.Agent.BrowserCommand = writeStub(t, bin, "chromium", "sleep 60")
	cfg.Agent.ScrotCommand = writeStub(t, bin, "scrot", `printf 'PNG-BYTES' > "$2"`)
	cfg.Agent.XdotoolCommand = writeStub(t, bin, "xdotool", "exit 0")
	return &cfg
}

func TestSessionLifecycle(t *testing.T) {
	cfg := testSessionConfig(t)
	session, err := NewSession(context.Background(), cfg, logging.NewNop(), WithSessionSleep(instantSleep))
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}

	workDir := session.WorkDir()
	if !strings.HasPrefix(filepath.Base(workDir), "agent-") {
		t.Fatalf("unexpected workdir name %q", workDir)
	}
	if _, err := os.Stat(workDir); err != nil {
		t.Fatalf("workdir missing: %v", err)
	}

	shot, err := session.Screenshot(context.Background())
	if err != nil {
		t.Fatalf("Screenshot returned error: %v", err)
	}
	if string(shot) != "PNG-BYTES" {
		t.Fatalf("unexpected screenshot bytes %q", shot)
	}
	if _, err := os.Stat(filepath.Join(workDir, "screenshot_001.png")); err != nil {
		t.Fatalf("first screenshot not numbered: %v", err)
	}
	if _, err := session.Screenshot(context.Background()); err != nil {
		t.Fatalf("second Screenshot returned error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(workDir, "screenshot_002.png")); err != nil {
		t.Fatalf("second screenshot not numbered: %v", err)
	}

	displayPid := session.xvfb.Process.Pid
	browserPid := session.browser.Process.Pid

	session.Close()

	if _, err := os.Stat(workDir); !os.IsNotExist(err) {
		t.Fatalf("workdir should be removed after Close, stat err = %v", err)
	}
	waitForExit(t, displayPid, "virtual display")
	waitForExit(t, browserPid, "browser")

	// Close is idempotent.
	session.Close()
}

func waitForExit(t *testing.T, pid int, what string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		if err := unix.Kill(pid, 0); err != nil {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("%s still running after Close", what)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestSessionArchivesTranscriptWhenConfigured(t *testing.T) {
	cfg := testSessionConfig(t)
	cfg.Agent.KeepTranscripts = true

	session, err := NewSession(context.Background(), cfg, logging.NewNop(), WithSessionSleep(instantSleep))
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	content := transcriptHeader + "Step 1: test run\n"
	if err := os.WriteFile(filepath.Join(session.WorkDir(), transcriptFileName), []byte(content), 0o644); err != nil {
		t.Fatalf("seed transcript: %v", err)
	}

	session.Close()

	archived := filepath.Join(cfg.Paths.LogDir, "agent", "agent-"+session.ID()+".log")
	data, err := os.ReadFile(archived)
	if err != nil {
		t.Fatalf("archived transcript missing: %v", err)
	}
	if string(data) != content {
		t.Fatalf("archived transcript differs:\n%s", data)
	}
}

func TestSessionDiscardsTranscriptByDefault(t *testing.T) {
	cfg := testSessionConfig(t)

	session, err := NewSession(context.Background(), cfg, logging.NewNop(), WithSessionSleep(instantSleep))
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(session.WorkDir(), transcriptFileName), []byte("throwaway"), 0o644); err != nil {
		t.Fatalf("seed transcript: %v", err)
	}

	session.Close()

	if _, err := os.Stat(filepath.Join(cfg.Paths.LogDir, "agent")); !os.IsNotExist(err) {
		t.Fatalf("no archive expected, stat err = %v", err)
	}
}

func TestSessionStartFailureLeavesNoWorkdir(t *testing.T) {
	cfg := testSessionConfig(t)
	cfg.Agent.XvfbCommand = filepath.Join(t.TempDir(), "missing-xvfb")

	_, err := NewSession(context.Background(), cfg, logging.NewNop(), WithSessionSleep(instantSleep))
	if err == nil || !strings.Contains(err.Error(), "start virtual display") {
		t.Fatalf("expected display start error, got %v", err)
	}

	entries, err := os.ReadDir(cfg.Paths.StagingDir)
	if err != nil {
		t.Fatalf("read staging dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("staging dir should be empty, found %d entries", len(entries))
	}
}

func TestSessionBrowserStartFailureCleansUp(t *testing.T) {
	cfg := testSessionConfig(t)
	cfg.Agent.BrowserCommand = filepath.Join(t.TempDir(), "missing-browser")

	_, err := NewSession(context.Background(), cfg, logging.NewNop(), WithSessionSleep(instantSleep))
	if err == nil || !strings.Contains(err.Error(), "start browser") {
		t.Fatalf("expected browser start error, got %v", err)
	}

	entries, err := os.ReadDir(cfg.Paths.StagingDir)
	if err != nil {
		t.Fatalf("read staging dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("staging dir should be empty, found %d entries", len(entries))
	}
}

func TestSessionInputSequences(t *testing.T) {
	cfg := testSessionConfig(t)
	argsLog := filepath.Join(t.TempDir(), "xdotool-args.log")
	bin := t.TempDir()
	cfg.Agent.XdotoolCommand = writeStub(t, bin, "xdotool", `printf '%s\n' "$*" >> `+argsLog)

	session, err := NewSession(context.Background(), cfg, logging.NewNop(), WithSessionSleep(instantSleep))
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	defer session.Close()

	ctx := context.Background()
	if err := session.Click(ctx, 640, 360); err != nil {
		t.Fatalf("Click returned error: %v", err)
	}
	if err := session.Type(ctx, "hello world", true); err != nil {
		t.Fatalf("Type returned error: %v", err)
	}
	if err := session.Navigate(ctx, "https://video.example.com/watch?v=abc"); err != nil {
		t.Fatalf("Navigate returned error: %v", err)
	}

	data, err := os.ReadFile(argsLog)
	if err != nil {
		t.Fatalf("read args log: %v", err)
	}
	log := string(data)
	for _, want := range []string{
		"mousemove 640 360 click 1",
		"key ctrl+a",
		"key BackSpace",
		"type hello world",
		"key Return",
		"key ctrl+l",
		"type https://video.example.com/watch?v=abc",
	} {
		if !strings.Contains(log, want) {
			t.Fatalf("args log missing %q:\n%s", want, log)
		}
	}
}

func TestSessionScreenshotFailures(t *testing.T) {
	cfg := testSessionConfig(t)
	bin := t.TempDir()
	cfg.Agent.ScrotCommand = writeStub(t, bin, "scrot", "exit 1")

	session, err := NewSession(context.Background(), cfg, logging.NewNop(), WithSessionSleep(instantSleep))
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	defer session.Close()

	if _, err := session.Screenshot(context.Background()); err == nil {
		t.Fatal("expected error from failing capture tool")
	}
}

func TestSessionScreenshotRejectsEmptyCapture(t *testing.T) {
	cfg := testSessionConfig(t)
	bin := t.TempDir()
	cfg.Agent.ScrotCommand = writeStub(t, bin, "scrot", `: > "$2"`)

	session, err := NewSession(context.Background(), cfg, logging.NewNop(), WithSessionSleep(instantSleep))
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	defer session.Close()

	_, err = session.Screenshot(context.Background())
	if err == nil || !strings.Contains(err.Error(), "empty") {
		t.Fatalf("expected empty capture error, got %v", err)
	}
}

func devtoolsSession(t *testing.T, handler http.HandlerFunc) (*Session, func()) {
	t.Helper()
	server := httptest.NewServer(handler)
	parsed, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	port, err := strconv.Atoi(parsed.Port())
	if err != nil {
		t.Fatalf("parse server port: %v", err)
	}
	s := &Session{debugPort: port, http: server.Client(), logger: logging.NewNop()}
	return s, server.Close
}

func TestSessionMediaURLPrefersStreamTab(t *testing.T) {
	session, closeServer := devtoolsSession(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/list" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`[
			{"type":"page","url":"https://video.example.com/watch?v=abc"},
			{"type":"page","url":"https://rr3.googlevideo.com/videoplayback?id=42"},
			{"type":"background_page","url":"chrome-extension://x"}
		]`))
	})
	defer closeServer()

	got, err := session.MediaURL(context.Background())
	if err != nil {
		t.Fatalf("MediaURL returned error: %v", err)
	}
	if got != "https://rr3.googlevideo.com/videoplayback?id=42" {
		t.Fatalf("unexpected media url %q", got)
	}
}

func TestSessionMediaURLFallsBackToPage(t *testing.T) {
	session, closeServer := devtoolsSession(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"type":"page","url":"about:blank"},
			{"type":"page","url":"https://video.example.com/watch?v=abc"}
		]`))
	})
	defer closeServer()

	got, err := session.MediaURL(context.Background())
	if err != nil {
		t.Fatalf("MediaURL returned error: %v", err)
	}
	if got != "https://video.example.com/watch?v=abc" {
		t.Fatalf("unexpected media url %q", got)
	}
}

func TestSessionMediaURLNoTabs(t *testing.T) {
	session, closeServer := devtoolsSession(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	defer closeServer()

	if _, err := session.MediaURL(context.Background()); err == nil {
		t.Fatal("expected error when no tabs are open")
	}
}
