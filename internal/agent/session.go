package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"reel/internal/config"
	"reel/internal/fileutil"
	"reel/internal/logging"
)

const (
	displayStartupDelay = 2 * time.Second
	browserStartupDelay = 5 * time.Second
	teardownGrace       = 500 * time.Millisecond
	devtoolsTimeout     = 5 * time.Second

	defaultBrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/132.0.0.0 Safari/537.36"
)

// Session owns one isolated virtual display plus browser process pair.
// Both run in their own process groups so teardown can take down
// everything they spawned, and each session picks a random display and
// DevTools port so concurrent sessions never collide.
type Session struct {
	id         string
	workDir    string
	display    string
	debugPort  int
	archiveDir string
	keep       bool
	logger     *slog.Logger

	xvfb    *exec.Cmd
	browser *exec.Cmd
	actions *actionRunner
	http    *http.Client

	shots     int
	closeOnce sync.Once
}

type sessionSettings struct {
	sleep     func(ctx context.Context, d time.Duration) error
	userAgent string
	display   string
	debugPort int
}

// SessionOption adjusts session startup behavior.
type SessionOption func(*sessionSettings)

// WithSessionSleep replaces the startup and input pacing sleeps.
func WithSessionSleep(sleep func(ctx context.Context, d time.Duration) error) SessionOption {
	return func(s *sessionSettings) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// WithUserAgent overrides the browser user agent string.
func WithUserAgent(userAgent string) SessionOption {
	return func(s *sessionSettings) {
		if userAgent != "" {
			s.userAgent = userAgent
		}
	}
}

// WithDisplay pins the X display instead of picking a random one.
func WithDisplay(display string) SessionOption {
	return func(s *sessionSettings) {
		if display != "" {
			s.display = display
		}
	}
}

// NewSession boots a virtual display and a browser on it. The caller must
// Close the session on every path, including after errors from its methods.
func NewSession(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...SessionOption) (*Session, error) {
	settings := sessionSettings{
		sleep:     sleepContext,
		userAgent: defaultBrowserUserAgent,
		display:   fmt.Sprintf(":%d", 100+rand.IntN(900)),
		debugPort: 9222 + rand.IntN(700),
	}
	for _, opt := range opts {
		opt(&settings)
	}

	width, height := cfg.DisplayBounds()

	if err := os.MkdirAll(cfg.Paths.StagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	workDir, err := os.MkdirTemp(cfg.Paths.StagingDir, "agent-")
	if err != nil {
		return nil, fmt.Errorf("create session workdir: %w", err)
	}

	s := &Session{
		id:         uuid.NewString(),
		workDir:    workDir,
		display:    settings.display,
		debugPort:  settings.debugPort,
		archiveDir: filepath.Join(cfg.Paths.LogDir, "agent"),
		keep:       cfg.Agent.KeepTranscripts,
		logger:     logging.NewComponentLogger(logger, "agent"),
		actions:    newActionRunner(settings.display, cfg.XdotoolBinary(), cfg.ScrotBinary(), settings.sleep),
		http:       &http.Client{Timeout: devtoolsTimeout},
	}

	s.xvfb = exec.Command(cfg.XvfbBinary(), s.display, "-screen", "0", fmt.Sprintf("%dx%dx24", width, height))
	s.xvfb.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := s.xvfb.Start(); err != nil {
		os.RemoveAll(workDir)
		return nil, fmt.Errorf("start virtual display: %w", err)
	}
	go func() { _ = s.xvfb.Wait() }()

	if err := settings.sleep(ctx, displayStartupDelay); err != nil {
		s.Close()
		return nil, err
	}

	s.browser = exec.Command(cfg.BrowserBinary(), browserFlags(settings.userAgent, width, height, s.debugPort)...)
	s.browser.Env = append(os.Environ(), "DISPLAY="+s.display)
	s.browser.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := s.browser.Start(); err != nil {
		s.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	go func() { _ = s.browser.Wait() }()

	if err := settings.sleep(ctx, browserStartupDelay); err != nil {
		s.Close()
		return nil, err
	}

	s.logger.Info("browser session started",
		logging.String("session_id", s.id),
		logging.String("display", s.display),
		logging.Int("devtools_port", s.debugPort),
		logging.String("workdir", s.workDir))
	return s, nil
}

// browserFlags assembles the launch arguments: headful on the virtual
// display, automation fingerprints suppressed, DevTools exposed for URL
// extraction.
func browserFlags(userAgent string, width, height, debugPort int) []string {
	return []string{
		"--no-sandbox",
		"--disable-dev-shm-usage",
		"--disable-blink-features=AutomationControlled",
		"--disable-features=VizDisplayCompositor",
		"--disable-extensions",
		"--disable-plugins",
		"--disable-images",
		"--disable-web-security",
		"--disable-gpu",
		"--user-agent=" + userAgent,
		fmt.Sprintf("--window-size=%d,%d", width, height),
		"--start-maximized",
		fmt.Sprintf("--remote-debugging-port=%d", debugPort),
	}
}

// ID returns the unique session identifier.
func (s *Session) ID() string { return s.id }

// WorkDir returns the session scratch directory. It is removed on Close.
func (s *Session) WorkDir() string { return s.workDir }

// Navigate loads a URL through the browser address bar.
func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.actions.navigate(ctx, url)
}

// Click presses the left mouse button at the given screen coordinates.
func (s *Session) Click(ctx context.Context, x, y int) error {
	return s.actions.click(ctx, x, y)
}

// Type replaces the content of the focused input field.
func (s *Session) Type(ctx context.Context, text string, pressEnter bool) error {
	return s.actions.typeText(ctx, text, pressEnter)
}

// Screenshot captures the display into a numbered PNG in the workdir and
// returns its bytes.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	s.shots++
	path := filepath.Join(s.workDir, fmt.Sprintf("screenshot_%03d.png", s.shots))
	if err := s.actions.screenshot(ctx, path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read screenshot: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("screenshot file is empty")
	}
	return data, nil
}

// MediaURL asks the browser's DevTools endpoint for open tabs and returns
// the best candidate: a direct media stream if one is loaded, otherwise
// the current page URL.
func (s *Session) MediaURL(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("http://127.0.0.1:%d/json/list", s.debugPort), nil)
	if err != nil {
		return "", fmt.Errorf("build devtools request: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("query devtools: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("devtools returned status %d", resp.StatusCode)
	}

	var tabs []struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tabs); err != nil {
		return "", fmt.Errorf("decode devtools tabs: %w", err)
	}

	var pageURL string
	for _, tab := range tabs {
		if tab.Type != "page" || tab.URL == "" || tab.URL == "about:blank" {
			continue
		}
		if strings.Contains(tab.URL, "googlevideo.com/videoplayback") {
			return tab.URL, nil
		}
		if pageURL == "" {
			pageURL = tab.URL
		}
	}
	if pageURL == "" {
		return "", errors.New("no page url available from browser")
	}
	return pageURL, nil
}

// Close tears the session down: both process groups are signalled, the
// transcript is archived when configured, and the workdir is removed.
// Safe to call multiple times and from deferred paths.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		killProcessGroup(s.browser)
		killProcessGroup(s.xvfb)
		s.archiveTranscript()
		if err := os.RemoveAll(s.workDir); err != nil {
			s.logger.Warn("session workdir removal failed",
				logging.String("workdir", s.workDir), logging.Error(err))
		}
		s.logger.Info("browser session closed", logging.String("session_id", s.id))
	})
}

// killProcessGroup signals the command's process group: TERM first, a
// short grace period, then KILL. The grace sleep is deliberately not
// context bound so teardown completes even after cancellation.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	pid := cmd.Process.Pid
	if err := unix.Kill(-pid, unix.SIGTERM); err != nil {
		_ = cmd.Process.Kill()
		return
	}
	time.Sleep(teardownGrace)
	_ = unix.Kill(-pid, unix.SIGKILL)
}

func (s *Session) archiveTranscript() {
	if !s.keep {
		return
	}
	src := filepath.Join(s.workDir, transcriptFileName)
	if _, err := os.Stat(src); err != nil {
		return
	}
	if err := os.MkdirAll(s.archiveDir, 0o755); err != nil {
		s.logger.Warn("transcript archive directory failed", logging.Error(err))
		return
	}
	dst := filepath.Join(s.archiveDir, "agent-"+s.id+".log")
	if err := fileutil.CopyFile(src, dst); err != nil {
		s.logger.Warn("transcript archive failed", logging.Error(err))
		return
	}
	s.logger.Info("agent transcript archived", logging.String("path", dst))
}
