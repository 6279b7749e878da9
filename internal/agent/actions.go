package agent

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	keyTimeout        = 5 * time.Second
	typeTimeout       = 10 * time.Second
	screenshotTimeout = 10 * time.Second

	clickSettle = 200 * time.Millisecond
	keySettle   = 250 * time.Millisecond
	focusSettle = 500 * time.Millisecond
	pageSettle  = 3 * time.Second
)

// actionRunner synthesizes keyboard and mouse input against one X display.
// Every subprocess call carries its own timeout so a wedged tool degrades
// to a recorded action failure instead of hanging the loop.
type actionRunner struct {
	xdotool string
	scrot   string
	env     []string
	sleep   func(ctx context.Context, d time.Duration) error
}

func newActionRunner(display, xdotool, scrot string, sleep func(context.Context, time.Duration) error) *actionRunner {
	return &actionRunner{
		xdotool: xdotool,
		scrot:   scrot,
		env:     append(os.Environ(), "DISPLAY="+display),
		sleep:   sleep,
	}
}

func (a *actionRunner) run(ctx context.Context, timeout time.Duration, binary string, args ...string) error {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, binary, args...)
	cmd.Env = a.env
	output, err := cmd.CombinedOutput()
	if err != nil {
		name := filepath.Base(binary)
		if len(args) > 0 {
			name += " " + args[0]
		}
		if detail := strings.TrimSpace(string(output)); detail != "" {
			return fmt.Errorf("%s: %w: %s", name, err, detail)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (a *actionRunner) screenshot(ctx context.Context, path string) error {
	return a.run(ctx, screenshotTimeout, a.scrot, "--overwrite", path)
}

func (a *actionRunner) click(ctx context.Context, x, y int) error {
	if err := a.run(ctx, keyTimeout, a.xdotool, "mousemove", strconv.Itoa(x), strconv.Itoa(y), "click", "1"); err != nil {
		return err
	}
	return a.sleep(ctx, clickSettle)
}

func (a *actionRunner) keyPress(ctx context.Context, keys string) error {
	return a.run(ctx, keyTimeout, a.xdotool, "key", keys)
}

// typeText replaces the content of the focused field: select all, clear,
// then type the replacement.
func (a *actionRunner) typeText(ctx context.Context, text string, pressEnter bool) error {
	if text == "" {
		return nil
	}
	if err := a.keyPress(ctx, "ctrl+a"); err != nil {
		return err
	}
	if err := a.sleep(ctx, keySettle); err != nil {
		return err
	}
	if err := a.keyPress(ctx, "BackSpace"); err != nil {
		return err
	}
	if err := a.sleep(ctx, keySettle); err != nil {
		return err
	}
	if err := a.run(ctx, typeTimeout, a.xdotool, "type", text); err != nil {
		return err
	}
	if !pressEnter {
		return nil
	}
	if err := a.sleep(ctx, keySettle); err != nil {
		return err
	}
	return a.keyPress(ctx, "Return")
}

// navigate drives the address bar with keystrokes: focus the browser
// window, select the URL bar, type the address, submit, let the page load.
func (a *actionRunner) navigate(ctx context.Context, url string) error {
	// A fresh session has exactly one window which already holds focus,
	// so a failed window search is not fatal.
	_ = a.run(ctx, keyTimeout, a.xdotool, "search", "--name", "Chrom", "windowfocus")
	if err := a.sleep(ctx, focusSettle); err != nil {
		return err
	}
	if err := a.keyPress(ctx, "ctrl+l"); err != nil {
		return err
	}
	if err := a.sleep(ctx, focusSettle); err != nil {
		return err
	}
	if err := a.run(ctx, typeTimeout, a.xdotool, "type", url); err != nil {
		return err
	}
	if err := a.sleep(ctx, focusSettle); err != nil {
		return err
	}
	if err := a.keyPress(ctx, "Return"); err != nil {
		return err
	}
	return a.sleep(ctx, pageSettle)
}
