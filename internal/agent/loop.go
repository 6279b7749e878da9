package agent

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"reel/internal/acquisition"
	"reel/internal/config"
	"reel/internal/logging"
)

const (
	defaultIterationBudget = 20
	maxWaitSeconds         = 30
)

const objectiveFormat = "Recover a playable media URL from the video page at %s"

// browserSession is the slice of Session the loop drives. Tests substitute
// a scripted fake.
type browserSession interface {
	WorkDir() string
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, x, y int) error
	Type(ctx context.Context, text string, pressEnter bool) error
	Screenshot(ctx context.Context) ([]byte, error)
	MediaURL(ctx context.Context) (string, error)
	Close()
}

// Runner drives the vision-guided browser loop, the last acquisition tier.
// Each Recover call runs in a fresh session; concurrent calls share no
// mutable state.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
	models Models
	start  func(ctx context.Context) (browserSession, error)
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRunner builds the agent tier from configuration and a Models
// implementation.
func NewRunner(cfg *config.Config, logger *slog.Logger, models Models) *Runner {
	r := &Runner{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "agent"),
		models: models,
		sleep:  sleepContext,
	}
	r.start = func(ctx context.Context) (browserSession, error) {
		return NewSession(ctx, cfg, logger)
	}
	return r
}

// SetLogger updates the runner's logging destination, used when the workflow
// hands stages an item-scoped logger. Sessions started afterwards log to the
// same destination.
func (r *Runner) SetLogger(logger *slog.Logger) {
	r.logger = logging.NewComponentLogger(logger, "agent")
	r.start = func(ctx context.Context) (browserSession, error) {
		return NewSession(ctx, r.cfg, logger)
	}
}

// Recover runs the observe-decide-act loop against a fresh browser session
// until the model reports completion, the iteration budget runs out, or
// the context is cancelled. The session is torn down on every path.
func (r *Runner) Recover(ctx context.Context, url string) (*acquisition.AgentOutcome, error) {
	logger := logging.WithContext(ctx, r.logger)

	budget := r.cfg.Agent.MaxIterations
	if budget <= 0 {
		budget = defaultIterationBudget
	}
	iterationPause := time.Duration(r.cfg.Agent.ScreenshotDelaySeconds) * time.Second
	actionPause := time.Duration(r.cfg.Agent.ActionDelaySeconds) * time.Second

	session, err := r.start(ctx)
	if err != nil {
		return nil, acquisition.NewError(acquisition.KindSessionSetup, err.Error())
	}
	defer session.Close()

	log := newTranscript(filepath.Join(session.WorkDir(), transcriptFileName))
	logger.Info("agent recovery started", logging.String("url", url), logging.Int("budget", budget))

	if err := session.Navigate(ctx, url); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.AppendAction(fmt.Sprintf("Failed to open %s: %s", url, err))
	} else {
		log.AppendAction("Opened " + url)
	}

	objective := fmt.Sprintf(objectiveFormat, url)

	for iteration := 1; iteration <= budget; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		shot, err := session.Screenshot(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("screenshot failed", logging.Int("iteration", iteration), logging.Error(err))
			log.AppendAction("Screenshot failed: " + err.Error())
			if err := r.sleep(ctx, iterationPause); err != nil {
				return nil, err
			}
			continue
		}

		decision, err := r.models.Decide(ctx, DecisionRequest{
			Objective:  objective,
			Screenshot: shot,
			History:    log.Text(),
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, acquisition.NewError(acquisition.KindDecisionFailure, "decision model: "+err.Error())
		}
		if decision.Summary != "" {
			step := log.AppendStep(decision.Summary)
			logger.Info("agent step",
				logging.Int("iteration", iteration),
				logging.Int("step", step),
				logging.String("summary", decision.Summary))
		}

		outcome, err := r.execute(ctx, logger, session, log, shot, decision.Actions, actionPause)
		if err != nil {
			return nil, err
		}
		if outcome != nil {
			return outcome, nil
		}

		if err := r.sleep(ctx, iterationPause); err != nil {
			return nil, err
		}
	}

	return nil, acquisition.NewError(acquisition.KindBudgetExceeded,
		fmt.Sprintf("task not completed within %d iterations", budget))
}

// execute dispatches one decision's actions in order. Action failures are
// recorded in the transcript and never abort the loop; only completion,
// successful extraction, or context cancellation end the run early.
func (r *Runner) execute(ctx context.Context, logger *slog.Logger, session browserSession, log *transcript, shot []byte, actions []Action, pause time.Duration) (*acquisition.AgentOutcome, error) {
	for i, action := range actions {
		if i > 0 {
			if err := r.sleep(ctx, pause); err != nil {
				return nil, err
			}
		}

		switch act := action.(type) {
		case CompleteAction:
			log.AppendAction("Reported completion")
			logger.Info("agent reported completion", logging.Bool("success", act.Success))
			return &acquisition.AgentOutcome{
				Success:  act.Success,
				MediaURL: act.MediaURL,
				Info:     act.Info,
				Message:  act.Message,
			}, nil

		case ExtractAction:
			mediaURL, err := session.MediaURL(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				log.AppendAction("Media URL extraction failed: " + err.Error())
				continue
			}
			log.AppendAction("Extracted media URL from the session")
			logger.Info("agent extracted media url")
			return &acquisition.AgentOutcome{
				Success:  true,
				MediaURL: mediaURL,
				Info:     map[string]any{"method": "browser_extraction", "quality": act.Quality},
			}, nil

		case NavigateAction:
			if err := session.Navigate(ctx, act.URL); err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				log.AppendAction(fmt.Sprintf("Failed to navigate to %s: %s", act.URL, err))
				continue
			}
			log.AppendAction("Navigated to " + act.URL)

		case ClickAction:
			x, y, found, err := r.models.ResolveCoordinates(ctx, act.Element, shot)
			if err != nil || !found {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				reason := "element not found"
				if err != nil {
					reason = err.Error()
				}
				log.AppendAction(fmt.Sprintf("Could not click %q: %s", act.Element, reason))
				continue
			}
			if err := session.Click(ctx, x, y); err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				log.AppendAction(fmt.Sprintf("Failed to click %q at (%d, %d): %s", act.Element, x, y, err))
				continue
			}
			log.AppendAction(fmt.Sprintf("Clicked %q at (%d, %d)", act.Element, x, y))

		case TypeAction:
			if err := session.Type(ctx, act.Text, act.PressEnter); err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				log.AppendAction("Failed to type: " + err.Error())
				continue
			}
			log.AppendAction(fmt.Sprintf("Typed %q", truncateForLog(act.Text, 50)))

		case WaitAction:
			seconds := act.Seconds
			if seconds <= 0 {
				continue
			}
			if seconds > maxWaitSeconds {
				seconds = maxWaitSeconds
			}
			if err := r.sleep(ctx, time.Duration(seconds*float64(time.Second))); err != nil {
				return nil, err
			}
			log.AppendAction(fmt.Sprintf("Waited %g seconds", seconds))
		}
	}
	return nil, nil
}

func truncateForLog(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
