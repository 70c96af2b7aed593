package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Session-logic failures block start with a message; everything after start
// degrades soft.
var (
	ErrNoPrompts           = errors.New("no prompts configured")
	ErrListenerUnavailable = errors.New("speech listener unavailable")
)

// Listener produces one utterance per call. Implementations wrap speech
// recognition or, for manual runs, a terminal prompt. Cancellation flows
// through the context.
type Listener interface {
	Listen(ctx context.Context) (string, error)
}

// Device is the slice of the connection handle the controller drives.
type Device interface {
	Activate(ctx context.Context, intensity float64) error
	Stop(ctx context.Context) error
}

// Hooks surface controller events to the caller. Nil hooks are skipped.
type Hooks struct {
	// Announce delivers the expanded prompt the participant should speak.
	Announce func(prompt string)
	// Clicker marks the reward instant when the clicker is enabled.
	Clicker func()
	// Feedback reports each match attempt.
	Feedback func(matched bool, transcript string, score float64)
	// Reward reports each reinforcement tick before the device fires.
	Reward func(step int, tick Tick)
}

// ControllerOptions configures NewController. Settings fall back to
// DefaultSettings, Matcher to the levenshtein matcher.
type ControllerOptions struct {
	Prompts  []string
	Settings *Settings
	Device   Device
	Listener Listener
	Matcher  Matcher
	Hooks    Hooks
	Logger   *logrus.Logger
}

// Controller runs the call-and-response loop: announce a prompt, await an
// utterance, fuzzy-match it, and on success fire one reinforcement tick on
// the device. A mismatch retries the same prompt without advancing anything.
type Controller struct {
	session  *Session
	settings *Settings
	prompts  []string
	device   Device
	listener Listener
	matcher  Matcher
	hooks    Hooks
	logger   *logrus.Logger

	promptIndex int
	teardown    sync.Once
}

func NewController(opts ControllerOptions) (*Controller, error) {
	settings := opts.Settings
	if settings == nil {
		settings = DefaultSettings()
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if opts.Device == nil {
		return nil, fmt.Errorf("device is required")
	}
	if settings.PromptsEnabled {
		if len(opts.Prompts) == 0 {
			return nil, ErrNoPrompts
		}
		if opts.Listener == nil {
			return nil, ErrListenerUnavailable
		}
	}

	matcher := opts.Matcher
	if matcher == nil {
		matcher = NewMatcher()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}

	c := &Controller{
		session:  NewSession(settings),
		settings: settings,
		prompts:  append([]string(nil), opts.Prompts...),
		device:   opts.Device,
		listener: opts.Listener,
		matcher:  matcher,
		hooks:    opts.Hooks,
		logger:   logger,
	}
	if settings.RandomizePrompts && len(c.prompts) > 0 {
		c.promptIndex = c.session.rng.Intn(len(c.prompts))
	}
	return c, nil
}

// Run drives the loop until the session window closes or ctx cancels.
// Teardown always runs: the listener dies with ctx and the device gets a
// best-effort stop.
func (c *Controller) Run(ctx context.Context) error {
	defer c.Shutdown()

	for !c.session.Complete() {
		if err := ctx.Err(); err != nil {
			return err
		}

		if c.settings.PromptsEnabled {
			matched, err := c.promptCycle(ctx)
			if err != nil {
				return err
			}
			if !matched {
				continue
			}
		}

		if err := c.rewardCycle(ctx); err != nil {
			return err
		}
	}

	c.logger.WithField("steps", c.session.StepCount()).Info("Session complete")
	return nil
}

// promptCycle announces the current prompt and scores one utterance against
// it.
func (c *Controller) promptCycle(ctx context.Context) (bool, error) {
	prompt := c.expand(c.prompts[c.promptIndex])
	if c.hooks.Announce != nil {
		c.hooks.Announce(prompt)
	}

	transcript, err := c.listener.Listen(ctx)
	if err != nil {
		return false, fmt.Errorf("listen failed: %w", err)
	}

	ok, score := c.matcher.Match(transcript, []string{prompt})
	if c.hooks.Feedback != nil {
		c.hooks.Feedback(ok, transcript, score)
	}
	if !ok {
		c.logger.WithFields(logrus.Fields{
			"transcript": transcript,
			"score":      fmt.Sprintf("%.2f", score),
		}).Debug("Transcript mismatch, retrying")
		return false, nil
	}

	c.advancePrompt()
	return true, nil
}

// rewardCycle draws the next triple and fires the device for the reward
// window. Device write failures degrade soft so the schedule keeps its
// cadence.
func (c *Controller) rewardCycle(ctx context.Context) error {
	tick := c.session.Next()
	if c.hooks.Reward != nil {
		c.hooks.Reward(c.session.StepCount(), tick)
	}
	if c.settings.ClickerEnabled && c.hooks.Clicker != nil {
		c.hooks.Clicker()
	}

	if err := c.device.Activate(ctx, tick.Intensity); err != nil {
		c.logger.WithError(err).Warn("Device activation failed")
	}
	if err := wait(ctx, tick.Reward); err != nil {
		return err
	}
	if err := c.device.Stop(ctx); err != nil {
		c.logger.WithError(err).Warn("Device stop failed")
	}

	return wait(ctx, tick.Delay)
}

func (c *Controller) advancePrompt() {
	if c.settings.RandomizePrompts {
		c.promptIndex = c.session.rng.Intn(len(c.prompts))
		return
	}
	c.promptIndex = (c.promptIndex + 1) % len(c.prompts)
}

// expand substitutes {name} and {pronoun}; the pronoun stage follows session
// progress through the configured progression.
func (c *Controller) expand(prompt string) string {
	return strings.NewReplacer(
		"{name}", c.settings.PetName,
		"{pronoun}", c.pronoun(),
	).Replace(prompt)
}

func (c *Controller) pronoun() string {
	prog := c.settings.PronounProgression
	if len(prog) == 0 {
		return ""
	}
	stage := int(c.session.Progress() * float64(len(prog)))
	if stage >= len(prog) {
		stage = len(prog) - 1
	}
	return prog[stage]
}

// Steps reports how many reinforcement ticks have fired.
func (c *Controller) Steps() int {
	return c.session.StepCount()
}

// Shutdown tears the session down with a best-effort device stop. Runs once
// no matter how often it is called; Run defers it on every exit path.
func (c *Controller) Shutdown() {
	c.teardown.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := c.device.Stop(ctx); err != nil {
			c.logger.WithError(err).Debug("Teardown device stop failed")
		}
	})
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
