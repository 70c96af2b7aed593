// Package session produces the reinforcement schedule: time-varying
// {intensity, delay, reward} triples shaped by per-signal micro-patterns
// inside a session-long arc envelope, plus the call-and-response controller
// that turns them into device activations.
package session

import (
	"math/rand"
	"time"
)

// Tick is one reinforcement step: the normalized device intensity for the
// reward burst, how long the burst runs, and how long to idle before the
// next cycle.
type Tick struct {
	Intensity float64
	Reward    time.Duration
	Delay     time.Duration
}

// Session owns the three per-signal category states and the session clock.
// Completion is purely time-based; steps count ticks but never end a
// session.
type Session struct {
	settings *Settings

	intensity *categoryState
	delay     *categoryState
	reward    *categoryState

	intensityArc ArcFunc
	delayArc     ArcFunc
	rewardArc    ArcFunc

	stepCount int
	startTime time.Time
	duration  time.Duration

	rng *rand.Rand
	now func() time.Time
}

// NewSession starts the clock on a validated Settings. Call
// Settings.Validate first; unknown names here would panic downstream.
func NewSession(settings *Settings) *Session {
	return newSession(settings, rand.New(rand.NewSource(time.Now().UnixNano())), time.Now)
}

func newSession(settings *Settings, rng *rand.Rand, now func() time.Time) *Session {
	s := &Session{
		settings: settings,
		duration: time.Duration(settings.SessionDurationSeconds) * time.Second,
		rng:      rng,
		now:      now,
	}
	s.intensityArc, _ = LookupArc(settings.Intensity.Arc)
	s.delayArc, _ = LookupArc(settings.Delay.Arc)
	s.rewardArc, _ = LookupArc(settings.Reward.Arc)

	s.intensity = newCategoryState(settings.Intensity.Patterns, settings.PatternSwitch, rng)
	s.delay = newCategoryState(settings.Delay.Patterns, settings.PatternSwitch, rng)
	s.reward = newCategoryState(settings.Reward.Patterns, settings.PatternSwitch, rng)

	s.startTime = now()
	return s
}

// Progress reports elapsed session time as a fraction of the configured
// duration, clamped into [0,1].
func (s *Session) Progress() float64 {
	if s.duration <= 0 {
		return 1
	}
	p := float64(s.now().Sub(s.startTime)) / float64(s.duration)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Complete reports whether the session window has closed.
func (s *Session) Complete() bool {
	return s.Progress() >= 1
}

// StepCount reports how many ticks have been drawn.
func (s *Session) StepCount() int {
	return s.stepCount
}

// Next draws the tick's triple. All three signals advance in the same tick,
// each against its own category state, then the step counter moves.
func (s *Session) Next() Tick {
	p := s.Progress()
	t := Tick{
		Intensity: s.nextValue(s.intensity, s.intensityArc, s.settings.Intensity, p),
		Reward:    secondsToDuration(s.nextValue(s.reward, s.rewardArc, s.settings.Reward, p)),
		Delay:     secondsToDuration(s.nextValue(s.delay, s.delayArc, s.settings.Delay, p)),
	}
	s.stepCount++
	return t
}

// nextValue runs one category through the tick pipeline: arc window at the
// current progress, scaled into the signal's real-world range, then either a
// uniform draw (random sentinel) or the pattern sample interpolated into
// that range. State advances after the value is taken.
func (s *Session) nextValue(cs *categoryState, arc ArcFunc, cfg SignalSettings, p float64) float64 {
	nmin, nmax := arc(p)
	lo := cfg.Min + nmin*(cfg.Max-cfg.Min)
	hi := cfg.Min + nmax*(cfg.Max-cfg.Min)

	var v float64
	if cs.isRandom() {
		v = lo + s.rng.Float64()*(hi-lo)
	} else {
		v = lo + cs.value()*(hi-lo)
	}

	cs.advance(s.settings.PatternSwitch, s.rng)
	return v
}

func secondsToDuration(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second))
}
