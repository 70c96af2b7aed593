package session

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/mcuadros/go-defaults"
	"gopkg.in/yaml.v3"
)

// SignalSettings configures one signal category: which arc shapes the
// session-long envelope, which micro-patterns cycle inside it, and the
// real-world range normalized values scale into (0..1 for intensity,
// seconds for delay and reward).
type SignalSettings struct {
	Arc      string   `json:"arcName" yaml:"arc" default:"constant"`
	Patterns []string `json:"patternNames" yaml:"patterns"`
	Min      float64  `json:"min" yaml:"min"`
	Max      float64  `json:"max" yaml:"max"`
}

// PatternSwitch bounds how many advances a category stays on one pattern
// before switching.
type PatternSwitch struct {
	MinInstances int `json:"minInstances" yaml:"min_instances" default:"4"`
	MaxInstances int `json:"maxInstances" yaml:"max_instances" default:"10"`
}

// draw picks an instance budget uniformly from [MinInstances, MaxInstances].
func (ps PatternSwitch) draw(rng *rand.Rand) int {
	if ps.MaxInstances <= ps.MinInstances {
		return ps.MinInstances
	}
	return ps.MinInstances + rng.Intn(ps.MaxInstances-ps.MinInstances+1)
}

// Settings is the complete session configuration: it travels verbatim inside
// the share blob and loads from YAML for CLI runs.
type Settings struct {
	RewardText             string   `json:"rewardText" yaml:"reward_text" default:"good"`
	PetName                string   `json:"petName" yaml:"pet_name" default:"pet"`
	PronounProgression     []string `json:"pronounProgression" yaml:"pronoun_progression"`
	ClickerEnabled         bool     `json:"clickerEnabled" yaml:"clicker_enabled"`
	PromptsEnabled         bool     `json:"promptsEnabled" yaml:"prompts_enabled" default:"true"`
	RandomizePrompts       bool     `json:"randomizePrompts" yaml:"randomize_prompts"`
	SessionDurationSeconds int      `json:"sessionDurationSeconds" yaml:"session_duration_seconds" default:"600"`

	Intensity SignalSettings `json:"intensity" yaml:"intensity"`
	Delay     SignalSettings `json:"delay" yaml:"delay"`
	Reward    SignalSettings `json:"reward" yaml:"reward"`

	PatternSwitch PatternSwitch `json:"patternSwitch" yaml:"pattern_switch"`
}

// DefaultSettings returns a runnable configuration: mid-band intensity under
// a rising envelope, randomized delays, short steady rewards.
func DefaultSettings() *Settings {
	s := &Settings{}
	defaults.SetDefaults(s)
	s.PronounProgression = []string{"you"}
	s.Intensity = SignalSettings{Arc: "rising", Patterns: []string{"wave"}, Min: 0.2, Max: 0.8}
	s.Delay = SignalSettings{Arc: "constant", Patterns: []string{RandomPattern}, Min: 5, Max: 15}
	s.Reward = SignalSettings{Arc: "constant", Patterns: []string{"constant"}, Min: 1, Max: 3}
	return s
}

// Validate enforces the boundary invariants the engine itself assumes:
// ranges ordered, instance bounds sane, every configured arc and pattern
// name known.
func (s *Settings) Validate() error {
	if s.SessionDurationSeconds <= 0 {
		return fmt.Errorf("session duration must be positive, got %d", s.SessionDurationSeconds)
	}
	if s.PatternSwitch.MinInstances < 1 {
		return fmt.Errorf("pattern switch: min instances must be at least 1, got %d", s.PatternSwitch.MinInstances)
	}
	if s.PatternSwitch.MaxInstances < s.PatternSwitch.MinInstances {
		return fmt.Errorf("pattern switch: max instances %d below min %d",
			s.PatternSwitch.MaxInstances, s.PatternSwitch.MinInstances)
	}

	for _, sig := range []struct {
		name string
		cfg  SignalSettings
	}{
		{"intensity", s.Intensity},
		{"delay", s.Delay},
		{"reward", s.Reward},
	} {
		if err := sig.cfg.validate(sig.name); err != nil {
			return err
		}
	}

	if s.Intensity.Max > 1 {
		return fmt.Errorf("intensity: max %g above normalized ceiling 1", s.Intensity.Max)
	}
	return nil
}

func (c SignalSettings) validate(name string) error {
	if c.Min < 0 {
		return fmt.Errorf("%s: min %g is negative", name, c.Min)
	}
	if c.Min > c.Max {
		return fmt.Errorf("%s: min %g greater than max %g", name, c.Min, c.Max)
	}
	if _, ok := LookupArc(c.Arc); !ok {
		return fmt.Errorf("%s: unknown arc %q", name, c.Arc)
	}
	if len(c.Patterns) == 0 {
		return fmt.Errorf("%s: no patterns configured", name)
	}
	for _, p := range c.Patterns {
		if !KnownPattern(p) {
			return fmt.Errorf("%s: unknown pattern %q", name, p)
		}
	}
	return nil
}

// LoadSettingsFile reads a YAML settings file over the defaults, so a file
// only needs the keys it changes.
func LoadSettingsFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	s := DefaultSettings()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings in %s: %w", path, err)
	}
	return s, nil
}
