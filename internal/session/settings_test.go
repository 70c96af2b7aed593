package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate(), "defaults MUST be runnable as-is")

	assert.Equal(t, "good", s.RewardText)
	assert.Equal(t, "pet", s.PetName)
	assert.True(t, s.PromptsEnabled)
	assert.False(t, s.ClickerEnabled)
	assert.Equal(t, 600, s.SessionDurationSeconds)
	assert.Equal(t, 4, s.PatternSwitch.MinInstances)
	assert.Equal(t, 10, s.PatternSwitch.MaxInstances)
	assert.Equal(t, "rising", s.Intensity.Arc)
	assert.Equal(t, []string{RandomPattern}, s.Delay.Patterns)
}

func TestSettingsValidate_Failures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Settings)
		want   string
	}{
		{"zero duration", func(s *Settings) { s.SessionDurationSeconds = 0 }, "session duration must be positive"},
		{"min instances below one", func(s *Settings) { s.PatternSwitch.MinInstances = 0 }, "at least 1"},
		{"max instances below min", func(s *Settings) { s.PatternSwitch.MaxInstances = 2 }, "below min"},
		{"inverted range", func(s *Settings) { s.Delay.Min = 20 }, "greater than max"},
		{"negative min", func(s *Settings) { s.Reward.Min = -1 }, "is negative"},
		{"unknown arc", func(s *Settings) { s.Intensity.Arc = "spiral" }, `unknown arc "spiral"`},
		{"unknown pattern", func(s *Settings) { s.Intensity.Patterns = []string{"zigzag"} }, `unknown pattern "zigzag"`},
		{"no patterns", func(s *Settings) { s.Intensity.Patterns = nil }, "no patterns configured"},
		{"intensity above ceiling", func(s *Settings) { s.Intensity.Max = 1.2 }, "above normalized ceiling"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := DefaultSettings()
			tc.mutate(s)
			err := s.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestPatternSwitchDraw(t *testing.T) {
	rng := testRand()

	ps := PatternSwitch{MinInstances: 4, MaxInstances: 10}
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		n := ps.draw(rng)
		require.GreaterOrEqual(t, n, 4)
		require.LessOrEqual(t, n, 10)
		seen[n] = true
	}
	assert.Greater(t, len(seen), 1)

	pinned := PatternSwitch{MinInstances: 6, MaxInstances: 6}
	for i := 0; i < 10; i++ {
		assert.Equal(t, 6, pinned.draw(rng), "a collapsed range always draws min")
	}
}

func TestLoadSettingsFile(t *testing.T) {
	t.Run("overlays defaults", func(t *testing.T) {
		doc := `pet_name: Rex
session_duration_seconds: 120
clicker_enabled: true
intensity:
  arc: opening
  patterns: [pulse, steps]
  min: 0.1
  max: 0.5
`
		path := filepath.Join(t.TempDir(), "settings.yaml")
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

		s, err := LoadSettingsFile(path)
		require.NoError(t, err)

		assert.Equal(t, "Rex", s.PetName)
		assert.Equal(t, 120, s.SessionDurationSeconds)
		assert.True(t, s.ClickerEnabled)
		assert.Equal(t, "opening", s.Intensity.Arc)
		assert.Equal(t, []string{"pulse", "steps"}, s.Intensity.Patterns)
		assert.InDelta(t, 0.5, s.Intensity.Max, 1e-9)

		assert.Equal(t, "good", s.RewardText, "untouched keys MUST keep their defaults")
		assert.True(t, s.PromptsEnabled)
		assert.Equal(t, 4, s.PatternSwitch.MinInstances)
		assert.Equal(t, []string{RandomPattern}, s.Delay.Patterns)
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		doc := `intensity:
  arc: constant
  patterns: [wave]
  min: 0.9
  max: 0.2
`
		path := filepath.Join(t.TempDir(), "settings.yaml")
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

		_, err := LoadSettingsFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid settings in")
		assert.Contains(t, err.Error(), "greater than max")
	})

	t.Run("rejects malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "settings.yaml")
		require.NoError(t, os.WriteFile(path, []byte("{not yaml::"), 0o644))

		_, err := LoadSettingsFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse settings")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSettingsFile(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read settings")
	})
}
