package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EcstasyEngineer/feedback-demo/internal/session"
)

func TestLoadPrompts(t *testing.T) {
	path := writeTempFile(t, "prompts.txt",
		"# reinforcement prompts\n\ngood girl\n  speak  \n\n# closing note\nroll over\n")

	prompts, err := loadPrompts(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"good girl", "speak", "roll over"}, prompts,
		"blanks and comments MUST be skipped, whitespace trimmed")
}

func TestLoadPrompts_MissingFile(t *testing.T) {
	_, err := loadPrompts("/nonexistent/prompts.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read prompts")
}

func TestLoadSessionBundle_Defaults(t *testing.T) {
	settings, prompts, err := loadSessionBundle("", "", "")
	require.NoError(t, err)
	assert.Equal(t, session.DefaultSettings(), settings)
	assert.Nil(t, prompts)
}

func TestLoadSessionBundle_ShareCarriesSettingsAndPrompts(t *testing.T) {
	custom := session.DefaultSettings()
	custom.PetName = "Rex"
	blob, err := session.EncodeShare(&session.Share{
		Prompts:  []string{"sit", "stay"},
		Settings: custom,
	})
	require.NoError(t, err)

	settings, prompts, err := loadSessionBundle(blob, "", "")
	require.NoError(t, err)
	assert.Equal(t, "Rex", settings.PetName)
	assert.Equal(t, []string{"sit", "stay"}, prompts)
}

func TestLoadSessionBundle_ShareWithoutSettingsFallsBack(t *testing.T) {
	blob, err := session.EncodeShare(&session.Share{Prompts: []string{"sit"}})
	require.NoError(t, err)

	settings, prompts, err := loadSessionBundle(blob, "", "")
	require.NoError(t, err)
	assert.Equal(t, session.DefaultSettings(), settings)
	assert.Equal(t, []string{"sit"}, prompts)
}

func TestLoadSessionBundle_RejectsInvalidShareSettings(t *testing.T) {
	broken := session.DefaultSettings()
	broken.SessionDurationSeconds = 0
	blob, err := session.EncodeShare(&session.Share{Settings: broken})
	require.NoError(t, err)

	_, _, err = loadSessionBundle(blob, "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid share settings")
}

func TestLoadSessionBundle_SettingsFile(t *testing.T) {
	path := writeTempFile(t, "session.yaml", "pet_name: Luna\nclicker_enabled: true\n")

	settings, prompts, err := loadSessionBundle("", path, "")
	require.NoError(t, err)
	assert.Equal(t, "Luna", settings.PetName)
	assert.True(t, settings.ClickerEnabled)
	assert.Nil(t, prompts)
}

func TestLoadSessionBundle_PromptsFileOverridesShare(t *testing.T) {
	blob, err := session.EncodeShare(&session.Share{Prompts: []string{"from share"}})
	require.NoError(t, err)
	path := writeTempFile(t, "prompts.txt", "from file\n")

	_, prompts, err := loadSessionBundle(blob, "", path)
	require.NoError(t, err)
	assert.Equal(t, []string{"from file"}, prompts)
}

func TestLoadSessionBundle_BadBlob(t *testing.T) {
	_, _, err := loadSessionBundle("!!!", "", "")
	require.Error(t, err)
}

func TestConsoleHooks_AllEventsWired(t *testing.T) {
	hooks := consoleHooks(session.DefaultSettings())
	assert.NotNil(t, hooks.Announce)
	assert.NotNil(t, hooks.Feedback)
	assert.NotNil(t, hooks.Clicker)
	assert.NotNil(t, hooks.Reward)
}

func TestRunCommand_RequiresDevice(t *testing.T) {
	resetCommandState(t)

	_, err := executeCommand(rootCmd, "run")
	require.Error(t, err, "run without --device MUST be rejected")
	assert.Contains(t, err.Error(), "device")
}

func TestRunCommand_SettingsAndShareConflict(t *testing.T) {
	resetCommandState(t)

	_, err := executeCommand(rootCmd, "run",
		"--device", "AA:BB:CC:DD:EE:FF", "--settings", "a.yaml", "--share", "blob")
	require.Error(t, err, "--settings and --share MUST be mutually exclusive")
}
