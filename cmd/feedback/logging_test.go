package main

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLoggerTestCommand(t *testing.T, flags map[string]string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{}
	cmd.Flags().String("log-level", "", "")
	cmd.Flags().Bool("verbose", false, "")
	for name, value := range flags {
		require.NoError(t, cmd.Flags().Set(name, value))
	}
	return cmd
}

func TestConfigureLogger_SilentByDefault(t *testing.T) {
	logger, err := configureLogger(newLoggerTestCommand(t, nil))
	require.NoError(t, err)
	assert.Equal(t, logrus.PanicLevel, logger.GetLevel(), "default logger MUST stay quiet")
}

func TestConfigureLogger_ExplicitLevels(t *testing.T) {
	for name, level := range logLevelNames {
		cmd := newLoggerTestCommand(t, map[string]string{"log-level": name})
		logger, err := configureLogger(cmd)
		require.NoError(t, err, "level %s MUST be accepted", name)
		assert.Equal(t, level, logger.GetLevel())
	}
}

func TestConfigureLogger_VerboseShorthand(t *testing.T) {
	cmd := newLoggerTestCommand(t, map[string]string{"verbose": "true"})
	logger, err := configureLogger(cmd)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}

func TestConfigureLogger_LevelBeatsVerbose(t *testing.T) {
	cmd := newLoggerTestCommand(t, map[string]string{"log-level": "warn", "verbose": "true"})
	logger, err := configureLogger(cmd)
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
}

func TestConfigureLogger_RejectsUnknownLevel(t *testing.T) {
	_, err := configureLogger(newLoggerTestCommand(t, map[string]string{"log-level": "noisy"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level: noisy")
}

func TestRootCommand_InvalidLogLevelSurfaces(t *testing.T) {
	resetCommandState(t)

	_, err := executeCommand(rootCmd, "scan", "--log-level", "noisy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}
