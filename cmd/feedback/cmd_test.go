package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// executeCommand runs a cobra command with args, returns output and error.
func executeCommand(cmd *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// resetCommandState restores flag state after a command execution so tests
// stay independent of each other's argument lists. Cobra keeps parsed values
// and the Changed bits on the shared command tree between Execute calls.
func resetCommandState(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		scanDuration = 10 * time.Second
		scanFormat = "table"
		scanAll = false
		scanCatalogPath = ""
		scanAllowList = nil
		scanBlockList = nil
		scanNoDuplicate = true
		scanWatch = false

		pulseIntensity = 0.5
		pulseDuration = 5 * time.Second
		pulseConnectTimeout = 30 * time.Second
		pulseScanTimeout = 10 * time.Second
		pulseSwapChannels = false
		pulseBattery = false

		runDevice = ""
		runSettingsPath = ""
		runShareBlob = ""
		runPromptsPath = ""
		runConnectTimeout = 30 * time.Second
		runScanTimeout = 10 * time.Second
		runSwapChannels = false

		shareSettingsPath = ""
		sharePromptsPath = ""

		commands := []*cobra.Command{
			rootCmd, scanCmd, pulseCmd, runCmd, protocolsCmd,
			shareCmd, shareEncodeCmd, shareDecodeCmd,
		}
		for _, c := range commands {
			c.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
			c.SilenceUsage = false
		}
		_ = rootCmd.PersistentFlags().Set("log-level", "")
		_ = rootCmd.PersistentFlags().Set("verbose", "false")
	})
}

// writeTempFile drops content into a fresh temp dir and returns the path.
func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600), "temp file MUST be writable")
	return path
}
