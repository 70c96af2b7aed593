package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "feedback",
	Short: "BLE haptic and e-stim device control with spoken-feedback sessions",
	Long: `Control Bluetooth Low Energy haptic and e-stim devices and run
reinforcement sessions against them:

- Scan for supported devices (vibrators, e-stim boxes, plugs)
- Pulse a device once at a chosen intensity
- Run a full session: spoken prompts, fuzzy transcript matching, and
  reinforcement ticks shaped by patterns and session arcs
- List the supported protocol families
- Encode and decode shareable session bundles

Sessions are configured with YAML files or portable base64 share blobs.`,
	Version: formatVersion(version),
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Ctrl+C is a normal exit, not an error - exit silently
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", formatUserError(err))
		os.Exit(1)
	}
}

func init() {
	// Silence Cobra's "Error:" prefix - main() prints clean errors
	rootCmd.SilenceErrors = true

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(pulseCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(protocolsCmd)
	rootCmd.AddCommand(shareCmd)

	// Global flags
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Shorthand for --log-level debug")

	// Add -v as a short flag for --version
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
}
