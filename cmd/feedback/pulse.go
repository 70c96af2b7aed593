package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/EcstasyEngineer/feedback-demo/internal/link"
)

// pulseCmd represents the pulse command
var pulseCmd = &cobra.Command{
	Use:   "pulse <address-or-name>",
	Short: "Send a single timed pulse to a device",
	Long: `Connect to a device and drive it at a fixed intensity for a fixed
time, then stop and disconnect. Useful for testing a device before
running a full session.

The device can be given as a BLE address or as its advertised name;
a name starts a short scan that stops at the first match.

Examples:
  # Half intensity for five seconds
  feedback pulse AA:BB:CC:DD:EE:FF

  # A Lovense toy by name, stronger and shorter
  feedback pulse LVS-Domi38 --intensity 0.8 --duration 2s

  # An e-stim box with crossed channel wiring
  feedback pulse "D-LAB ESTIM01" --swap-channels --intensity 0.3`,
	Args: cobra.ExactArgs(1),
	RunE: runPulse,
}

var (
	pulseIntensity      float64
	pulseDuration       time.Duration
	pulseConnectTimeout time.Duration
	pulseScanTimeout    time.Duration
	pulseSwapChannels   bool
	pulseBattery        bool
)

func init() {
	pulseCmd.Flags().Float64VarP(&pulseIntensity, "intensity", "i", 0.5, "Normalized intensity (0..1)")
	pulseCmd.Flags().DurationVarP(&pulseDuration, "duration", "d", 5*time.Second, "Pulse duration")
	pulseCmd.Flags().DurationVar(&pulseConnectTimeout, "connect-timeout", 30*time.Second, "Connection timeout")
	pulseCmd.Flags().DurationVar(&pulseScanTimeout, "scan-timeout", 10*time.Second, "Scan timeout when resolving a device name")
	pulseCmd.Flags().BoolVar(&pulseSwapChannels, "swap-channels", false, "Swap e-stim output channels A and B")
	pulseCmd.Flags().BoolVar(&pulseBattery, "battery", false, "Print the device battery level before pulsing")
}

func runPulse(cmd *cobra.Command, args []string) error {
	target := args[0]
	if pulseIntensity < 0 || pulseIntensity > 1 {
		return fmt.Errorf("intensity must be between 0 and 1, got %g", pulseIntensity)
	}
	if pulseDuration <= 0 {
		return fmt.Errorf("duration must be positive, got %v", pulseDuration)
	}

	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	status := newStatusLine("Connecting to "+target, "Connecting", "Ready")
	status.Start()
	defer status.Stop()

	opts := &link.Options{
		ConnectTimeout: pulseConnectTimeout,
		SwapChannels:   pulseSwapChannels,
	}
	ad, err := connectTarget(ctx, logger, target, opts, pulseScanTimeout, status.Callback())
	if err != nil {
		return err
	}
	defer func() { _ = ad.Disconnect() }()
	status.Stop()

	fmt.Printf("Connected to %s (%s)\n",
		color.CyanString(ad.Device().Name()), ad.Protocol().ID())

	if pulseBattery {
		if level, berr := ad.BatteryLevel(ctx); berr == nil {
			fmt.Printf("Battery: %d%%\n", level)
		} else {
			logger.WithError(berr).Debug("Battery level unavailable")
		}
	}

	fmt.Printf("Pulsing at %.0f%% for %v\n", pulseIntensity*100, pulseDuration)
	if err := ad.Activate(ctx, pulseIntensity); err != nil {
		return err
	}

	select {
	case <-time.After(pulseDuration):
	case <-ctx.Done():
	}

	// Stop must land even when Ctrl+C cancelled the command context
	if err := ad.Stop(context.Background()); err != nil {
		return err
	}
	return ctx.Err()
}
