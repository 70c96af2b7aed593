package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/EcstasyEngineer/feedback-demo/internal/catalog"
	"github.com/EcstasyEngineer/feedback-demo/internal/device"
	"github.com/EcstasyEngineer/feedback-demo/internal/protocol"
	"github.com/EcstasyEngineer/feedback-demo/internal/scanner"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for supported devices",
	Long: `Scan for Bluetooth Low Energy devices and display the ones the device
catalog recognizes: known haptic device families plus e-stim boxes.

By default only catalog devices are shown. Use --all to list every
advertisement in range, or --catalog to overlay your own device entries
on top of the builtin list.`,
	RunE: runScan,
}

var (
	scanDuration    time.Duration
	scanFormat      string
	scanAll         bool
	scanCatalogPath string
	scanAllowList   []string
	scanBlockList   []string
	scanNoDuplicate bool
	scanWatch       bool
)

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 10*time.Second, "Scan duration (0 for indefinite)")
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "table", "Output format (table, json)")
	scanCmd.Flags().BoolVarP(&scanAll, "all", "a", false, "Show every device, not just catalog matches")
	scanCmd.Flags().StringVar(&scanCatalogPath, "catalog", "", "YAML file with extra device catalog entries")
	scanCmd.Flags().StringSliceVar(&scanAllowList, "allow", nil, "Only show devices with these addresses")
	scanCmd.Flags().StringSliceVar(&scanBlockList, "block", nil, "Hide devices with these addresses")
	scanCmd.Flags().BoolVar(&scanNoDuplicate, "no-duplicates", true, "Filter duplicate advertisements")
	scanCmd.Flags().BoolVarP(&scanWatch, "watch", "w", false, "Continuously scan and redraw results")
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanFormat != "table" && scanFormat != "json" {
		return fmt.Errorf("invalid format '%s': must be one of [table json]", scanFormat)
	}

	logger, err := configureLogger(cmd)
	if err != nil {
		return err
	}

	opts := scanner.DefaultScanOptions()
	opts.DuplicateFilter = scanNoDuplicate
	opts.AllowList = scanAllowList
	opts.BlockList = scanBlockList
	opts.Duration = scanDuration
	if scanWatch {
		opts.Duration = 0 // watch scans until interrupted
	}

	if !scanAll {
		cat := catalog.Builtin(logger)
		if scanCatalogPath != "" {
			if err := cat.MergeFile(scanCatalogPath); err != nil {
				return err
			}
		}
		opts.Filter = cat.Filter()
	} else if scanCatalogPath != "" {
		return fmt.Errorf("--catalog has no effect together with --all")
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	s, err := scanner.NewScanner(logger)
	if err != nil {
		return fmt.Errorf("failed to create BLE scanner: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if scanWatch {
		return runWatchScan(ctx, s, opts)
	}
	return runSingleScan(ctx, s, opts)
}

func runSingleScan(ctx context.Context, s *scanner.Scanner, opts *scanner.ScanOptions) error {
	status := newCountdownStatusLine("Scanning for devices", "Scanning", opts.Duration, "Processing results")
	status.Start()
	defer status.Stop()

	_, err := s.Scan(ctx, opts, status.Callback())
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	status.Stop()

	return displayDevices(s.Devices(), os.Stdout)
}

// runWatchScan redraws the device table as advertisements come in.
func runWatchScan(ctx context.Context, s *scanner.Scanner, opts *scanner.ScanOptions) error {
	scanErr := make(chan error, 1)
	go func() {
		_, err := s.Scan(ctx, opts, nil)
		scanErr <- err
	}()

	redraw := time.NewTicker(time.Second)
	defer redraw.Stop()

	dirty := true
	for {
		select {
		case <-ctx.Done():
			<-scanErr
			fmt.Print("\033[2J\033[H")
			return displayDevices(s.Devices(), os.Stdout)

		case err := <-scanErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return displayDevices(s.Devices(), os.Stdout)

		case <-s.Events():
			dirty = true

		case <-redraw.C:
			if !dirty {
				continue
			}
			dirty = false
			fmt.Print("\033[2J\033[H")
			if err := displayDevices(s.Devices(), os.Stdout); err != nil {
				return err
			}
			fmt.Println("\nPress Ctrl+C to stop...")
		}
	}
}

func displayDevices(devices []device.DeviceInfo, w io.Writer) error {
	if len(devices) == 0 {
		fmt.Fprintln(w, "No devices discovered")
		return nil
	}

	if scanFormat == "json" {
		return displayDevicesJSON(devices, w)
	}
	return displayDevicesTable(devices, w)
}

// classify names the protocol family a discovered device would resolve to,
// or "-" when nothing matches.
func classify(dev device.DeviceInfo) string {
	if protocol.IsEStim(dev.Name()) {
		return "e-stim"
	}
	normalized := device.NormalizeUUIDs(dev.AdvertisedServices())
	for _, def := range protocol.Definitions() {
		if def.MatchesName(dev.Name()) || def.MatchesServices(normalized) {
			return def.ID
		}
	}
	return "-"
}

func displayDevicesTable(devices []device.DeviceInfo, out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDRESS\tRSSI\tPROTOCOL\tSERVICES")
	fmt.Fprintln(w, strings.Repeat("-", 80))

	estim := color.New(color.FgHiMagenta)
	known := color.New(color.FgCyan)

	for _, dev := range devices {
		name := dev.Name()
		if name == "" {
			name = "(unnamed)"
		}
		if len(name) > 20 {
			name = name[:17] + "..."
		}

		proto := classify(dev)
		switch {
		case proto == "e-stim":
			proto = estim.Sprint(proto)
		case proto != "-":
			proto = known.Sprint(proto)
		}

		services := strings.Join(dev.AdvertisedServices(), ",")
		if len(services) > 30 {
			services = services[:27] + "..."
		}

		fmt.Fprintf(w, "%s\t%s\t%d dBm\t%s\t%s\n",
			name, dev.Address(), dev.RSSI(), proto, services)
	}

	return w.Flush()
}

type deviceView struct {
	Name     string   `json:"name"`
	Address  string   `json:"address"`
	RSSI     int      `json:"rssi"`
	Protocol string   `json:"protocol,omitempty"`
	Services []string `json:"services,omitempty"`
}

func displayDevicesJSON(devices []device.DeviceInfo, w io.Writer) error {
	views := make([]deviceView, 0, len(devices))
	for _, dev := range devices {
		proto := classify(dev)
		if proto == "-" {
			proto = ""
		}
		views = append(views, deviceView{
			Name:     dev.Name(),
			Address:  dev.Address(),
			RSSI:     dev.RSSI(),
			Protocol: proto,
			Services: dev.AdvertisedServices(),
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(views)
}
