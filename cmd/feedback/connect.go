package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/EcstasyEngineer/feedback-demo/internal/device"
	"github.com/EcstasyEngineer/feedback-demo/internal/link"
	"github.com/EcstasyEngineer/feedback-demo/internal/scanner"
)

// looksLikeAddress reports whether target is a BLE address rather than an
// advertised name.
func looksLikeAddress(target string) bool {
	return strings.Count(target, ":") >= 5 || // AA:BB:CC:DD:EE:FF
		(len(target) == 36 && strings.Count(target, "-") == 4) // darwin device UUID
}

// connectTarget connects to a device given either its address or its
// advertised name. Names trigger a scan that stops at the first device whose
// name matches, exactly or by prefix, case-insensitive.
func connectTarget(ctx context.Context, logger *logrus.Logger, target string, opts *link.Options, scanTimeout time.Duration, progress func(string)) (*link.ActiveDevice, error) {
	manager := link.NewManager(logger)

	if looksLikeAddress(target) {
		opts.Address = target
		return manager.Connect(ctx, opts)
	}

	if progress != nil {
		progress("Scanning for " + target)
	}
	s, err := scanner.NewScanner(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create BLE scanner: %w", err)
	}

	scanOpts := scanner.DefaultScanOptions()
	scanOpts.Duration = scanTimeout
	wanted := strings.ToLower(target)
	dev, err := s.FindDevice(ctx, scanOpts, func(info device.DeviceInfo) bool {
		name := strings.ToLower(info.Name())
		return name == wanted || strings.HasPrefix(name, wanted)
	})
	if err != nil {
		return nil, fmt.Errorf("no device named %q found: %w", target, err)
	}

	if progress != nil {
		progress("Connecting")
	}
	return manager.ConnectDevice(ctx, dev, opts)
}
