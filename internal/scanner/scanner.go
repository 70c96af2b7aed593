package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"

	"github.com/EcstasyEngineer/feedback-demo/internal/catalog"
	"github.com/EcstasyEngineer/feedback-demo/internal/device"
	goble "github.com/EcstasyEngineer/feedback-demo/internal/device/go-ble"
	"github.com/EcstasyEngineer/feedback-demo/internal/groutine"
	"github.com/EcstasyEngineer/feedback-demo/internal/ringchan"
)

// ProgressCallback is called when the scan phase changes
type ProgressCallback func(phase string)

// DeviceEventType marks if the device was newly discovered or updated
type DeviceEventType int

const (
	EventNew DeviceEventType = iota
	EventUpdated
)

type DeviceEvent struct {
	Type       DeviceEventType
	DeviceInfo device.DeviceInfo
}

// Scanner handles BLE device discovery
type Scanner struct {
	devices *hashmap.Map[string, device.Device]
	events  *ringchan.RingChannel[DeviceEvent]
	logger  *logrus.Logger

	scanOptions *ScanOptions

	// newCentral is swapped in tests to replay scripted advertisements
	newCentral func() (device.ScanningDevice, error)
}

// ScanOptions configures scanning behavior
type ScanOptions struct {
	Duration        time.Duration `default:"10s"`
	DuplicateFilter bool          `default:"true"`
	Filter          catalog.Filter
	AllowList       []string
	BlockList       []string
}

// DefaultScanOptions returns default scanning options
func DefaultScanOptions() *ScanOptions {
	opts := &ScanOptions{}
	defaults.SetDefaults(opts)
	return opts
}

// NewScanner creates a new BLE scanner
func NewScanner(logger *logrus.Logger) (*Scanner, error) {
	if logger == nil {
		logger = logrus.New()
	}

	return &Scanner{
		events:     ringchan.New[DeviceEvent](100),
		logger:     logger,
		newCentral: goble.NewScanningDevice,
	}, nil
}

// Scan performs BLE discovery with provided options. A positive
// opts.Duration bounds the scan; cancellation and deadline expiry are
// normal completion, not errors.
func (s *Scanner) Scan(ctx context.Context, opts *ScanOptions, progressCallback ProgressCallback) (map[string]device.DeviceInfo, error) {
	s.devices = hashmap.New[string, device.Device]()

	if opts == nil {
		opts = DefaultScanOptions()
	}
	if progressCallback == nil {
		progressCallback = func(string) {} // No-op callback
	}

	s.logger.WithField("duration", opts.Duration).Info("Starting BLE scan...")

	progressCallback("Scanning")

	central, err := s.newCentral()
	if err != nil {
		return nil, fmt.Errorf("failed to create BLE central: %w", err)
	}

	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	s.scanOptions = opts
	defer func() {
		s.scanOptions = nil
	}()
	err = central.Scan(ctx, !opts.DuplicateFilter, s.handleAdvertisement)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	s.logger.WithField("device_count", s.devices.Len()).Info("BLE scan completed")

	progressCallback("Processing results")

	devices := make(map[string]device.DeviceInfo, s.devices.Len())
	s.devices.Range(func(key string, value device.Device) bool {
		devices[key] = value
		return true
	})

	return devices, nil
}

// handleAdvertisement updates existing or adds a new device
func (s *Scanner) handleAdvertisement(adv device.Advertisement) {
	deviceID := adv.Addr()

	dev, existing := s.devices.Get(deviceID)
	if !existing {
		if !s.shouldIncludeDevice(adv, s.scanOptions) {
			return
		}
		dev, existing = s.devices.GetOrInsert(deviceID, goble.NewBLEDeviceFromAdvertisement(adv, s.logger))
	}

	event := DeviceEvent{
		DeviceInfo: dev,
	}

	if existing {
		dev.Update(adv)
		event.Type = EventUpdated
	} else {
		s.logger.WithFields(logrus.Fields{
			"device":  dev.Name(),
			"address": dev.Address(),
			"rssi":    dev.RSSI(),
		}).Info("Discovered new device")
		event.Type = EventNew
	}

	s.events.ForceSend(event)
}

// shouldIncludeDevice applies block/allow lists and the catalog filter
func (s *Scanner) shouldIncludeDevice(adv device.Advertisement, opts *ScanOptions) bool {
	addr := adv.Addr()

	for _, blocked := range opts.BlockList {
		if strings.EqualFold(addr, blocked) {
			return false
		}
	}

	if len(opts.AllowList) > 0 {
		allowed := false
		for _, a := range opts.AllowList {
			if strings.EqualFold(addr, a) {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	return opts.Filter.Matches(adv.LocalName(), adv.Services())
}

// Devices returns discovered devices ordered by signal strength,
// strongest first; ties break on address for stable output.
func (s *Scanner) Devices() []device.DeviceInfo {
	if s.devices == nil {
		return nil
	}

	devs := make([]device.DeviceInfo, 0, s.devices.Len())
	s.devices.Range(func(key string, value device.Device) bool {
		devs = append(devs, value)
		return true
	})

	sort.Slice(devs, func(i, j int) bool {
		if devs[i].RSSI() != devs[j].RSSI() {
			return devs[i].RSSI() > devs[j].RSSI()
		}
		return devs[i].Address() < devs[j].Address()
	})

	return devs
}

// GetDevice returns the connectable device for an address seen during the
// current scan.
func (s *Scanner) GetDevice(address string) (device.Device, bool) {
	if s.devices == nil {
		return nil, false
	}
	return s.devices.Get(address)
}

// Events returns a read-only channel of device events
func (s *Scanner) Events() <-chan DeviceEvent {
	return s.events.C()
}

// FindDevice scans until a device matching the predicate appears, then
// stops scanning and returns it. The usual Duration bound in opts still
// applies; a scan that completes without a match reports a NotFoundError.
func (s *Scanner) FindDevice(ctx context.Context, opts *ScanOptions, match func(device.DeviceInfo) bool) (device.Device, error) {
	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		found   device.Device
		scanErr error
		done    = make(chan struct{})
	)

	groutine.Go(scanCtx, "scanner-find-device", func(ctx context.Context) {
		defer close(done)
		_, scanErr = s.Scan(ctx, opts, nil)
	})

	for {
		select {
		case ev := <-s.events.C():
			if ev.Type != EventNew || !match(ev.DeviceInfo) {
				continue
			}
			if dev, ok := s.devices.Get(ev.DeviceInfo.ID()); ok {
				found = dev
			}
			cancel()
			<-done
			if found != nil {
				return found, nil
			}
		case <-done:
			if scanErr != nil {
				return nil, scanErr
			}
			return nil, &device.NotFoundError{Resource: "device"}
		}
	}
}
