// Package link turns a discovered BLE peripheral into a device ready for
// intensity commands: retried connection, service classification (including
// e-stim generation selection), protocol setup, and the active handle that
// owns all writes for the rest of the connection.
package link

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"

	"github.com/EcstasyEngineer/feedback-demo/internal/catalog"
	"github.com/EcstasyEngineer/feedback-demo/internal/device"
	goble "github.com/EcstasyEngineer/feedback-demo/internal/device/go-ble"
	"github.com/EcstasyEngineer/feedback-demo/internal/protocol"
)

const (
	connectAttempts = 3
	connectSettle   = 300 * time.Millisecond
	connectBackoff  = 500 * time.Millisecond

	defaultWriteTimeout = 2 * time.Second

	// legacyWriteSpacing paces gate writes to the legacy frame cadence: one
	// power frame covers 100ms of output, sending faster buys nothing.
	legacyWriteSpacing = 100 * time.Millisecond
)

// ErrNoWritableCharacteristic means classification found no characteristic
// accepting either write flavor outside the generic GATT services.
var ErrNoWritableCharacteristic = errors.New("no writable characteristic found")

// ErrNoKnownService is the errors.Is target for NoKnownServiceError.
var ErrNoKnownService = errors.New("no known e-stim service found")

// NoKnownServiceError reports an e-stim device exposing neither the modern
// control service nor a writable legacy power characteristic. The full
// discovered topology rides along: these boxes fail in the field with
// firmware nobody has seen before, and the dump is the only way to diagnose
// one from a user report.
type NoKnownServiceError struct {
	Device   string
	Topology string
}

func (e *NoKnownServiceError) Error() string {
	return fmt.Sprintf("device %q exposes no known e-stim service; discovered:\n%s", e.Device, e.Topology)
}

func (e *NoKnownServiceError) Is(target error) bool {
	return target == ErrNoKnownService
}

// Options configures link establishment.
type Options struct {
	Address        string
	ConnectTimeout time.Duration `default:"30s"`

	// SwapChannels opts into the crossed legacy output wiring; see
	// protocol.CoyoteV2.
	SwapChannels bool
}

// Manager establishes device links.
type Manager struct {
	logger *logrus.Logger

	// newPeripheral is swapped in tests to connect scripted peripherals.
	newPeripheral func(address string, logger *logrus.Logger) device.Device
}

// NewManager creates a link manager.
func NewManager(logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{
		logger: logger,
		newPeripheral: func(address string, logger *logrus.Logger) device.Device {
			return goble.NewBLEDevice(address, logger)
		},
	}
}

// Connect dials the device at opts.Address and prepares it for intensity
// commands.
func (m *Manager) Connect(ctx context.Context, opts *Options) (*ActiveDevice, error) {
	if opts == nil || opts.Address == "" {
		return nil, fmt.Errorf("failed to connect: device address is required")
	}
	return m.ConnectDevice(ctx, m.newPeripheral(opts.Address, m.logger), opts)
}

// ConnectDevice runs the retry/classify/init pipeline against an existing
// device, typically one handed over by the scanner.
func (m *Manager) ConnectDevice(ctx context.Context, dev device.Device, opts *Options) (*ActiveDevice, error) {
	if opts == nil {
		opts = &Options{}
	}
	defaults.SetDefaults(opts)

	if err := m.connectWithRetry(ctx, dev, opts); err != nil {
		return nil, err
	}

	ad, err := m.setup(ctx, dev, opts)
	if err != nil {
		_ = dev.Disconnect()
		return nil, err
	}
	return ad, nil
}

func (m *Manager) connectWithRetry(ctx context.Context, dev device.Device, opts *Options) error {
	connectOpts := &device.ConnectOptions{
		Address:        dev.Address(),
		ConnectTimeout: opts.ConnectTimeout,
	}

	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		m.logger.WithFields(logrus.Fields{
			"address": dev.Address(),
			"attempt": attempt,
		}).Info("Connecting to device")

		lastErr = dev.Connect(ctx, connectOpts)
		if lastErr == nil {
			// Let the fresh link settle before service traffic.
			select {
			case <-time.After(connectSettle):
			case <-ctx.Done():
				_ = dev.Disconnect()
				return ctx.Err()
			}
			return nil
		}

		m.logger.WithError(lastErr).WithFields(logrus.Fields{
			"address": dev.Address(),
			"attempt": attempt,
		}).Warn("Connect attempt failed")

		if attempt < connectAttempts {
			select {
			case <-time.After(connectBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("%w: giving up on %s after %d attempts: %v",
		device.ErrConnectFailed, dev.Address(), connectAttempts, lastErr)
}

// setup classifies the connected device and builds its handle.
func (m *Manager) setup(ctx context.Context, dev device.Device, opts *Options) (*ActiveDevice, error) {
	conn := dev.GetConnection()
	if conn == nil {
		return nil, device.ErrNotConnected
	}

	if protocol.IsEStim(dev.Name()) {
		return m.setupEStim(ctx, dev, conn, opts)
	}
	return m.setupGeneric(ctx, dev, conn)
}

// setupEStim picks the e-stim generation from the live service table. The
// modern control service wins when present; otherwise every legacy service
// variant is scanned, because firmware in the field splits the power and
// waveform characteristics across the writable service and its read-only
// clone in both arrangements.
func (m *Manager) setupEStim(ctx context.Context, dev device.Device, conn device.Connection, opts *Options) (*ActiveDevice, error) {
	if char, err := conn.GetCharacteristic(protocol.V3ServiceUUID, protocol.V3WriteCharUUID); err == nil {
		m.logger.WithFields(logrus.Fields{
			"device":  dev.Name(),
			"service": catalog.ServiceName(protocol.V3ServiceUUID),
		}).Info("Modern e-stim generation selected")

		proto := protocol.NewCoyoteV3()
		ad := newActiveDevice(dev, proto, m.logger, handleConfig{
			writeChar:    char,
			withResponse: true,
			writeTimeout: defaultWriteTimeout,
		})
		m.subscribeNotify(conn, dev)
		m.initProtocol(ctx, ad, proto)
		return ad, nil
	}

	routes := make(map[string]device.Characteristic)
	for _, svcUUID := range protocol.LegacyServiceUUIDs {
		svc, err := conn.GetService(svcUUID)
		if err != nil {
			continue
		}
		for _, char := range svc.GetCharacteristics() {
			uuid := device.NormalizeUUID(char.UUID())
			switch uuid {
			case protocol.LegacyPowerCharUUID,
				protocol.LegacyWaveformACharUUID,
				protocol.LegacyWaveformBCharUUID:
				if _, taken := routes[uuid]; !taken && char.GetProperties().Writable() {
					routes[uuid] = char
				}
			}
		}
	}

	power, ok := routes[protocol.LegacyPowerCharUUID]
	if !ok {
		return nil, &NoKnownServiceError{Device: dev.Name(), Topology: describeTopology(conn)}
	}

	m.logger.WithFields(logrus.Fields{
		"device":          dev.Name(),
		"characteristics": len(routes),
	}).Info("Legacy e-stim generation selected")

	proto := protocol.NewCoyoteV2()
	proto.SwapChannels = opts.SwapChannels
	ad := newActiveDevice(dev, proto, m.logger, handleConfig{
		writeChar:    power,
		withResponse: false, // legacy characteristics reject acknowledged writes
		writeTimeout: defaultWriteTimeout,
		routes:       routes,
		serialized:   true,
	})
	m.initProtocol(ctx, ad, proto)
	return ad, nil
}

// setupGeneric classifies a vibration device through the registry and binds
// the first usable control characteristic.
func (m *Manager) setupGeneric(ctx context.Context, dev device.Device, conn device.Connection) (*ActiveDevice, error) {
	uuids := append([]string(nil), dev.AdvertisedServices()...)
	for _, svc := range conn.Services() {
		uuids = append(uuids, svc.UUID())
	}

	proto, err := protocol.Detect(dev.Name(), uuids)
	if err != nil {
		return nil, err
	}

	char, err := m.pickWritableCharacteristic(conn)
	if err != nil {
		return nil, err
	}

	m.logger.WithFields(logrus.Fields{
		"device":         dev.Name(),
		"protocol":       proto.ID(),
		"characteristic": device.ShortenUUID(char.UUID()),
	}).Info("Device classified")

	ad := newActiveDevice(dev, proto, m.logger, handleConfig{
		writeChar: char,
		// Prefer unacknowledged writes when the device offers them
		withResponse: !char.GetProperties().CanWriteWithoutResponse(),
		writeTimeout: defaultWriteTimeout,
	})
	m.initProtocol(ctx, ad, proto)
	return ad, nil
}

// genericServices never carry vendor control characteristics.
var genericServices = map[string]bool{
	"1800": true, // Generic Access
	"1801": true, // Generic Attribute
}

func (m *Manager) pickWritableCharacteristic(conn device.Connection) (device.Characteristic, error) {
	for _, svc := range conn.Services() {
		if genericServices[device.NormalizeUUID(svc.UUID())] {
			continue
		}
		for _, char := range svc.GetCharacteristics() {
			if char.GetProperties().Writable() {
				return char, nil
			}
		}
	}
	return nil, ErrNoWritableCharacteristic
}

// subscribeNotify arms the modern generation's status stream. The box works
// without it, so any failure only logs.
func (m *Manager) subscribeNotify(conn device.Connection, dev device.Device) {
	char, err := conn.GetCharacteristic(protocol.V3ServiceUUID, protocol.V3NotifyCharUUID)
	if err != nil {
		m.logger.WithField("device", dev.Name()).Debug("No notify characteristic, skipping subscription")
		return
	}

	err = char.Subscribe(func(data []byte) {
		m.logger.WithFields(logrus.Fields{
			"device": dev.Name(),
			"data":   fmt.Sprintf("%x", data),
		}).Debug("Device notification")
	})
	if err != nil {
		m.logger.WithError(err).WithField("device", dev.Name()).Warn("Notify subscription failed, continuing without")
	}
}

func (m *Manager) initProtocol(ctx context.Context, ad *ActiveDevice, proto protocol.Protocol) {
	if !proto.Init(ctx, ad) {
		m.logger.WithField("protocol", proto.ID()).Warn("Protocol init failed, commands may be degraded")
	}
}

// describeTopology renders the discovered GATT table with known-UUID names
// for error messages.
func describeTopology(conn device.Connection) string {
	var b strings.Builder
	for _, svc := range conn.Services() {
		fmt.Fprintf(&b, "  service %s (%s)\n", svc.UUID(), catalog.ServiceName(svc.UUID()))
		for _, char := range svc.GetCharacteristics() {
			fmt.Fprintf(&b, "    characteristic %s (%s) [%s]\n",
				char.UUID(), catalog.CharacteristicName(char.UUID()), char.GetProperties())
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
