package link

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/EcstasyEngineer/feedback-demo/internal/device"
	"github.com/EcstasyEngineer/feedback-demo/internal/groutine"
	"github.com/EcstasyEngineer/feedback-demo/internal/protocol"
)

const (
	batteryServiceUUID   = "180f"
	batteryLevelCharUUID = "2a19"
)

// handleConfig carries the transport decisions classification made.
type handleConfig struct {
	writeChar    device.Characteristic
	withResponse bool
	writeTimeout time.Duration

	// routes maps characteristic UUIDs for protocols whose frames span
	// several characteristics (legacy e-stim split-service layout).
	routes map[string]device.Characteristic

	// serialized funnels Send/Stop through the write gate.
	serialized bool
}

// ActiveDevice is the live handle for one connected, classified device. All
// intensity traffic flows through it: direct characteristic writes for most
// families, the serialized gate for legacy e-stim, plus a keepalive loop for
// protocols whose output decays without periodic re-sends.
type ActiveDevice struct {
	dev    device.Device
	proto  protocol.Protocol
	sender protocol.Sender // non-nil when proto needs multi-write sends
	logger *logrus.Logger

	cfg  handleConfig
	gate *writeGate // nil unless cfg.serialized

	mu            sync.Mutex
	lastIntensity float64
	emitting      bool // device currently producing output
	active        bool // Activate..Stop window
	closed        bool
	keepaliveStop context.CancelFunc
}

func newActiveDevice(dev device.Device, proto protocol.Protocol, logger *logrus.Logger, cfg handleConfig) *ActiveDevice {
	if cfg.writeTimeout == 0 {
		cfg.writeTimeout = defaultWriteTimeout
	}
	ad := &ActiveDevice{
		dev:    dev,
		proto:  proto,
		logger: logger,
		cfg:    cfg,
	}
	if s, ok := proto.(protocol.Sender); ok {
		ad.sender = s
	}
	if cfg.serialized {
		ad.gate = newWriteGate(ad, legacyWriteSpacing)
	}
	return ad
}

// Write sends data to the selected control characteristic. Part of the
// protocol.WriteHandle surface.
func (ad *ActiveDevice) Write(data []byte) error {
	return ad.cfg.writeChar.Write(data, ad.cfg.withResponse, ad.cfg.writeTimeout)
}

// WriteTo sends data to a characteristic addressed by UUID, for protocols
// whose commands span several characteristics.
func (ad *ActiveDevice) WriteTo(charUUID string, data []byte) error {
	char, ok := ad.cfg.routes[device.NormalizeUUID(charUUID)]
	if !ok {
		return &device.NotFoundError{Resource: "characteristic", UUIDs: []string{charUUID}}
	}
	return char.Write(data, ad.cfg.withResponse, ad.cfg.writeTimeout)
}

// Send pushes one intensity command. Serialized families queue through the
// gate, where the latest pending request wins; everything else writes
// directly and reports the write error.
func (ad *ActiveDevice) Send(ctx context.Context, intensity float64) error {
	ad.mu.Lock()
	defer ad.mu.Unlock()
	return ad.sendLocked(ctx, intensity)
}

func (ad *ActiveDevice) sendLocked(ctx context.Context, intensity float64) error {
	if ad.closed {
		return device.ErrNotConnected
	}
	ad.lastIntensity = intensity
	ad.emitting = true
	if ad.gate != nil {
		ad.gate.submit(gateRequest{intensity: intensity})
		return nil
	}
	return ad.writeIntensity(ctx, intensity)
}

// Activate opens a reward window: send the intensity and keep the device
// running via keepalives until Stop.
func (ad *ActiveDevice) Activate(ctx context.Context, intensity float64) error {
	ad.mu.Lock()
	defer ad.mu.Unlock()

	if err := ad.sendLocked(ctx, intensity); err != nil {
		return err
	}
	ad.active = true
	ad.startKeepaliveLocked()
	return nil
}

// Stop halts output and tears down the keepalive loop. Safe to call
// repeatedly and after Disconnect.
func (ad *ActiveDevice) Stop(ctx context.Context) error {
	ad.mu.Lock()
	defer ad.mu.Unlock()

	ad.stopKeepaliveLocked()
	ad.active = false

	if ad.closed || !ad.emitting {
		return nil
	}
	ad.emitting = false

	if ad.gate != nil {
		ad.gate.submit(gateRequest{stop: true})
		return nil
	}
	return ad.writeStop(ctx)
}

// IsActive reports whether a reward window is open.
func (ad *ActiveDevice) IsActive() bool {
	ad.mu.Lock()
	defer ad.mu.Unlock()
	return ad.active
}

// LastIntensity returns the most recently requested intensity.
func (ad *ActiveDevice) LastIntensity() float64 {
	ad.mu.Lock()
	defer ad.mu.Unlock()
	return ad.lastIntensity
}

// Disconnect stops the keepalive loop, lets the gate finish its last write,
// and drops the BLE link. Idempotent.
func (ad *ActiveDevice) Disconnect() error {
	ad.mu.Lock()
	if ad.closed {
		ad.mu.Unlock()
		return nil
	}
	ad.closed = true
	ad.stopKeepaliveLocked()
	gate := ad.gate
	ad.mu.Unlock()

	if gate != nil {
		gate.close()
	}

	return ad.dev.Disconnect()
}

// Device returns the underlying peripheral.
func (ad *ActiveDevice) Device() device.Device {
	return ad.dev
}

// Protocol returns the encoder driving this link.
func (ad *ActiveDevice) Protocol() protocol.Protocol {
	return ad.proto
}

// BatteryLevel reads the standard Battery Service percentage. Devices without
// it report a NotFoundError the caller can downgrade to a log line.
func (ad *ActiveDevice) BatteryLevel(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	conn := ad.dev.GetConnection()
	if conn == nil {
		return 0, device.ErrNotConnected
	}
	char, err := conn.GetCharacteristic(batteryServiceUUID, batteryLevelCharUUID)
	if err != nil {
		return 0, err
	}

	data, err := char.Read(ad.cfg.writeTimeout)
	if err != nil {
		return 0, fmt.Errorf("battery read failed: %w", err)
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("battery read returned no data")
	}
	return int(data[0]), nil
}

// startKeepaliveLocked spins up the keepalive loop when the protocol needs
// one and it is not already running. Caller holds mu.
func (ad *ActiveDevice) startKeepaliveLocked() {
	interval := ad.proto.KeepaliveInterval()
	if interval <= 0 || ad.keepaliveStop != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	ad.keepaliveStop = cancel
	groutine.Go(ctx, "link-keepalive", func(ctx context.Context) {
		ad.keepaliveLoop(ctx, interval)
	})
}

func (ad *ActiveDevice) stopKeepaliveLocked() {
	if ad.keepaliveStop != nil {
		ad.keepaliveStop()
		ad.keepaliveStop = nil
	}
}

// keepaliveLoop re-sends the last requested intensity so devices that decay
// without traffic keep running. A failed keepalive is recoverable, the next
// tick retries; failures log and are swallowed.
func (ad *ActiveDevice) keepaliveLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ad.mu.Lock()
			if !ad.closed && ad.active {
				if ad.gate != nil {
					ad.gate.submit(gateRequest{intensity: ad.lastIntensity})
				} else if err := ad.writeIntensity(ctx, ad.lastIntensity); err != nil {
					ad.logger.WithError(err).WithField("device", ad.dev.Name()).Warn("Keepalive write failed")
				}
			}
			ad.mu.Unlock()
		}
	}
}

// dispatchWrite executes one gate request. The dispatcher goroutine is the
// only caller, so protocol state stays single-threaded.
func (ad *ActiveDevice) dispatchWrite(ctx context.Context, req gateRequest) {
	var err error
	if req.stop {
		err = ad.writeStop(ctx)
	} else {
		err = ad.writeIntensity(ctx, req.intensity)
	}
	if err != nil {
		ad.logger.WithError(err).WithField("device", ad.dev.Name()).Warn("Serialized write failed")
	}
}

func (ad *ActiveDevice) writeIntensity(ctx context.Context, intensity float64) error {
	if ad.sender != nil {
		return ad.sender.SendCommand(ctx, ad, intensity)
	}
	return ad.Write(ad.proto.BuildCommand(intensity))
}

func (ad *ActiveDevice) writeStop(ctx context.Context) error {
	if ad.sender != nil {
		return ad.sender.StopCommand(ctx, ad)
	}
	return ad.Write(ad.proto.BuildStopCommand())
}
