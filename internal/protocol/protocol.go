// Package protocol encodes normalized intensity requests into the exact byte
// frames each supported device family expects. Encoders are write-only: they
// build (and for multi-characteristic devices, send) command frames, they never
// parse device responses.
//
// Implementations are not safe for concurrent use. The connection layer owns
// one protocol instance per device and serializes every Build*/Send* call
// through its write path.
package protocol

import (
	"context"
	"math"
	"time"
)

// Protocol is the uniform activation contract every device family implements.
type Protocol interface {
	// ID returns the unique registry key, e.g. "lovense".
	ID() string

	// MaxIntensity returns the device-native upper bound for one
	// motor/channel level (20, 200, 255, 2047, ...).
	MaxIntensity() int

	// MotorCount returns the number of independently addressable
	// motors/channels.
	MotorCount() int

	// KeepaliveInterval returns the period at which the last command must be
	// re-sent to keep the device running, or 0 if a single write holds.
	KeepaliveInterval() time.Duration

	// BuildCommand encodes a normalized intensity in [0,1] into the device's
	// command frame. Out-of-range inputs are clamped. Apart from retained
	// channel state it performs no I/O.
	BuildCommand(intensity float64) []byte

	// BuildStopCommand returns the frame that halts all output. It is
	// equivalent to BuildCommand(0) and resets any retained channel state.
	BuildStopCommand() []byte

	// Init performs the device's setup writes, if any. Failures are reported
	// as false, never as a panic or error: callers proceed degraded.
	Init(ctx context.Context, h WriteHandle) bool
}

// Sender is implemented by protocols whose commands span multiple
// characteristics (legacy e-stim) or multiple frames (per-motor register
// writes). The connection layer prefers SendCommand/StopCommand over
// BuildCommand when a protocol provides them.
type Sender interface {
	SendCommand(ctx context.Context, h WriteHandle, intensity float64) error
	StopCommand(ctx context.Context, h WriteHandle) error
}

// ChannelProtocol is implemented by dual-channel protocols that can address
// one channel while retaining the other's last-known state in the composed
// frame.
type ChannelProtocol interface {
	BuildChannelCommand(ch Channel, intensity float64) []byte
}

// WriteHandle is the device surface a protocol sees during Init and
// SendCommand: plain writes, no transport detail.
type WriteHandle interface {
	// Write sends data to the device's selected control characteristic.
	Write(data []byte) error

	// WriteTo sends data to a specific characteristic, addressed by UUID.
	WriteTo(charUUID string, data []byte) error
}

// Channel selects one output channel of a dual-channel device.
type Channel int

const (
	ChannelA Channel = iota
	ChannelB
)

func (c Channel) String() string {
	switch c {
	case ChannelA:
		return "A"
	case ChannelB:
		return "B"
	default:
		return "?"
	}
}

// descriptor carries the immutable identity every protocol shares.
type descriptor struct {
	id        string
	max       int
	motors    int
	keepalive time.Duration
}

func (d descriptor) ID() string                       { return d.id }
func (d descriptor) MaxIntensity() int                { return d.max }
func (d descriptor) MotorCount() int                  { return d.motors }
func (d descriptor) KeepaliveInterval() time.Duration { return d.keepalive }

// Init is the default no-op setup; families with real setup frames override it.
func (d descriptor) Init(ctx context.Context, h WriteHandle) bool { return true }

// level converts a normalized intensity into an integer device level,
// clamping into [0, max] first.
func level(intensity float64, max int) int {
	if math.IsNaN(intensity) || intensity < 0 {
		intensity = 0
	}
	if intensity > 1 {
		intensity = 1
	}
	return int(math.Round(intensity * float64(max)))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
