package protocol

import (
	"context"
	"time"
)

// V2MaxStrength is the legacy generation's per-channel power ceiling (11 bit).
const V2MaxStrength = 2047

// PulseShape is one legacy waveform frame: Count pulses of Width duration,
// Delay apart. Wire ranges: Count 0..31, Delay 0..1023, Width 0..31.
type PulseShape struct {
	Count int
	Delay int
	Width int
}

// defaultPulse is a steady mid-band shape that produces continuous output
// while power is nonzero.
var defaultPulse = PulseShape{Count: 5, Delay: 95, Width: 20}

// PackPower packs two 11-bit channel levels into the legacy 3-byte power
// frame: channel A in bits 11..21, channel B in bits 0..10, least significant
// byte first.
func PackPower(a, b int) []byte {
	v := uint32(clampInt(a, 0, V2MaxStrength))<<11 | uint32(clampInt(b, 0, V2MaxStrength))
	return []byte{byte(v), byte(v >> 8), byte(v >> 16)}
}

// UnpackPower inverts PackPower.
func UnpackPower(frame []byte) (a, b int) {
	if len(frame) < 3 {
		return 0, 0
	}
	v := uint32(frame[0]) | uint32(frame[1])<<8 | uint32(frame[2])<<16
	return int(v >> 11 & 0x7ff), int(v & 0x7ff)
}

// PackPulse packs one waveform frame: pulse count in bits 0..4, inter-pulse
// delay in bits 5..14, pulse width in bits 15..19, least significant byte
// first.
func PackPulse(count, delay, width int) []byte {
	v := uint32(clampInt(count, 0, 31)) |
		uint32(clampInt(delay, 0, 1023))<<5 |
		uint32(clampInt(width, 0, 31))<<15
	return []byte{byte(v), byte(v >> 8), byte(v >> 16)}
}

// CoyoteV2 drives the legacy e-stim generation: power on 955a1504, waveforms
// on 955a1505/955a1506, all write-without-response. One intensity command
// needs three characteristic writes, so the protocol implements Sender and
// the connection layer must funnel it through the serialized write gate.
type CoyoteV2 struct {
	descriptor

	// SwapChannels routes logical channel A through the 955a1506 slot and B
	// through 955a1505. On known legacy units the output jacks are wired
	// crosswise relative to the characteristic labels; off by default until
	// verified against the unit at hand.
	SwapChannels bool

	strength [2]int
	pulse    [2]PulseShape
}

func NewCoyoteV2() *CoyoteV2 {
	p := &CoyoteV2{descriptor: descriptor{
		id:        "coyote-v2",
		max:       V2MaxStrength,
		motors:    2,
		keepalive: 100 * time.Millisecond,
	}}
	p.resetState()
	return p
}

func (p *CoyoteV2) resetState() {
	p.strength = [2]int{}
	p.pulse = [2]PulseShape{defaultPulse, defaultPulse}
}

// scaledLevel derates normalized intensity by LegacyIntensityScale before
// mapping onto the 0..2047 range.
func (p *CoyoteV2) scaledLevel(intensity float64) int {
	return level(clamp01(intensity)*LegacyIntensityScale, p.max)
}

// slot maps a logical channel onto its wire slot. The mapping is symmetric,
// so it serves both directions.
func (p *CoyoteV2) slot(ch Channel) Channel {
	if p.SwapChannels {
		return ch ^ 1
	}
	return ch
}

func (p *CoyoteV2) waveformChar(ch Channel) string {
	if p.slot(ch) == ChannelA {
		return LegacyWaveformACharUUID
	}
	return LegacyWaveformBCharUUID
}

func (p *CoyoteV2) buildPower() []byte {
	return PackPower(p.strength[p.slot(ChannelA)], p.strength[p.slot(ChannelB)])
}

func (p *CoyoteV2) BuildCommand(intensity float64) []byte {
	lvl := p.scaledLevel(intensity)
	p.strength[ChannelA], p.strength[ChannelB] = lvl, lvl
	return p.buildPower()
}

// BuildChannelCommand updates one channel and recomposes the power frame with
// the other channel's retained level.
func (p *CoyoteV2) BuildChannelCommand(ch Channel, intensity float64) []byte {
	p.strength[ch] = p.scaledLevel(intensity)
	return p.buildPower()
}

func (p *CoyoteV2) BuildStopCommand() []byte {
	p.resetState()
	return PackPower(0, 0)
}

// SetPulse replaces one channel's waveform shape. Takes effect on the next
// SendCommand flush.
func (p *CoyoteV2) SetPulse(ch Channel, shape PulseShape) {
	p.pulse[ch] = PulseShape{
		Count: clampInt(shape.Count, 0, 31),
		Delay: clampInt(shape.Delay, 0, 1023),
		Width: clampInt(shape.Width, 0, 31),
	}
}

// Init zeroes both channels. The box retains its last power level across
// connects, so a fresh session must drop to zero explicitly.
func (p *CoyoteV2) Init(ctx context.Context, h WriteHandle) bool {
	if ctx.Err() != nil {
		return false
	}
	p.resetState()
	return h.WriteTo(LegacyPowerCharUUID, PackPower(0, 0)) == nil
}

// SendCommand sets both channels to the same intensity and flushes waveform
// and power frames.
func (p *CoyoteV2) SendCommand(ctx context.Context, h WriteHandle, intensity float64) error {
	lvl := p.scaledLevel(intensity)
	p.strength[ChannelA], p.strength[ChannelB] = lvl, lvl
	return p.flush(ctx, h)
}

// StopCommand zeroes state and kills power output with a single frame; no
// waveform writes are needed to stop.
func (p *CoyoteV2) StopCommand(ctx context.Context, h WriteHandle) error {
	p.resetState()
	if err := ctx.Err(); err != nil {
		return err
	}
	return h.WriteTo(LegacyPowerCharUUID, PackPower(0, 0))
}

func (p *CoyoteV2) flush(ctx context.Context, h WriteHandle) error {
	for _, ch := range []Channel{ChannelA, ChannelB} {
		if err := ctx.Err(); err != nil {
			return err
		}
		shape := p.pulse[ch]
		if err := h.WriteTo(p.waveformChar(ch), PackPulse(shape.Count, shape.Delay, shape.Width)); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return h.WriteTo(LegacyPowerCharUUID, p.buildPower())
}
