package protocol

import (
	"context"
	"time"
)

const (
	// V3MaxStrength is the modern generation's per-channel power ceiling.
	V3MaxStrength = 200

	// MaxSampleIntensity is the top of a waveform sample's valid range.
	// Values above it disable the sample.
	MaxSampleIntensity = 100

	v3FrameCommand = 0xB0
	v3FrameConfig  = 0xBF

	// Strength-interpretation nibble of a B0 frame: two bits per channel,
	// 0b11 = set absolute value. Both channels absolute here.
	v3ModeSet = 0x0f

	// BF config defaults: soft limit wide open, balance parameters neutral.
	v3SoftLimit        = 200
	v3FrequencyBalance = 160
	v3IntensityBalance = 0
)

// Waveform is one 100ms output block: four 25ms samples of pulse frequency
// (Hz, 10..1000) and sample intensity (0..100). An intensity above
// MaxSampleIntensity disables that sample; a block with all four samples
// disabled silences the channel for the frame.
type Waveform struct {
	Frequency [4]int
	Intensity [4]int
}

func defaultWaveform() Waveform {
	return Waveform{
		Frequency: [4]int{100, 100, 100, 100},
		Intensity: [4]int{100, 100, 100, 100},
	}
}

func (w Waveform) disabled() bool {
	for _, in := range w.Intensity {
		if in <= MaxSampleIntensity {
			return false
		}
	}
	return true
}

type v3Channel struct {
	strength int
	wave     Waveform
}

// CoyoteV3 drives the modern e-stim generation: a single control
// characteristic taking acknowledged 20-byte B0 frames. Each frame carries
// both channels' strength plus 100ms of waveform samples, so frames must keep
// flowing at the keepalive period for continuous output.
type CoyoteV3 struct {
	descriptor
	seq   byte // rolling 4-bit counter stamped into every B0 frame
	chans [2]v3Channel
}

func NewCoyoteV3() *CoyoteV3 {
	p := &CoyoteV3{descriptor: descriptor{
		id:        "coyote-v3",
		max:       V3MaxStrength,
		motors:    2,
		keepalive: 100 * time.Millisecond,
	}}
	p.resetState()
	return p
}

func (p *CoyoteV3) resetState() {
	p.seq = 0
	for i := range p.chans {
		p.chans[i] = v3Channel{wave: defaultWaveform()}
	}
}

// buildFrame composes the 20-byte B0 frame from both retained channel states:
// 0xB0, seq<<4|mode, strengthA, strengthB, freqA[4], intenA[4], freqB[4],
// intenB[4].
func (p *CoyoteV3) buildFrame() []byte {
	frame := make([]byte, 0, 20)
	frame = append(frame, v3FrameCommand, p.seq<<4|v3ModeSet)
	p.seq = (p.seq + 1) & 0x0f
	frame = append(frame,
		byte(p.chans[ChannelA].strength),
		byte(p.chans[ChannelB].strength))
	for _, ch := range []Channel{ChannelA, ChannelB} {
		frame = appendWaveform(frame, p.chans[ch].wave)
	}
	return frame
}

func appendWaveform(frame []byte, w Waveform) []byte {
	if w.disabled() {
		return append(frame, 0, 0, 0, 0, 0, 0, 0, 0)
	}
	for _, hz := range w.Frequency {
		frame = append(frame, EncodeFrequency(hz))
	}
	for _, in := range w.Intensity {
		if in > MaxSampleIntensity {
			frame = append(frame, 0) // disabled sample
			continue
		}
		frame = append(frame, byte(clampInt(in, 0, MaxSampleIntensity)))
	}
	return frame
}

func (p *CoyoteV3) BuildCommand(intensity float64) []byte {
	lvl := level(intensity, p.max)
	p.chans[ChannelA].strength = lvl
	p.chans[ChannelB].strength = lvl
	return p.buildFrame()
}

// BuildChannelCommand updates one channel's strength and recomposes the frame
// with the other channel's retained state.
func (p *CoyoteV3) BuildChannelCommand(ch Channel, intensity float64) []byte {
	p.chans[ch].strength = level(intensity, p.max)
	return p.buildFrame()
}

func (p *CoyoteV3) BuildStopCommand() []byte {
	p.resetState()
	return p.buildFrame()
}

// SetWaveform replaces one channel's waveform block. Takes effect on the next
// built frame. The crossed-channel wiring of the legacy generation has not
// been observed on V3 hardware, so there is no swap option here.
func (p *CoyoteV3) SetWaveform(ch Channel, w Waveform) {
	p.chans[ch].wave = w
}

// Init writes the BF soft-limit/balance frame. The box acknowledges on the
// notify characteristic; that response is not consumed here.
func (p *CoyoteV3) Init(ctx context.Context, h WriteHandle) bool {
	if ctx.Err() != nil {
		return false
	}
	frame := []byte{
		v3FrameConfig,
		v3SoftLimit, v3SoftLimit,
		v3FrequencyBalance, v3FrequencyBalance,
		v3IntensityBalance, v3IntensityBalance,
	}
	return h.Write(frame) == nil
}
