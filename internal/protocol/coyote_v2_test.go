package protocol

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackPower_RoundTripsFullRange(t *testing.T) {
	for a := 0; a <= V2MaxStrength; a++ {
		for b := 0; b <= V2MaxStrength; b += 89 {
			gotA, gotB := UnpackPower(PackPower(a, b))
			if gotA != a || gotB != b {
				t.Fatalf("unpack(pack(%d, %d)) = (%d, %d)", a, b, gotA, gotB)
			}
		}
	}
	// dense sweep of channel B as well
	for b := 0; b <= V2MaxStrength; b++ {
		gotA, gotB := UnpackPower(PackPower(1234, b))
		require.Equal(t, 1234, gotA)
		require.Equal(t, b, gotB)
	}
}

func TestPackPower_Layout(t *testing.T) {
	tests := []struct {
		name string
		a, b int
		want []byte
	}{
		{"zero", 0, 0, []byte{0x00, 0x00, 0x00}},
		{"b only fills low bits", 0, 2047, []byte{0xff, 0x07, 0x00}},
		{"a only fills high bits", 2047, 0, []byte{0x00, 0xf8, 0x3f}},
		{"both full", 2047, 2047, []byte{0xff, 0xff, 0x3f}},
		{"a one", 1, 0, []byte{0x00, 0x08, 0x00}},
		{"clamps above range", 4000, 4000, []byte{0xff, 0xff, 0x3f}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PackPower(tt.a, tt.b))
		})
	}
}

func TestPackPulse_Layout(t *testing.T) {
	tests := []struct {
		name                string
		count, delay, width int
		want                []byte
	}{
		{"zero", 0, 0, 0, []byte{0x00, 0x00, 0x00}},
		{"count only", 31, 0, 0, []byte{0x1f, 0x00, 0x00}},
		{"delay only", 0, 1023, 0, []byte{0xe0, 0x7f, 0x00}},
		{"width only", 0, 0, 31, []byte{0x00, 0x80, 0x0f}},
		{"all full", 31, 1023, 31, []byte{0xff, 0xff, 0x0f}},
		{"default shape", 5, 95, 20, []byte{0xe5, 0x0b, 0x0a}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PackPulse(tt.count, tt.delay, tt.width))
		})
	}
}

func TestCoyoteV2_IntensityScale(t *testing.T) {
	orig := LegacyIntensityScale
	defer func() { LegacyIntensityScale = orig }()

	p := NewCoyoteV2()

	// default 0.5 derating: full intensity lands at half range
	a, b := UnpackPower(p.BuildCommand(1))
	assert.Equal(t, 1024, a, "full intensity MUST be derated to half the 2047 range")
	assert.Equal(t, 1024, b)

	// clamping happens before scaling: 1.5 is not 0.75 of range
	a, _ = UnpackPower(p.BuildCommand(1.5))
	assert.Equal(t, 1024, a, "out-of-range input MUST clamp before the derating factor applies")

	LegacyIntensityScale = 1.0
	a, b = UnpackPower(p.BuildCommand(1))
	assert.Equal(t, 2047, a, "raised scale MUST open the full range")
	assert.Equal(t, 2047, b)
}

func TestCoyoteV2_ChannelCommandRetainsOtherChannel(t *testing.T) {
	p := NewCoyoteV2()

	p.BuildChannelCommand(ChannelA, 1)
	frame := p.BuildChannelCommand(ChannelB, 0.5)

	a, b := UnpackPower(frame)
	assert.Equal(t, 1024, a, "channel A MUST keep its last level when B updates")
	assert.Equal(t, 512, b)
}

func TestCoyoteV2_StopResetsState(t *testing.T) {
	p := NewCoyoteV2()

	p.BuildChannelCommand(ChannelB, 1)
	stop := p.BuildStopCommand()
	a, b := UnpackPower(stop)
	assert.Zero(t, a)
	assert.Zero(t, b)

	// after stop, an update to A must not resurrect B's old level
	frame := p.BuildChannelCommand(ChannelA, 0.5)
	a, b = UnpackPower(frame)
	assert.Equal(t, 512, a)
	assert.Zero(t, b, "stop MUST clear channel B, not leave residual state")
}

func TestCoyoteV2_SendCommandWriteSequence(t *testing.T) {
	p := NewCoyoteV2()
	rec := &writeRecorder{}

	require.NoError(t, p.SendCommand(context.Background(), rec, 1))

	require.Len(t, rec.writes, 3, "one send MUST produce two waveform writes and one power write")
	assert.Equal(t, LegacyWaveformACharUUID, rec.writes[0].CharUUID)
	assert.Equal(t, LegacyWaveformBCharUUID, rec.writes[1].CharUUID)
	assert.Equal(t, LegacyPowerCharUUID, rec.writes[2].CharUUID)

	assert.Equal(t, PackPulse(5, 95, 20), rec.writes[0].Data)
	a, b := UnpackPower(rec.writes[2].Data)
	assert.Equal(t, 1024, a)
	assert.Equal(t, 1024, b)
}

func TestCoyoteV2_StopCommandWritesZeroPowerOnly(t *testing.T) {
	p := NewCoyoteV2()
	rec := &writeRecorder{}

	require.NoError(t, p.SendCommand(context.Background(), rec, 0.8))
	rec.writes = nil

	require.NoError(t, p.StopCommand(context.Background(), rec))
	require.Len(t, rec.writes, 1)
	assert.Equal(t, LegacyPowerCharUUID, rec.writes[0].CharUUID)
	assert.Equal(t, PackPower(0, 0), rec.writes[0].Data)
}

func TestCoyoteV2_SwapChannels(t *testing.T) {
	p := NewCoyoteV2()
	p.SwapChannels = true

	// logical A now rides the wire's B slot
	frame := p.BuildChannelCommand(ChannelA, 1)
	wireA, wireB := UnpackPower(frame)
	assert.Zero(t, wireA)
	assert.Equal(t, 1024, wireB, "swapped logical A MUST land in the wire B bits")

	rec := &writeRecorder{}
	require.NoError(t, p.SendCommand(context.Background(), rec, 1))
	assert.Equal(t, LegacyWaveformBCharUUID, rec.writes[0].CharUUID,
		"swapped logical A waveform MUST go to the 955a1506 characteristic")
	assert.Equal(t, LegacyWaveformACharUUID, rec.writes[1].CharUUID)
}

func TestCoyoteV2_InitZeroesBothChannels(t *testing.T) {
	p := NewCoyoteV2()
	p.BuildChannelCommand(ChannelA, 1)

	rec := &writeRecorder{}
	assert.True(t, p.Init(context.Background(), rec))

	require.Len(t, rec.writes, 1)
	assert.Equal(t, LegacyPowerCharUUID, rec.writes[0].CharUUID)
	assert.Equal(t, PackPower(0, 0), rec.writes[0].Data)
}

func TestCoyoteV2_InitReportsFailure(t *testing.T) {
	p := NewCoyoteV2()
	rec := &writeRecorder{err: assert.AnError}
	assert.False(t, p.Init(context.Background(), rec), "init failure MUST surface as false, not an error")
}

func TestCoyoteV2_SetPulseClampsShape(t *testing.T) {
	p := NewCoyoteV2()
	p.SetPulse(ChannelA, PulseShape{Count: 99, Delay: 5000, Width: -3})

	rec := &writeRecorder{}
	require.NoError(t, p.SendCommand(context.Background(), rec, 0.5))
	assert.Equal(t, PackPulse(31, 1023, 0), rec.writes[0].Data)
}
