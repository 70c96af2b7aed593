package protocol

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoyoteV3_FrameHeader(t *testing.T) {
	p := NewCoyoteV3()

	// sequence nibble must climb and wrap at 16, mode nibble stays constant
	for i := 0; i < 40; i++ {
		frame := p.BuildCommand(0.5)
		require.Len(t, frame, 20)
		assert.Equal(t, byte(0xB0), frame[0], "byte 0 MUST always be the B0 command marker")
		assert.Equal(t, byte(i%16), frame[1]>>4, "high nibble MUST carry the rolling sequence")
		assert.Equal(t, byte(0x0f), frame[1]&0x0f, "low nibble MUST carry the set-absolute mode bits")
	}
}

func TestCoyoteV3_StrengthBytes(t *testing.T) {
	p := NewCoyoteV3()

	frame := p.BuildCommand(1)
	assert.Equal(t, byte(200), frame[2], "channel A strength MUST sit in byte 2")
	assert.Equal(t, byte(200), frame[3], "channel B strength MUST sit in byte 3")

	frame = p.BuildCommand(-0.5)
	assert.Equal(t, byte(0), frame[2])
	assert.Equal(t, byte(0), frame[3])

	frame = p.BuildCommand(2)
	assert.Equal(t, byte(200), frame[2], "strength MUST clamp to the 200 ceiling")
}

func TestCoyoteV3_ChannelCommandRetainsOtherChannel(t *testing.T) {
	p := NewCoyoteV3()

	p.BuildChannelCommand(ChannelA, 1)
	frame := p.BuildChannelCommand(ChannelB, 0.25)

	assert.Equal(t, byte(200), frame[2], "channel A MUST keep its last strength when B updates")
	assert.Equal(t, byte(50), frame[3])
}

func TestCoyoteV3_DefaultWaveformBytes(t *testing.T) {
	p := NewCoyoteV3()
	frame := p.BuildCommand(1)

	// bytes 4..7 channel A frequency, 8..11 channel A sample intensity,
	// 12..15 channel B frequency, 16..19 channel B sample intensity
	for i := 4; i < 8; i++ {
		assert.Equal(t, EncodeFrequency(100), frame[i])
	}
	for i := 8; i < 12; i++ {
		assert.Equal(t, byte(100), frame[i])
	}
	assert.Equal(t, frame[4:12], frame[12:20], "both channels MUST start with the same default waveform")
}

func TestCoyoteV3_SetWaveform(t *testing.T) {
	p := NewCoyoteV3()
	p.SetWaveform(ChannelA, Waveform{
		Frequency: [4]int{10, 100, 600, 1000},
		Intensity: [4]int{0, 50, 100, 100},
	})

	frame := p.BuildCommand(0.5)
	assert.Equal(t, []byte{10, 100, 200, 240}, frame[4:8])
	assert.Equal(t, []byte{0, 50, 100, 100}, frame[8:12])
	// channel B untouched
	assert.Equal(t, byte(EncodeFrequency(100)), frame[12])
}

func TestCoyoteV3_DisabledSamples(t *testing.T) {
	p := NewCoyoteV3()

	// one disabled sample encodes as zero output for that slot
	p.SetWaveform(ChannelA, Waveform{
		Frequency: [4]int{100, 100, 100, 100},
		Intensity: [4]int{100, 101, 100, 100},
	})
	frame := p.BuildCommand(1)
	assert.Equal(t, []byte{100, 0, 100, 100}, frame[8:12])

	// all four disabled silences the whole channel for the frame
	p.SetWaveform(ChannelA, Waveform{
		Frequency: [4]int{100, 100, 100, 100},
		Intensity: [4]int{101, 200, 999, 101},
	})
	frame = p.BuildCommand(1)
	assert.Equal(t, make([]byte, 8), frame[4:12], "fully disabled block MUST zero the channel's waveform bytes")
	// channel B keeps emitting
	assert.NotEqual(t, make([]byte, 8), frame[12:20])
}

func TestCoyoteV3_StopResetsState(t *testing.T) {
	p := NewCoyoteV3()

	p.SetWaveform(ChannelB, Waveform{Frequency: [4]int{500, 500, 500, 500}, Intensity: [4]int{1, 2, 3, 4}})
	p.BuildChannelCommand(ChannelB, 1)

	stop := p.BuildStopCommand()
	assert.Equal(t, byte(0xB0), stop[0])
	assert.Equal(t, byte(0), stop[1]>>4, "stop MUST reset the sequence counter")
	assert.Equal(t, byte(0), stop[2])
	assert.Equal(t, byte(0), stop[3])

	// after stop, an update to A must not resurrect B's old state
	frame := p.BuildChannelCommand(ChannelA, 0.5)
	assert.Equal(t, byte(100), frame[2])
	assert.Equal(t, byte(0), frame[3], "stop MUST clear channel B strength")
	assert.Equal(t, byte(EncodeFrequency(100)), frame[12], "stop MUST restore the default waveform")
}

func TestCoyoteV3_InitWritesConfigFrame(t *testing.T) {
	p := NewCoyoteV3()
	rec := &writeRecorder{}

	assert.True(t, p.Init(context.Background(), rec))

	require.Len(t, rec.writes, 1)
	assert.Empty(t, rec.writes[0].CharUUID, "config frame MUST go to the primary control characteristic")
	frame := rec.writes[0].Data
	require.Len(t, frame, 7)
	assert.Equal(t, byte(0xBF), frame[0])
	assert.Equal(t, []byte{200, 200}, frame[1:3], "soft limits MUST cover the full strength range")
}

func TestCoyoteV3_InitReportsFailure(t *testing.T) {
	p := NewCoyoteV3()

	rec := &writeRecorder{err: assert.AnError}
	assert.False(t, p.Init(context.Background(), rec))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, p.Init(ctx, &writeRecorder{}), "cancelled context MUST fail init without writing")
}
