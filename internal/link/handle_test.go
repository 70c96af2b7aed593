package link

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EcstasyEngineer/feedback-demo/internal/device"
	"github.com/EcstasyEngineer/feedback-demo/internal/protocol"
	"github.com/EcstasyEngineer/feedback-demo/internal/testutils"
)

func connectForTest(t *testing.T, p *testutils.FakePeripheral, opts *Options) *ActiveDevice {
	t.Helper()
	m := NewManager(testutils.NewTestHelper(t).Logger)
	ad, err := m.ConnectDevice(context.Background(), p, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ad.Disconnect() })
	return ad
}

func TestSend_DirectPath(t *testing.T) {
	p := lovensePeripheral()
	ad := connectForTest(t, p, nil)
	ctrl := p.Connection().Characteristic(lovenseControlCharUUID)

	require.NoError(t, ad.Send(context.Background(), 0.5))
	require.NoError(t, ad.Stop(context.Background()))
	require.NoError(t, ad.Stop(context.Background()), "repeated stop MUST be a no-op")

	writes := ctrl.Writes()
	require.Len(t, writes, 2, "one send, one stop, nothing for the repeat")
	assert.Equal(t, "Vibrate:10;", string(writes[0].Data))
	assert.Equal(t, "Vibrate:0;", string(writes[1].Data))
	assert.InDelta(t, 0.5, ad.LastIntensity(), 1e-9)
}

func TestStop_WithoutOutputWritesNothing(t *testing.T) {
	p := lovensePeripheral()
	ad := connectForTest(t, p, nil)

	require.NoError(t, ad.Stop(context.Background()))

	assert.Empty(t, p.Connection().Characteristic(lovenseControlCharUUID).Writes())
}

func TestDisconnect_Idempotent(t *testing.T) {
	p := lovensePeripheral()
	ad := connectForTest(t, p, nil)

	require.NoError(t, ad.Disconnect())
	require.NoError(t, ad.Disconnect(), "disconnect MUST be idempotent")
	assert.False(t, p.IsConnected())

	err := ad.Send(context.Background(), 0.5)
	assert.ErrorIs(t, err, device.ErrNotConnected)
	assert.NoError(t, ad.Stop(context.Background()), "stop after disconnect is a no-op")
}

func TestGate_CoalescesWhileWriteInFlight(t *testing.T) {
	p := legacyEStimPeripheral()
	ad := connectForTest(t, p, nil)

	conn := p.Connection()
	power := conn.Characteristic(protocol.LegacyPowerCharUUID)
	waveA := conn.Characteristic(protocol.LegacyWaveformACharUUID)

	// Block the first write of the flush so further sends pile up behind an
	// in-flight command.
	inFlight := waveA.BlockWrites()

	require.NoError(t, ad.Send(context.Background(), 0.2))
	select {
	case <-inFlight:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher never reached the waveform write")
	}

	require.NoError(t, ad.Send(context.Background(), 0.4))
	require.NoError(t, ad.Send(context.Background(), 0.9))

	select {
	case <-inFlight:
		t.Fatal("a second write started while one was in flight")
	case <-time.After(150 * time.Millisecond):
	}
	require.Len(t, power.Writes(), 1, "only the setup zero frame may have landed so far")

	waveA.UnblockWrites()

	require.Eventually(t, func() bool {
		return len(power.Writes()) == 3
	}, 2*time.Second, 10*time.Millisecond, "the blocked flush and the coalesced follow-up MUST both land")

	writes := power.Writes()
	assert.Equal(t, protocol.PackPower(0, 0), writes[0].Data)
	assert.Equal(t, protocol.PackPower(205, 205), writes[1].Data, "the in-flight command finishes at its own level")
	assert.Equal(t, protocol.PackPower(921, 921), writes[2].Data, "the newest pending level wins")
	for _, w := range writes {
		assert.NotEqual(t, protocol.PackPower(409, 409), w.Data, "the displaced level MUST never reach the device")
	}
	assert.Len(t, waveA.Writes(), 2, "one waveform write per flush")
}

func TestDisconnect_DrainsQueuedStop(t *testing.T) {
	p := legacyEStimPeripheral()
	ad := connectForTest(t, p, nil)
	power := p.Connection().Characteristic(protocol.LegacyPowerCharUUID)

	require.NoError(t, ad.Send(context.Background(), 0.3))
	require.NoError(t, ad.Stop(context.Background()))
	require.NoError(t, ad.Disconnect())

	// Disconnect returns only after the dispatcher drained the queue.
	writes := power.Writes()
	require.NotEmpty(t, writes)
	assert.Equal(t, protocol.PackPower(0, 0), writes[len(writes)-1].Data, "the stop frame lands before the link drops")
	assert.False(t, p.IsConnected())
}

func TestKeepalive_RepeatsWhileActive(t *testing.T) {
	p := modernEStimPeripheral()
	ad := connectForTest(t, p, nil)
	ctrl := p.Connection().Characteristic(protocol.V3WriteCharUUID)

	require.NoError(t, ad.Activate(context.Background(), 0.6))
	assert.True(t, ad.IsActive())

	// Config frame, the initial command, then keepalive repeats.
	require.Eventually(t, func() bool {
		return len(ctrl.Writes()) >= 4
	}, 2*time.Second, 10*time.Millisecond, "keepalive MUST re-send while the window is open")

	writes := ctrl.Writes()
	assert.Equal(t, byte(0xB0), writes[1].Data[0])
	assert.Equal(t, byte(120), writes[1].Data[2], "channel A strength")
	assert.Equal(t, byte(120), writes[1].Data[3], "channel B strength")
	assert.Equal(t, byte(120), writes[2].Data[2], "keepalive repeats the last level")

	require.NoError(t, ad.Stop(context.Background()))
	assert.False(t, ad.IsActive())

	writes = ctrl.Writes()
	last := writes[len(writes)-1]
	assert.Equal(t, byte(0), last.Data[2], "stop zeroes channel A")
	assert.Equal(t, byte(0), last.Data[3], "stop zeroes channel B")

	n := len(writes)
	time.Sleep(250 * time.Millisecond)
	assert.Len(t, ctrl.Writes(), n, "keepalive MUST stop with the window")
}

func TestKeepalive_LegacyFlowsThroughGate(t *testing.T) {
	p := legacyEStimPeripheral()
	ad := connectForTest(t, p, nil)
	power := p.Connection().Characteristic(protocol.LegacyPowerCharUUID)

	require.NoError(t, ad.Activate(context.Background(), 0.5))

	// Setup zero frame, the first flush, then keepalive repeats at the frame
	// cadence.
	require.Eventually(t, func() bool {
		return len(power.Writes()) >= 4
	}, 2*time.Second, 10*time.Millisecond)

	writes := power.Writes()
	assert.Equal(t, protocol.PackPower(512, 512), writes[1].Data)
	assert.Equal(t, protocol.PackPower(512, 512), writes[2].Data, "keepalive repeats the last level")

	require.NoError(t, ad.Stop(context.Background()))
	require.Eventually(t, func() bool {
		w := power.Writes()
		return len(w) > 0 && bytes.Equal(w[len(w)-1].Data, protocol.PackPower(0, 0))
	}, 2*time.Second, 10*time.Millisecond, "the stop frame MUST land")

	n := len(power.Writes())
	time.Sleep(300 * time.Millisecond)
	assert.Len(t, power.Writes(), n, "no traffic after stop")
}

func TestBatteryLevel(t *testing.T) {
	t.Run("reports percentage", func(t *testing.T) {
		p := testutils.NewPeripheralBuilder().
			WithName("47L121000").
			WithAddress("AA:BB:CC:DD:EE:01").
			WithService(protocol.V3ServiceUUID).
			WithCharacteristic(protocol.V3WriteCharUUID, "write", nil).
			WithService("180f").
			WithCharacteristic("2a19", "read", []byte{87}).
			Build()
		ad := connectForTest(t, p, nil)

		got, err := ad.BatteryLevel(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 87, got)
	})

	t.Run("missing service", func(t *testing.T) {
		ad := connectForTest(t, modernEStimPeripheral(), nil)

		_, err := ad.BatteryLevel(context.Background())
		require.Error(t, err)
		var nfe *device.NotFoundError
		assert.ErrorAs(t, err, &nfe)
	})

	t.Run("after disconnect", func(t *testing.T) {
		ad := connectForTest(t, modernEStimPeripheral(), nil)
		require.NoError(t, ad.Disconnect())

		_, err := ad.BatteryLevel(context.Background())
		assert.ErrorIs(t, err, device.ErrNotConnected)
	})
}
