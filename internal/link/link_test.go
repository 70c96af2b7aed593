package link

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/EcstasyEngineer/feedback-demo/internal/device"
	"github.com/EcstasyEngineer/feedback-demo/internal/protocol"
	"github.com/EcstasyEngineer/feedback-demo/internal/testutils"
)

const lovenseControlCharUUID = "50300002-0023-4bd4-bbd5-a6920e4c5653"

// modernEStimPeripheral mirrors the current-generation box: one control
// service carrying the write and notify characteristics.
func modernEStimPeripheral() *testutils.FakePeripheral {
	return testutils.NewPeripheralBuilder().
		WithName("47L121000").
		WithAddress("AA:BB:CC:DD:EE:01").
		WithService("1800").
		WithCharacteristic("2a00", "read", []byte("47L121000")).
		WithService(protocol.V3ServiceUUID).
		WithCharacteristic(protocol.V3WriteCharUUID, "write", nil).
		WithCharacteristic(protocol.V3NotifyCharUUID, "notify", nil).
		Build()
}

// legacyEStimPeripheral mirrors field firmware that splits the power and
// waveform characteristics across the writable service and its read-only
// clone.
func legacyEStimPeripheral() *testutils.FakePeripheral {
	return testutils.NewPeripheralBuilder().
		WithName("D-LAB ESTIM01").
		WithAddress("AA:BB:CC:DD:EE:02").
		WithService(protocol.LegacyServiceWritableUUID).
		WithCharacteristic(protocol.LegacyPowerCharUUID, "writewithoutresponse", nil).
		WithService(protocol.LegacyServiceReadOnlyUUID).
		WithCharacteristic(protocol.LegacyWaveformACharUUID, "writewithoutresponse", nil).
		WithCharacteristic(protocol.LegacyWaveformBCharUUID, "writewithoutresponse", nil).
		Build()
}

func lovensePeripheral() *testutils.FakePeripheral {
	return testutils.NewPeripheralBuilder().
		WithName("LVS-Domi38").
		WithAddress("AA:BB:CC:DD:EE:03").
		WithService("1800").
		WithCharacteristic("2a00", "read,write", []byte("LVS-Domi38")).
		WithService("50300001-0023-4bd4-bbd5-a6920e4c5653").
		WithCharacteristic(lovenseControlCharUUID, "writewithoutresponse,notify", nil).
		Build()
}

type LinkManagerSuite struct {
	suite.Suite
}

func TestLinkManagerSuite(t *testing.T) {
	suite.Run(t, new(LinkManagerSuite))
}

func (s *LinkManagerSuite) manager() *Manager {
	return NewManager(testutils.NewTestHelper(s.T()).Logger)
}

// connect runs the full pipeline and registers cleanup for the handle.
func (s *LinkManagerSuite) connect(p *testutils.FakePeripheral, opts *Options) *ActiveDevice {
	ad, err := s.manager().ConnectDevice(context.Background(), p, opts)
	s.Require().NoError(err, "connect MUST succeed")
	s.T().Cleanup(func() { _ = ad.Disconnect() })
	return ad
}

func (s *LinkManagerSuite) TestConnect_RetriesTransientFailures() {
	// GOAL: Verify transient connect failures are retried and the link still
	// comes up classified.
	p := testutils.NewPeripheralBuilder().
		WithName("47L121000").
		WithAddress("AA:BB:CC:DD:EE:01").
		WithConnectFailures(2, errors.New("le connection timeout")).
		WithService(protocol.V3ServiceUUID).
		WithCharacteristic(protocol.V3WriteCharUUID, "write", nil).
		Build()

	ad := s.connect(p, nil)

	s.Equal(3, p.ConnectAttempts(), "two failures MUST consume exactly two retries")
	s.True(p.IsConnected())
	s.Equal("coyote-v3", ad.Protocol().ID())
}

func (s *LinkManagerSuite) TestConnect_GivesUpAfterRetries() {
	p := testutils.NewPeripheralBuilder().
		WithName("47L121000").
		WithAddress("AA:BB:CC:DD:EE:01").
		WithConnectFailures(3, errors.New("le connection timeout")).
		Build()

	_, err := s.manager().ConnectDevice(context.Background(), p, nil)

	s.Require().Error(err)
	s.ErrorIs(err, device.ErrConnectFailed, "exhausted retries MUST surface the connect-failed sentinel")
	s.Contains(err.Error(), "after 3 attempts")
	s.Contains(err.Error(), "le connection timeout", "the last attempt error MUST be preserved")
	s.Equal(3, p.ConnectAttempts())
	s.False(p.IsConnected())
}

func (s *LinkManagerSuite) TestConnect_RequiresAddress() {
	m := s.manager()

	_, err := m.Connect(context.Background(), nil)
	s.Require().Error(err)
	s.Contains(err.Error(), "device address is required")

	_, err = m.Connect(context.Background(), &Options{})
	s.Error(err)
}

func (s *LinkManagerSuite) TestConnect_CancelledDuringSettle() {
	p := modernEStimPeripheral()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := s.manager().ConnectDevice(ctx, p, nil)

	s.Require().Error(err)
	s.ErrorIs(err, context.DeadlineExceeded)
	s.False(p.IsConnected(), "a link cancelled during settle MUST be torn down")
}

func (s *LinkManagerSuite) TestSetup_ModernGenerationSelected() {
	// GOAL: Verify the modern control service wins generation selection and
	// setup writes the soft-limit config frame with acknowledgement.
	p := modernEStimPeripheral()

	ad := s.connect(p, nil)

	s.Equal("coyote-v3", ad.Protocol().ID())
	writes := p.Connection().Characteristic(protocol.V3WriteCharUUID).Writes()
	s.Require().Len(writes, 1, "setup MUST write exactly the config frame")
	s.Equal([]byte{0xBF, 200, 200, 160, 160, 0, 0}, writes[0].Data)
	s.True(writes[0].WithResponse, "modern control writes MUST be acknowledged")
}

func (s *LinkManagerSuite) TestSetup_ModernGenerationWithoutNotify() {
	// The status stream is optional; a box without the notify characteristic
	// still links up.
	p := testutils.NewPeripheralBuilder().
		WithName("47L121000").
		WithAddress("AA:BB:CC:DD:EE:01").
		WithService(protocol.V3ServiceUUID).
		WithCharacteristic(protocol.V3WriteCharUUID, "write", nil).
		Build()

	ad := s.connect(p, nil)

	s.Equal("coyote-v3", ad.Protocol().ID())
}

func (s *LinkManagerSuite) TestSetup_LegacyGenerationAcrossServiceVariants() {
	// GOAL: Verify legacy classification collects the power and waveform
	// characteristics even when firmware scatters them across both service
	// variants, and that retained power is zeroed on setup.
	p := legacyEStimPeripheral()

	ad := s.connect(p, nil)

	s.Equal("coyote-v2", ad.Protocol().ID())
	power := p.Connection().Characteristic(protocol.LegacyPowerCharUUID)
	writes := power.Writes()
	s.Require().Len(writes, 1)
	s.Equal(protocol.PackPower(0, 0), writes[0].Data, "setup MUST zero retained power")
	s.False(writes[0].WithResponse, "legacy writes MUST be unacknowledged")
}

func (s *LinkManagerSuite) TestSetup_LegacySwapChannels() {
	ad := s.connect(legacyEStimPeripheral(), &Options{SwapChannels: true})

	v2, ok := ad.Protocol().(*protocol.CoyoteV2)
	s.Require().True(ok)
	s.True(v2.SwapChannels)
}

func (s *LinkManagerSuite) TestSetup_EStimTopologyInError() {
	// GOAL: Verify an e-stim box with no usable service fails with the full
	// discovered topology, the only diagnostic a user report will carry.
	p := testutils.NewPeripheralBuilder().
		WithName("Coyote 3").
		WithAddress("AA:BB:CC:DD:EE:05").
		WithService("1800").
		WithCharacteristic("2a00", "read", []byte("Coyote 3")).
		WithService("180f").
		WithCharacteristic("2a19", "read", []byte{100}).
		Build()

	_, err := s.manager().ConnectDevice(context.Background(), p, nil)

	s.Require().Error(err)
	s.ErrorIs(err, ErrNoKnownService)

	var nks *NoKnownServiceError
	s.Require().ErrorAs(err, &nks)
	s.Equal("Coyote 3", nks.Device)
	s.Contains(err.Error(), "exposes no known e-stim service")
	s.Contains(err.Error(), "Battery Service", "topology dump MUST name known services")
	s.Contains(err.Error(), "2a19")
	s.False(p.IsConnected(), "failed classification MUST drop the link")
}

func (s *LinkManagerSuite) TestSetup_GenericClassification() {
	p := lovensePeripheral()

	ad := s.connect(p, nil)

	s.Equal("lovense", ad.Protocol().ID())

	s.Require().NoError(ad.Send(context.Background(), 0.5))
	ctrl := p.Connection().Characteristic(lovenseControlCharUUID)
	s.Require().NotNil(ctrl.LastWrite())
	s.Equal("Vibrate:10;", string(ctrl.LastWrite().Data))
	s.False(ctrl.LastWrite().WithResponse, "unacknowledged writes MUST be preferred when offered")

	gap := p.Connection().Characteristic("2a00")
	s.Empty(gap.Writes(), "generic access characteristics MUST never carry control traffic")
}

func (s *LinkManagerSuite) TestSetup_GenericAcknowledgedWrites() {
	// A control characteristic without write-without-response falls back to
	// acknowledged writes.
	p := testutils.NewPeripheralBuilder().
		WithName("SF-Plug").
		WithAddress("AA:BB:CC:DD:EE:04").
		WithService("aaa00001-1111-2222-3333-444455556666").
		WithCharacteristic("aaa00002-1111-2222-3333-444455556666", "write", nil).
		Build()

	ad := s.connect(p, nil)

	s.Equal("satisfyer", ad.Protocol().ID())
	s.Require().NoError(ad.Send(context.Background(), 1))
	last := p.Connection().Characteristic("aaa00002-1111-2222-3333-444455556666").LastWrite()
	s.Require().NotNil(last)
	s.True(last.WithResponse)
}

func (s *LinkManagerSuite) TestSetup_GenericNoWritableCharacteristic() {
	p := testutils.NewPeripheralBuilder().
		WithName("LVS-Hush").
		WithAddress("AA:BB:CC:DD:EE:06").
		WithService("50300001-0023-4bd4-bbd5-a6920e4c5653").
		WithCharacteristic(lovenseControlCharUUID, "read,notify", nil).
		Build()

	_, err := s.manager().ConnectDevice(context.Background(), p, nil)

	s.Require().Error(err)
	s.ErrorIs(err, ErrNoWritableCharacteristic)
	s.False(p.IsConnected())
}

func (s *LinkManagerSuite) TestSetup_UnknownDeviceRejected() {
	p := testutils.NewPeripheralBuilder().
		WithName("Mystery Box").
		WithAddress("AA:BB:CC:DD:EE:07").
		WithService("aaa00001-1111-2222-3333-444455556666").
		WithCharacteristic("aaa00002-1111-2222-3333-444455556666", "write", nil).
		Build()

	_, err := s.manager().ConnectDevice(context.Background(), p, nil)

	s.Require().Error(err)
	s.ErrorIs(err, protocol.ErrUnknownDevice)

	var ude *protocol.UnknownDeviceError
	s.Require().ErrorAs(err, &ude)
	s.Equal("Mystery Box", ude.Name)
}
