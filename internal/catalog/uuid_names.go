package catalog

import (
	"github.com/EcstasyEngineer/feedback-demo/internal/device"
	"github.com/EcstasyEngineer/feedback-demo/internal/protocol"
)

// Human names for the GATT landmarks this tool actually touches, keyed by
// normalized UUID. Scoped on purpose: diagnostics dumps should label what the
// connection logic cares about, not mirror the whole SIG registry.
var serviceNames = map[string]string{
	"1800": "Generic Access",
	"1801": "Generic Attribute",
	"180a": "Device Information",
	"180f": "Battery Service",

	protocol.V3ServiceUUID:             "E-Stim Control (V3)",
	protocol.LegacyServiceWritableUUID: "E-Stim Legacy (writable)",
	protocol.LegacyServiceReadOnlyUUID: "E-Stim Legacy (read-only)",

	"5030000100234bd4bbd5a6920e4c5653": "Lovense Control",
	"5330000100234bd4bbd5a6920e4c5653": "Lovense Control",
	"5730000100234bd4bbd5a6920e4c5653": "Lovense Control",
	"5a30000100234bd4bbd5a6920e4c5653": "Lovense Control",
	"f000bb0304514000b000000000000000": "We-Vibe Control",
	"f0006900b5a3f393e0a9e50e24dcca9e": "MysteryVibe Motor Control",
}

var characteristicNames = map[string]string{
	"2a00": "Device Name",
	"2a19": "Battery Level",

	protocol.V3WriteCharUUID:         "E-Stim Write (V3)",
	protocol.V3NotifyCharUUID:        "E-Stim Notify (V3)",
	protocol.LegacyPowerCharUUID:     "E-Stim Power",
	protocol.LegacyWaveformACharUUID: "E-Stim Waveform A",
	protocol.LegacyWaveformBCharUUID: "E-Stim Waveform B",
}

// ServiceName returns a human name for a known service UUID, or the shortened
// UUID itself when unknown.
func ServiceName(uuid string) string {
	n := device.NormalizeUUID(uuid)
	if name, ok := serviceNames[n]; ok {
		return name
	}
	return device.ShortenUUID(n)
}

// CharacteristicName returns a human name for a known characteristic UUID, or
// the shortened UUID itself when unknown.
func CharacteristicName(uuid string) string {
	n := device.NormalizeUUID(uuid)
	if name, ok := characteristicNames[n]; ok {
		return name
	}
	return device.ShortenUUID(n)
}
