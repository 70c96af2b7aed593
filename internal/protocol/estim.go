package protocol

import "regexp"

// GATT landmarks for the two e-stim generations. UUIDs are stored in the
// normalized form device.NormalizeUUID produces (lowercase, no dashes,
// SIG-base UUIDs shortened to 16 bit).
const (
	// Modern (V3) generation: one control service, acknowledged writes.
	V3ServiceUUID    = "180c"
	V3WriteCharUUID  = "150a"
	V3NotifyCharUUID = "150b"

	// Legacy (V2) generation. Two service variants exist in the field, one
	// writable and one a read-only clone; characteristics may be split
	// across them. Writes must be unacknowledged: these characteristics
	// reject write-with-response.
	LegacyServiceWritableUUID = "955a180b0fe2f5aaa09484b8d4f3e8ad"
	LegacyServiceReadOnlyUUID = "955a180a0fe2f5aaa09484b8d4f3e8ad"
	LegacyPowerCharUUID       = "955a15040fe2f5aaa09484b8d4f3e8ad"
	LegacyWaveformACharUUID   = "955a15050fe2f5aaa09484b8d4f3e8ad"
	LegacyWaveformBCharUUID   = "955a15060fe2f5aaa09484b8d4f3e8ad"
)

// LegacyServiceUUIDs lists every known legacy service variant. Generation
// selection must scan all of them, collecting characteristics as it goes.
var LegacyServiceUUIDs = []string{
	LegacyServiceWritableUUID,
	LegacyServiceReadOnlyUUID,
}

// LegacyIntensityScale rescales normalized intensity before it hits a legacy
// unit. The 0.5 factor is an empirical safety margin, not a calibrated value;
// it is a variable so operators who have verified their hardware can raise it.
var LegacyIntensityScale = 0.5

// estimNamePatterns matches the advertised names of e-stim boxes across both
// generations. Checked before the generic registry: the generic path cannot
// pick between generations, that needs the live service table.
var estimNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^D-?LAB`),
	regexp.MustCompile(`(?i)ESTIM`),
	regexp.MustCompile(`(?i)^coyote`),
	regexp.MustCompile(`(?i)^47L`),
}

// IsEStim reports whether an advertised device name belongs to an e-stim box.
// Generation choice is deferred to connection time.
func IsEStim(name string) bool {
	for _, re := range estimNamePatterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// EStimNamePrefixes returns discovery-filter name fragments for e-stim boxes,
// for callers building scan allow-lists.
func EStimNamePrefixes() []string {
	return []string{"D-LAB", "DLAB", "ESTIM", "Coyote", "47L"}
}
