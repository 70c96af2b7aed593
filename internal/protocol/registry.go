package protocol

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/EcstasyEngineer/feedback-demo/internal/device"
)

// ErrUnknownDevice is the sentinel for failed protocol detection. Compare
// with errors.Is; the concrete *UnknownDeviceError carries the detail.
var ErrUnknownDevice = errors.New("unknown device")

// UnknownDeviceError reports a device no definition matched. Callers decide
// whether to fall back to a default protocol; detection itself never does.
type UnknownDeviceError struct {
	Name     string
	Services []string
}

func (e *UnknownDeviceError) Error() string {
	return fmt.Sprintf("no protocol matches device %q (services: [%s])",
		e.Name, strings.Join(e.Services, ", "))
}

func (e *UnknownDeviceError) Is(target error) bool {
	return target == ErrUnknownDevice
}

// Definition pairs a device matcher with a protocol constructor.
type Definition struct {
	// ID is the registry key of the protocol this definition constructs.
	ID string

	// NamePatterns match advertised device names, case-insensitive.
	NamePatterns []*regexp.Regexp

	// ServiceUUIDs are the family's known GATT services, normalized.
	ServiceUUIDs []string

	// NamePrefixes are literal name fragments for scan allow-lists.
	NamePrefixes []string

	// New constructs a fresh protocol instance. Stateful encoders must not
	// leak channel state across connections, so every detection gets its own.
	New func() Protocol
}

// MatchesName reports whether any name pattern matches the advertised name.
func (d *Definition) MatchesName(name string) bool {
	for _, re := range d.NamePatterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// MatchesServices reports whether the definition's service set intersects the
// given normalized UUIDs.
func (d *Definition) MatchesServices(normalizedUUIDs []string) bool {
	for _, u := range normalizedUUIDs {
		for _, s := range d.ServiceUUIDs {
			if u == s {
				return true
			}
		}
	}
	return false
}

func compile(patterns ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		res = append(res, regexp.MustCompile(p))
	}
	return res
}

// definitions is priority-ordered by estimated real-world device population,
// so the common families resolve fastest.
var definitions = []*Definition{
	{
		ID:           "lovense",
		NamePatterns: compile(`(?i)^LVS-`, `(?i)^LOVE-`),
		NamePrefixes: []string{"LVS", "LOVE-"},
		ServiceUUIDs: []string{
			"5030000100234bd4bbd5a6920e4c5653",
			"5330000100234bd4bbd5a6920e4c5653",
			"5730000100234bd4bbd5a6920e4c5653",
			"5a30000100234bd4bbd5a6920e4c5653",
		},
		New: func() Protocol { return NewLovense() },
	},
	{
		ID: "wevibe",
		NamePatterns: compile(
			`(?i)^4 ?plus$`, `(?i)^ditto`, `(?i)^jive`, `(?i)^melt`,
			`(?i)^moxie`, `(?i)^nova`, `(?i)^pivot`, `(?i)^rave`,
			`(?i)^sync`, `(?i)^verge`, `(?i)^wish`,
		),
		NamePrefixes: []string{"4 Plus", "Ditto", "Jive", "Melt", "Moxie", "Nova", "Pivot", "Rave", "Sync", "Verge", "Wish"},
		ServiceUUIDs: []string{"f000bb0304514000b000000000000000"},
		New:          func() Protocol { return NewWeVibe() },
	},
	{
		ID:           "satisfyer",
		NamePatterns: compile(`(?i)^SF[- ]`, `(?i)satisfyer`),
		NamePrefixes: []string{"SF", "Satisfyer"},
		New:          func() Protocol { return NewSatisfyer() },
	},
	{
		ID:           "hismith",
		NamePatterns: compile(`(?i)^HISMITH`),
		NamePrefixes: []string{"HISMITH"},
		New:          func() Protocol { return NewHismith() },
	},
	{
		ID:           "svakom",
		NamePatterns: compile(`(?i)^SVAKOM`),
		NamePrefixes: []string{"SVAKOM"},
		New:          func() Protocol { return NewSvakom() },
	},
	{
		ID:           "mysteryvibe",
		NamePatterns: compile(`(?i)crescendo`, `(?i)^MV\b`),
		NamePrefixes: []string{"Crescendo", "MV"},
		ServiceUUIDs: []string{"f0006900b5a3f393e0a9e50e24dcca9e"},
		New:          func() Protocol { return NewMysteryVibe() },
	},
}

// estimDefinitions describe the two e-stim generations. They are not part of
// the Detect path: IsEStim plus live service inspection chooses between them
// at connect time.
var estimDefinitions = []*Definition{
	{
		ID:           "coyote-v3",
		NamePatterns: estimNamePatterns,
		NamePrefixes: EStimNamePrefixes(),
		ServiceUUIDs: []string{V3ServiceUUID},
		New:          func() Protocol { return NewCoyoteV3() },
	},
	{
		ID:           "coyote-v2",
		NamePatterns: estimNamePatterns,
		NamePrefixes: EStimNamePrefixes(),
		ServiceUUIDs: LegacyServiceUUIDs,
		New:          func() Protocol { return NewCoyoteV2() },
	},
}

// Detect selects the protocol for a discovered device: first definition whose
// name patterns match the advertised name or whose service set intersects the
// device's service UUIDs wins, with the name check taking precedence within
// each candidate. E-stim boxes must not reach this path; callers check
// IsEStim first because generation choice needs the live service table.
func Detect(name string, serviceUUIDs []string) (Protocol, error) {
	normalized := device.NormalizeUUIDs(serviceUUIDs)
	for _, def := range definitions {
		if def.MatchesName(name) || def.MatchesServices(normalized) {
			return def.New(), nil
		}
	}
	return nil, &UnknownDeviceError{Name: name, Services: serviceUUIDs}
}

// Definitions returns the priority-ordered generic definitions.
func Definitions() []*Definition {
	return definitions
}

// AllDefinitions returns every definition, generic families first, then the
// e-stim generations. For listings and discovery-filter construction.
func AllDefinitions() []*Definition {
	all := make([]*Definition, 0, len(definitions)+len(estimDefinitions))
	all = append(all, definitions...)
	all = append(all, estimDefinitions...)
	return all
}

// ByID returns the definition with the given registry key, searching generic
// and e-stim definitions alike.
func ByID(id string) (*Definition, bool) {
	for _, def := range AllDefinitions() {
		if def.ID == id {
			return def, true
		}
	}
	return nil, false
}
