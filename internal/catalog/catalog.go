// Package catalog maintains the device discovery allow-list: which advertised
// names and service UUIDs are worth surfacing to the user. The builtin rows
// derive from the protocol registry; operators can widen the list with a YAML
// overlay for devices whose advertising differs from the stock patterns.
package catalog

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/EcstasyEngineer/feedback-demo/internal/device"
	"github.com/EcstasyEngineer/feedback-demo/internal/protocol"
)

// Entry is one allow-list row: a device family and the advertising traits
// that identify it during a scan.
type Entry struct {
	Name         string   `yaml:"name"`
	Protocol     string   `yaml:"protocol"`
	NamePrefixes []string `yaml:"name_prefixes,omitempty"`
	ServiceUUIDs []string `yaml:"service_uuids,omitempty"`
}

// overlayFile is the on-disk overlay document shape.
type overlayFile struct {
	Devices []Entry `yaml:"devices"`
}

// Catalog is an ordered set of entries, builtin rows first.
type Catalog struct {
	entries []Entry
	logger  *logrus.Logger
}

// Builtin returns the catalog seeded from the protocol registry, in registry
// priority order, with the e-stim addendum last.
func Builtin(logger *logrus.Logger) *Catalog {
	if logger == nil {
		logger = logrus.New()
	}

	c := &Catalog{logger: logger}
	for _, def := range protocol.AllDefinitions() {
		c.entries = append(c.entries, Entry{
			Name:         def.ID,
			Protocol:     def.ID,
			NamePrefixes: append([]string(nil), def.NamePrefixes...),
			ServiceUUIDs: device.NormalizeUUIDs(def.ServiceUUIDs),
		})
	}
	return c
}

// MergeFile loads a YAML overlay and appends its entries after the builtins.
// Every overlay entry must name a known protocol; the check runs up front so a
// typo fails the whole load instead of silently dropping one row.
func (c *Catalog) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read device catalog %s: %w", path, err)
	}
	return c.Merge(data)
}

// Merge appends overlay entries parsed from YAML.
func (c *Catalog) Merge(data []byte) error {
	var overlay overlayFile
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("failed to parse device catalog: %w", err)
	}

	for i, e := range overlay.Devices {
		if e.Protocol == "" {
			return fmt.Errorf("device catalog entry %d (%s): missing protocol", i, e.Name)
		}
		if _, ok := protocol.ByID(e.Protocol); !ok {
			return fmt.Errorf("device catalog entry %d (%s): unknown protocol %q", i, e.Name, e.Protocol)
		}
		if e.Name == "" {
			e.Name = e.Protocol
		}
		e.ServiceUUIDs = device.NormalizeUUIDs(e.ServiceUUIDs)
		c.entries = append(c.entries, e)

		c.logger.WithFields(logrus.Fields{
			"name":     e.Name,
			"protocol": e.Protocol,
			"prefixes": len(e.NamePrefixes),
			"services": len(e.ServiceUUIDs),
		}).Debug("Merged device catalog entry")
	}
	return nil
}

// Entries returns the catalog rows, builtins first.
func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Filter flattens the catalog into the combined discovery allow-list the
// scanner applies to advertisements.
func (c *Catalog) Filter() Filter {
	var f Filter
	seenPrefix := make(map[string]bool)
	seenUUID := make(map[string]bool)

	for _, e := range c.entries {
		for _, p := range e.NamePrefixes {
			key := strings.ToLower(p)
			if key == "" || seenPrefix[key] {
				continue
			}
			seenPrefix[key] = true
			f.NamePrefixes = append(f.NamePrefixes, p)
		}
		for _, u := range e.ServiceUUIDs {
			if u == "" || seenUUID[u] {
				continue
			}
			seenUUID[u] = true
			f.ServiceUUIDs = append(f.ServiceUUIDs, u)
		}
	}

	sort.Strings(f.ServiceUUIDs)
	return f
}

// Filter is a flattened discovery allow-list: a device passes when its
// advertised name carries any listed prefix or its advertised services
// intersect the listed UUIDs.
type Filter struct {
	NamePrefixes []string
	ServiceUUIDs []string // normalized
}

// Empty reports whether the filter admits everything.
func (f Filter) Empty() bool {
	return len(f.NamePrefixes) == 0 && len(f.ServiceUUIDs) == 0
}

// Matches applies the allow-list to one advertisement. An empty filter
// matches everything.
func (f Filter) Matches(name string, advertisedServices []string) bool {
	if f.Empty() {
		return true
	}

	lower := strings.ToLower(name)
	for _, p := range f.NamePrefixes {
		if p != "" && strings.HasPrefix(lower, strings.ToLower(p)) {
			return true
		}
	}

	if len(f.ServiceUUIDs) > 0 && len(advertisedServices) > 0 {
		for _, adv := range device.NormalizeUUIDs(advertisedServices) {
			for _, want := range f.ServiceUUIDs {
				if adv == want {
					return true
				}
			}
		}
	}
	return false
}
