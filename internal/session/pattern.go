package session

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// RandomPattern is the sentinel pattern name: instead of cycling a sample
// table, each tick draws uniformly from the effective range.
const RandomPattern = "random"

// patternTable holds the built-in micro-patterns in listing order. Samples
// are normalized [0,1] and cycle via modulo, so a pattern can be any length
// down to a single sample.
var patternTable = func() *orderedmap.OrderedMap[string, []float64] {
	m := orderedmap.New[string, []float64]()
	m.Set("constant", []float64{1})
	m.Set("wave", []float64{0.1, 0.3, 0.55, 0.8, 1, 0.8, 0.55, 0.3})
	m.Set("climb", []float64{0.2, 0.4, 0.6, 0.8, 1})
	m.Set("fall", []float64{1, 0.8, 0.6, 0.4, 0.2})
	m.Set("pulse", []float64{1, 0.15, 1, 0.15})
	m.Set("steps", []float64{0.25, 0.25, 0.5, 0.5, 0.75, 0.75, 1, 1})
	m.Set("peaks", []float64{0.3, 0.3, 1, 0.3, 0.3, 1})
	return m
}()

// PatternNames returns the built-in pattern names in listing order, with the
// random sentinel last.
func PatternNames() []string {
	names := make([]string, 0, patternTable.Len()+1)
	for pair := patternTable.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return append(names, RandomPattern)
}

// LookupPattern returns a built-in pattern's sample table. The random
// sentinel has no table and reports false here; use KnownPattern when
// validating configured names.
func LookupPattern(name string) ([]float64, bool) {
	return patternTable.Get(name)
}

// KnownPattern reports whether name is a built-in pattern or the random
// sentinel.
func KnownPattern(name string) bool {
	if name == RandomPattern {
		return true
	}
	_, ok := patternTable.Get(name)
	return ok
}
