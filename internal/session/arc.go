package session

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ArcFunc maps session progress in [0,1] to a normalized {min,max} window
// the tick's effective range is cut from. Every arc keeps
// 0 <= min <= max <= 1 across the whole progress range.
type ArcFunc func(progress float64) (min, max float64)

// arcTable holds the built-in envelopes in listing order.
var arcTable = func() *orderedmap.OrderedMap[string, ArcFunc] {
	m := orderedmap.New[string, ArcFunc]()
	m.Set("constant", func(float64) (float64, float64) { return 0, 1 })
	m.Set("opening", func(p float64) (float64, float64) { return 0, p })
	m.Set("closing", func(p float64) (float64, float64) { return 0, 1 - p })
	m.Set("rising", func(p float64) (float64, float64) { return p, 1 })
	m.Set("narrowing", func(p float64) (float64, float64) { return p / 2, 1 - p/2 })
	m.Set("sliding", func(p float64) (float64, float64) { return 0.75 * p, 0.75*p + 0.25 })
	return m
}()

// ArcNames returns the built-in arc names in listing order.
func ArcNames() []string {
	names := make([]string, 0, arcTable.Len())
	for pair := arcTable.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// LookupArc returns a built-in arc by name.
func LookupArc(name string) (ArcFunc, bool) {
	return arcTable.Get(name)
}
