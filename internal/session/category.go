package session

import (
	"math/rand"
)

// categoryState tracks one signal's micro-pattern position: which pattern is
// live, where in its sample table the cursor sits, and how many advances are
// left before the next switch.
type categoryState struct {
	patterns  []string
	current   string
	samples   []float64 // nil while current is the random sentinel
	index     int
	remaining int
}

func newCategoryState(patterns []string, sw PatternSwitch, rng *rand.Rand) *categoryState {
	cs := &categoryState{patterns: patterns}
	cs.current = patterns[rng.Intn(len(patterns))]
	cs.samples, _ = LookupPattern(cs.current)
	cs.remaining = sw.draw(rng)
	return cs
}

func (cs *categoryState) isRandom() bool {
	return cs.current == RandomPattern
}

// value returns the current normalized sample. Random-sentinel categories
// have no table; the caller draws instead.
func (cs *categoryState) value() float64 {
	return cs.samples[cs.index%len(cs.samples)]
}

// advance moves the cursor and, once the instance budget runs out, switches
// to a uniformly random different pattern when there is one to switch to,
// resetting the cursor and redrawing the budget either way.
func (cs *categoryState) advance(sw PatternSwitch, rng *rand.Rand) {
	cs.index++
	cs.remaining--
	if cs.remaining > 0 {
		return
	}

	if len(cs.patterns) > 1 {
		next := cs.current
		for next == cs.current {
			next = cs.patterns[rng.Intn(len(cs.patterns))]
		}
		cs.current = next
		cs.samples, _ = LookupPattern(next)
	}
	cs.index = 0
	cs.remaining = sw.draw(rng)
}
