package session

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/mcuadros/go-defaults"
)

// Matcher scores a transcript against the accepted phrasings of a prompt.
// Interface-first so tests and alternative recognizers can swap in scripted
// scoring.
type Matcher interface {
	Match(transcript string, accepted []string) (ok bool, score float64)
}

// LevenshteinMatcher is the default matcher: normalized edit-distance
// similarity after case and punctuation folding. Speech recognizers drop or
// invent punctuation freely, so it carries no signal here.
type LevenshteinMatcher struct {
	Threshold float64 `default:"0.8"`
}

func NewMatcher() *LevenshteinMatcher {
	m := &LevenshteinMatcher{}
	defaults.SetDefaults(m)
	return m
}

// Match returns the best similarity across the accepted variants and whether
// it clears the threshold.
func (m *LevenshteinMatcher) Match(transcript string, accepted []string) (bool, float64) {
	heard := foldSpeech(transcript)
	best := 0.0
	for _, variant := range accepted {
		want := foldSpeech(variant)
		if want == "" {
			continue
		}
		if sim := similarity(heard, want); sim > best {
			best = sim
		}
	}
	return best >= m.Threshold, best
}

// foldSpeech lowercases, drops punctuation, and collapses whitespace runs,
// so "Good girl!" and "good girl" compare equal.
func foldSpeech(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// similarity maps edit distance onto [0,1]: identical strings score 1,
// nothing in common scores 0.
func similarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}
