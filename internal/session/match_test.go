package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFoldSpeech(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Good girl!", "good girl"},
		{"  lots   of \t space ", "lots of space"},
		{"Sit. Stay. Speak!", "sit stay speak"},
		{"123 go", "123 go"},
		{"né?", "né"},
		{"", ""},
		{"?!...", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, foldSpeech(tc.in), "foldSpeech(%q)", tc.in)
	}
}

func TestMatcher_Threshold(t *testing.T) {
	m := NewMatcher()
	require.InDelta(t, 0.8, m.Threshold, 1e-9, "default threshold comes from the struct tag")

	cases := []struct {
		name       string
		transcript string
		accepted   []string
		want       bool
	}{
		{"exact", "good girl", []string{"good girl"}, true},
		{"case and punctuation folded", "Good girl!", []string{"good girl"}, true},
		{"one trailing edit passes", "good girll", []string{"good girl"}, true},
		{"unrelated fails", "bad dog", []string{"good girl"}, false},
		{"empty transcript fails", "", []string{"good girl"}, false},
		{"best variant wins", "speak now", []string{"completely different", "speak now"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, score := m.Match(tc.transcript, tc.accepted)
			assert.Equal(t, tc.want, ok)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		})
	}
}

func TestMatcher_ScoreIsBestAcrossVariants(t *testing.T) {
	m := NewMatcher()

	ok, score := m.Match("good girl", []string{"bad dog", "good girl"})
	assert.True(t, ok)
	assert.InDelta(t, 1.0, score, 1e-9)

	// "good girll" vs "good girl": one edit over ten runes.
	ok, score = m.Match("good girll", []string{"good girl"})
	assert.True(t, ok)
	assert.InDelta(t, 0.9, score, 1e-9)
}

func TestMatcher_CustomThreshold(t *testing.T) {
	strict := &LevenshteinMatcher{Threshold: 0.95}
	ok, score := strict.Match("good girll", []string{"good girl"})
	assert.False(t, ok, "a 0.9 score MUST NOT clear a 0.95 threshold")
	assert.InDelta(t, 0.9, score, 1e-9)
}

func TestMatcher_SkipsEmptyVariants(t *testing.T) {
	m := NewMatcher()
	ok, score := m.Match("anything", []string{"", "   ", "?!"})
	assert.False(t, ok, "variants that fold to nothing never match")
	assert.Equal(t, 0.0, score)
}
