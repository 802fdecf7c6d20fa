package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Angel Of Victory", "angel of victory"},
		{"strips punctuation", "St. George & the Dragon!", "st george the dragon"},
		{"collapses whitespace", "  A   Large    Mural ", "a large mural"},
		{"strips diacritics", "José González", "jose gonzalez"},
		{"keeps digits", "Mural No. 7", "mural no 7"},
		{"empty", "", ""},
		{"only punctuation", "?!...", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestStringSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, StringSimilarity("Angel of Victory", "angel OF victory"))
	assert.Equal(t, 1.0, StringSimilarity("José", "Jose"))
	assert.Zero(t, StringSimilarity("", "anything"))
	assert.Zero(t, StringSimilarity("anything", "   "))

	// Near-identical strings score high, unrelated strings low.
	near := StringSimilarity("Girl in a Wetsuit", "Girl in Wetsuit")
	assert.Greater(t, near, 0.85)
	far := StringSimilarity("Girl in a Wetsuit", "Digital Orca")
	assert.Less(t, far, 0.4)
	assert.Greater(t, near, far)
}

func TestNameSimilarity(t *testing.T) {
	// Max pairwise across both sides.
	got := NameSimilarity(
		[]string{"J. Doe", "Somebody Else"},
		[]string{"Jane Doe", "Another Artist"},
	)
	assert.Equal(t, got, StringSimilarity("J. Doe", "Jane Doe"))

	assert.Zero(t, NameSimilarity(nil, []string{"Jane Doe"}))
	assert.Zero(t, NameSimilarity([]string{"Jane Doe"}, nil))
	assert.Equal(t, 1.0, NameSimilarity([]string{"Jane Doe"}, []string{"jane doe"}))
}
