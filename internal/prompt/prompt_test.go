package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synthfeed/internal/persona"
	"synthfeed/internal/types"
)

func TestBudget(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		max, keep int
		want      string
	}{
		{"fits", "one two  three", 3, 3, "one two  three"},
		{"over budget keeps tail", "a b c d e", 3, 2, CutoffMarker + " d e"},
		{"keep larger than text", "a b c d", 2, 10, CutoffMarker + " a b c d"},
		{"disabled", "a b c", 0, 0, "a b c"},
		{"empty", "", 5, 5, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Budget(tt.text, tt.max, tt.keep))
		})
	}
}

func TestIsShortForm(t *testing.T) {
	assert.True(t, IsShortForm("lol same", 12))
	assert.False(t, IsShortForm("one two three", 3))
	assert.Equal(t, 3, WordCount("  one\ttwo\nthree "))
}

func TestBuildThread(t *testing.T) {
	roster, err := persona.Parse([]byte("- character: Kai\n  age: 19\n"))
	require.NoError(t, err)

	h := types.Headline{Title: `Studio announces "sequel"`, Body: "Details inside."}
	out, err := BuildThread(h, roster, Options{
		Style:          "Write like teenagers.",
		MinUpvotes:     -10,
		MaxUpvotes:     200,
		ShortFormWords: 12,
		ShortFormRatio: 0.4,
		HasImage:       true,
	})
	require.NoError(t, err)

	for _, want := range []string{
		"Write like teenagers.",
		"About 40% of the comments should be short reactions of fewer than 12 words",
		"between -10 and 200",
		"character: Kai",
		`"Studio announces \"sequel\""`,
		"Details inside.",
		"An image from the story is attached",
		"'replies': (list)",
	} {
		assert.Contains(t, out, want)
	}
	assert.True(t, strings.HasSuffix(out, "Generate the JSON output now."))
}

func TestBuildThread_NoPersonasNoExtras(t *testing.T) {
	out, err := BuildThread(types.Headline{Title: "t"}, nil, Options{MaxUpvotes: 5})
	require.NoError(t, err)

	assert.Contains(t, out, "No personas were provided")
	assert.NotContains(t, out, "short reactions")
	assert.NotContains(t, out, "image")
	assert.NotContains(t, out, "story text")
}
