package prompt

import "strings"

// CutoffMarker prefixes text that was trimmed to fit the context window.
const CutoffMarker = "[History cut off due to context limit being hit]"

// Budget keeps text within maxWords whitespace-separated words. Over-budget
// text is reduced to its last keepWords words behind CutoffMarker. Text that
// fits is returned unchanged, whitespace included.
func Budget(text string, maxWords, keepWords int) string {
	if maxWords <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) <= maxWords {
		return text
	}
	if keepWords > len(words) {
		keepWords = len(words)
	}
	if keepWords < 0 {
		keepWords = 0
	}
	return CutoffMarker + " " + strings.Join(words[len(words)-keepWords:], " ")
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// IsShortForm reports whether text is under threshold words.
func IsShortForm(text string, threshold int) bool {
	return WordCount(text) < threshold
}
