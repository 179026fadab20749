package articulation

import "strings"

// FindSafeCut returns the index of the last '}' that closes a top-level
// element of a JSON array, or -1 if there is none.
//
// Depth counts both '[' and '{' so a '}' is only accepted when it brings the
// depth back to 1, i.e. back inside the outer array. Braces inside string
// literals are ignored. A truncated reply nested inside a still-open parent
// is therefore never chosen as the cut point.
//
// Note: It is safe to iterate bytes for ASCII delimiters ({, }, [, ], ", \) because
// UTF-8 encoding guarantees that ASCII bytes never appear as part of a multi-byte sequence.
func FindSafeCut(s string) int {
	cut := -1
	var depth int
	var inString bool
	var escape bool

	for i := 0; i < len(s); i++ {
		b := s[i]

		if escape {
			escape = false
			continue
		}

		if inString {
			if b == '\\' {
				escape = true
			} else if b == '"' {
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			if depth > 0 {
				depth--
			}
			if b == '}' && depth == 1 {
				cut = i
			}
		}
	}

	return cut
}

// FindLastBrace returns the index of the rightmost '}' in s, or -1.
//
// Deprecated: FindLastBrace ignores nesting and string literals, so it can
// cut inside an open replies array. Use FindSafeCut.
func FindLastBrace(s string) int {
	return strings.LastIndexByte(s, '}')
}
