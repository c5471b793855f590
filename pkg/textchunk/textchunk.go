// Package textchunk splits reply text into pieces that fit a speech provider's
// per-request character limit.
package textchunk

import (
	"unicode"
	"unicode/utf8"
)

// DefaultMaxChars is the per-request character limit of the speech providers
// the agent ships with.
const DefaultMaxChars = 3000

// Split cuts text into contiguous chunks of at most maxLen characters (runes).
//
// Joining the chunks with no separator yields text again, byte for byte, even
// when text is not valid UTF-8; each invalid byte counts as one character. A
// cut is placed right after the last whitespace inside the window so words stay
// whole; a window without such whitespace is cut hard at maxLen. Empty input
// returns nil.
func Split(text string, maxLen int) []string {
	if text == "" {
		return nil
	}
	if maxLen < 1 {
		maxLen = 1
	}

	// offsets[i] is the byte offset of the i-th rune; the final entry is len(text).
	offsets := make([]int, 0, len(text)+1)
	for i := 0; i < len(text); {
		offsets = append(offsets, i)
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	n := len(offsets)
	offsets = append(offsets, len(text))
	if n <= maxLen {
		return []string{text}
	}

	isSpace := func(i int) bool {
		r, _ := utf8.DecodeRuneInString(text[offsets[i]:])
		return unicode.IsSpace(r)
	}

	chunks := make([]string, 0, n/maxLen+1)
	for start := 0; start < n; {
		end := start + maxLen
		if end >= n {
			chunks = append(chunks, text[offsets[start]:])
			break
		}

		cut := end
		if !isSpace(end) {
			// Whitespace at the window start would yield a chunk of pure
			// whitespace, so only positions after it count as boundaries.
			for i := end - 1; i > start; i-- {
				if isSpace(i) {
					cut = i + 1
					break
				}
			}
		}

		chunks = append(chunks, text[offsets[start]:offsets[cut]])
		start = cut
	}

	return chunks
}
