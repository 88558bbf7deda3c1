package relay

import "unicode/utf8"

// DefaultMaxChunk is sized safely below the 2000-character Discord message
// limit, leaving headroom for the reply-quote prefix.
const DefaultMaxChunk = 1900

// SplitChunks splits text into fixed-width segments of at most max runes.
// Chunks are non-empty, concatenate back to text exactly, and there are
// ceil(len/max) of them. No boundary awareness: a plain width split.
func SplitChunks(text string, max int) []string {
	if text == "" {
		return nil
	}
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	for start := 0; start < len(runes); start += max {
		end := start + max
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
