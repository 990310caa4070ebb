package notify

import "strings"

// ChunkSize is the largest payload part sent in one platform message.
const ChunkSize = 3500

// Chunk splits text into consecutive parts of at most size runes. A part ends
// after its last newline when it has one, so report lines and the markup on
// them stay whole. Empty text yields no parts.
func Chunk(text string, size int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 {
		return []string{text}
	}
	var parts []string
	for text != "" {
		cut := runeOffset(text, size)
		if cut < len(text) {
			if nl := strings.LastIndexByte(text[:cut], '\n'); nl >= 0 {
				cut = nl + 1
			}
		}
		parts = append(parts, text[:cut])
		text = text[cut:]
	}
	return parts
}

// runeOffset returns the byte offset just past the first n runes of s.
func runeOffset(s string, n int) int {
	runes := 0
	for i := range s {
		if runes == n {
			return i
		}
		runes++
	}
	return len(s)
}
