package util

import "strings"

// ChunkText splits text into overlapping windows of at most chunkSize runes,
// stepping chunkSize-overlap at a time. Window ends are pulled back to the
// nearest paragraph, sentence or word boundary when one falls in the last
// quarter of the window, so chunks tend to break on semantic edges instead
// of mid-word. Returned chunks are trimmed and non-empty.
func ChunkText(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}
	runes := []rune(text)
	out := make([]string, 0)

	i := 0
	for i < len(runes) {
		end := i + chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = snapToBoundary(runes, i, end)
		}
		part := strings.TrimSpace(string(runes[i:end]))
		if part != "" {
			out = append(out, part)
		}
		if end == len(runes) {
			break
		}
		next := end - overlap
		if next <= i {
			next = i + 1
		}
		i = next
	}
	return out
}

// snapToBoundary moves end back to the best break point within the last
// quarter of the window. Paragraph breaks win over sentence ends, sentence
// ends over plain whitespace; a window with no break at all is cut as-is.
func snapToBoundary(runes []rune, start, end int) int {
	floor := end - (end-start)/4
	bestWord := -1
	bestSentence := -1
	for j := end - 1; j >= floor; j-- {
		switch runes[j] {
		case '\n':
			if j > 0 && runes[j-1] == '\n' {
				return j
			}
			if bestSentence < 0 {
				bestSentence = j
			}
		case '.', '!', '?':
			if bestSentence < 0 && j+1 < len(runes) && isSpace(runes[j+1]) {
				bestSentence = j + 1
			}
		case ' ', '\t':
			if bestWord < 0 {
				bestWord = j
			}
		}
	}
	if bestSentence >= 0 {
		return bestSentence
	}
	if bestWord >= 0 {
		return bestWord
	}
	return end
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
