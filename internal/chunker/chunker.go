package chunker

import (
	"errors"
	"strings"
)

const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// ErrInvalidArgument is returned when size/overlap cannot produce a
// terminating sequence of chunks.
var ErrInvalidArgument = errors.New("invalid chunk size or overlap")

// Split cuts text into overlapping windows of at most size runes.
// When a window does not reach the end of the text, it is shortened to the
// last sentence terminator or newline, provided that break point lies past
// half the window. Consecutive windows share overlap runes of context.
// Every emitted chunk is whitespace-trimmed; empty pieces are skipped.
func Split(text string, size, overlap int) ([]string, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, ErrInvalidArgument
	}

	runes := []rune(text)
	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else if bp := lastBreak(runes[start:end]); bp > size/2 {
			end = start + bp + 1
		}

		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			chunks = append(chunks, piece)
		}
		if end == len(runes) {
			break
		}

		next := end - overlap
		if next <= start {
			// a sentence break landed inside the overlap region; restart
			// at the window end rather than looping
			next = end
		}
		start = next
	}
	return chunks, nil
}

// lastBreak returns the index of the last sentence terminator or newline
// in window, or -1.
func lastBreak(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		switch window[i] {
		case '.', '\n':
			return i
		}
	}
	return -1
}
