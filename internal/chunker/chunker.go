// Package chunker splits raw document text into bounded, overlapping
// segments suitable for embedding. Splitting prefers sentence boundaries
// near the end of each window so that chunks are less likely to cut a
// sentence in half, at the cost of slightly uneven overlap.
package chunker

import (
	"fmt"
	"strings"
)

const (
	// DefaultMaxSize is the default maximum chunk length in characters.
	DefaultMaxSize = 1000

	// DefaultOverlap is the default number of characters shared between
	// consecutive chunks.
	DefaultOverlap = 200

	// sentenceWindow is how far back from the window end a period is
	// searched for when looking for a sentence boundary.
	sentenceWindow = 100

	// sentenceFloor is the furthest a chunk may be shortened by the
	// sentence-boundary trim. A period earlier than end-sentenceFloor is
	// ignored so chunks never collapse to fragments.
	sentenceFloor = 200
)

// Split divides text into chunks of at most maxSize characters where
// consecutive chunks share roughly overlap characters. Each chunk is
// trimmed of surrounding whitespace; chunks that are empty after trimming
// are dropped. Empty or whitespace-only input yields a nil slice.
//
// maxSize must be strictly greater than overlap, and overlap must be
// non-negative; otherwise the window could never advance, so the
// combination is rejected up front.
func Split(text string, maxSize, overlap int) ([]string, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("chunker: maxSize must be positive, got %d", maxSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunker: overlap must be non-negative, got %d", overlap)
	}
	if overlap >= maxSize {
		return nil, fmt.Errorf("chunker: overlap %d must be smaller than maxSize %d", overlap, maxSize)
	}

	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + maxSize
		if end > len(text) {
			end = len(text)
		}
		chunk := text[start:end]

		// Prefer ending on a sentence boundary: if a period falls within
		// the last sentenceWindow characters and trimming to it would not
		// shorten the chunk by more than sentenceFloor, cut there.
		if end < len(text) {
			if cut, ok := sentenceCut(chunk); ok {
				chunk = chunk[:cut]
				end = start + cut
			}
		}

		if trimmed := strings.TrimSpace(chunk); trimmed != "" {
			chunks = append(chunks, trimmed)
		}

		if end == len(text) {
			break
		}
		next := end - overlap
		if next <= start {
			// A sentence trim can shrink the step below the overlap;
			// never move backwards.
			next = start + (maxSize - overlap)
		}
		start = next
	}

	return chunks, nil
}

// sentenceCut returns the position just after the last period in chunk and
// true when that period lies within the trailing sentenceWindow characters
// and no earlier than len(chunk)-sentenceFloor.
func sentenceCut(chunk string) (int, bool) {
	tail := chunk
	if len(chunk) > sentenceWindow {
		tail = chunk[len(chunk)-sentenceWindow:]
	}
	if !strings.Contains(tail, ".") {
		return 0, false
	}
	last := strings.LastIndex(chunk, ".")
	if last <= len(chunk)-sentenceFloor {
		return 0, false
	}
	return last + 1, true
}
