package chunker

import (
	"strings"
	"testing"
)

func Test_Split_Empty(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "   ", "\n\t\n"} {
		got, err := Split(input, 1000, 200)
		if err != nil {
			t.Fatalf("Split(%q): %v", input, err)
		}
		if len(got) != 0 {
			t.Errorf("Split(%q) = %d chunks, want 0", input, len(got))
		}
	}
}

func Test_Split_InvalidArgs(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		maxSize int
		overlap int
	}{
		{"zero maxSize", 0, 0},
		{"negative overlap", 100, -1},
		{"overlap equals maxSize", 100, 100},
		{"overlap exceeds maxSize", 100, 150},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Split("some text", tc.maxSize, tc.overlap); err == nil {
				t.Errorf("Split(maxSize=%d, overlap=%d): expected error", tc.maxSize, tc.overlap)
			}
		})
	}
}

func Test_Split_NoChunkExceedsMaxSize(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("abcdefghij", 500) // 5000 chars, no periods
	chunks, err := Split(text, 1000, 200)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	for i, c := range chunks {
		if len(c) > 1000 {
			t.Errorf("chunk %d has %d chars, exceeds maxSize 1000", i, len(c))
		}
	}
}

func Test_Split_CoversInput(t *testing.T) {
	t.Parallel()

	// Without periods the window math is exact: every character of the
	// input must appear in order across the chunks once overlaps are
	// stripped.
	text := strings.Repeat("0123456789", 300) // 3000 chars
	maxSize, overlap := 1000, 200
	chunks, err := Split(text, maxSize, overlap)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}

	var rebuilt strings.Builder
	for i, c := range chunks {
		if i == 0 {
			rebuilt.WriteString(c)
			continue
		}
		rebuilt.WriteString(c[overlap:])
	}
	if rebuilt.String() != text {
		t.Errorf("reconstruction mismatch: got %d chars, want %d", rebuilt.Len(), len(text))
	}
}

func Test_Split_OverlapBetweenConsecutiveChunks(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("x", 2500)
	chunks, err := Split(text, 1000, 200)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("2500 chars at 1000/200: want 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks[:2] {
		if len(c) != 1000 {
			t.Errorf("chunk %d length = %d, want 1000", i, len(c))
		}
	}
	// Second chunk starts at 800, so its first 200 chars are the first
	// chunk's last 200.
	if chunks[0][800:] != chunks[1][:200] {
		t.Error("chunks 0 and 1 do not overlap by 200 chars")
	}
}

func Test_Split_SentenceBoundaryTrim(t *testing.T) {
	t.Parallel()

	// A period 50 chars before the window end falls inside the trailing
	// 100-char search window and within the 200-char trim floor, so the
	// first chunk must end right after it.
	text := strings.Repeat("a", 949) + "." + strings.Repeat("b", 550)
	chunks, err := Split(text, 1000, 200)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("no chunks returned")
	}
	if !strings.HasSuffix(chunks[0], ".") {
		t.Errorf("first chunk should end at the sentence boundary, got tail %q", chunks[0][len(chunks[0])-10:])
	}
	if len(chunks[0]) != 950 {
		t.Errorf("first chunk length = %d, want 950", len(chunks[0]))
	}
}

func Test_Split_NoTrimWhenPeriodTooEarly(t *testing.T) {
	t.Parallel()

	// The only period sits 300 chars before the window end: outside the
	// 100-char search window, so the chunk keeps its full size.
	text := strings.Repeat("a", 699) + "." + strings.Repeat("b", 800)
	chunks, err := Split(text, 1000, 200)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks[0]) != 1000 {
		t.Errorf("first chunk length = %d, want 1000 (no trim)", len(chunks[0]))
	}
}

func Test_Split_WhitespaceOnlyChunkDropped(t *testing.T) {
	t.Parallel()

	// Trailing run of spaces long enough to form a final all-whitespace
	// window; it must be dropped rather than returned empty.
	text := strings.Repeat("y", 1000) + strings.Repeat(" ", 900)
	chunks, err := Split(text, 1000, 200)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	for i, c := range chunks {
		if strings.TrimSpace(c) == "" {
			t.Errorf("chunk %d is whitespace-only", i)
		}
	}
}
