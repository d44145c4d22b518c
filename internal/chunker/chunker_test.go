package chunker

import (
	"errors"
	"strings"
	"testing"
)

func TestSplitShortTextReturnsSingleTrimmedChunk(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain", "hello world", "hello world"},
		{"surrounding whitespace", "  hello world \n", "hello world"},
		{"exactly under size", strings.Repeat("a", 999), strings.Repeat("a", 999)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := Split(tt.text, DefaultSize, DefaultOverlap)
			if err != nil {
				t.Fatalf("Split() error = %v", err)
			}
			if len(chunks) != 1 {
				t.Fatalf("got %d chunks, want 1", len(chunks))
			}
			if chunks[0] != tt.want {
				t.Errorf("chunk = %q, want %q", chunks[0], tt.want)
			}
		})
	}
}

func TestSplitEmptyText(t *testing.T) {
	for _, text := range []string{"", "   \n\t  "} {
		chunks, err := Split(text, DefaultSize, DefaultOverlap)
		if err != nil {
			t.Fatalf("Split(%q) error = %v", text, err)
		}
		if len(chunks) != 0 {
			t.Errorf("Split(%q) = %d chunks, want 0", text, len(chunks))
		}
	}
}

func TestSplitInvalidArguments(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
	}{
		{"overlap equals size", 100, 100},
		{"overlap above size", 100, 150},
		{"negative overlap", 100, -1},
		{"zero size", 0, 0},
		{"negative size", -5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Split("some text", tt.size, tt.overlap); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("Split(size=%d, overlap=%d) error = %v, want ErrInvalidArgument", tt.size, tt.overlap, err)
			}
		})
	}
}

func TestSplit2100CharsDefaultsYieldsThreeChunks(t *testing.T) {
	// No sentence terminators, so windows land exactly at
	// [0,1000) [800,1800) [1600,2100).
	text := strings.Repeat("abcdefghij", 210)
	chunks, err := Split(text, DefaultSize, DefaultOverlap)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if chunks[0] != text[0:1000] || chunks[1] != text[800:1800] || chunks[2] != text[1600:2100] {
		t.Error("chunk boundaries do not match the documented window advance")
	}
}

func TestSplitOverlapAndCoverage(t *testing.T) {
	const size, overlap = 100, 20
	text := strings.Repeat("0123456789", 55) // 550 chars, no break characters

	chunks, err := Split(text, size, overlap)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}

	for i, chunk := range chunks {
		if len(chunk) > size {
			t.Errorf("chunk %d has %d chars, exceeds size %d", i, len(chunk), size)
		}
	}
	// Consecutive chunks share exactly overlap characters, and stitching
	// them back together reproduces the input with no gaps.
	rebuilt := chunks[0]
	for i := 1; i < len(chunks); i++ {
		tail := chunks[i-1][len(chunks[i-1])-overlap:]
		head := chunks[i][:overlap]
		if tail != head {
			t.Fatalf("chunks %d/%d do not overlap by %d chars", i-1, i, overlap)
		}
		rebuilt += chunks[i][overlap:]
	}
	if rebuilt != text {
		t.Error("stitched chunks do not reproduce the input text")
	}
}

func TestSplitBreaksAtSentenceBoundary(t *testing.T) {
	const size, overlap = 100, 20
	// Period at index 79: past half the window, so the first chunk must
	// stop there instead of at the raw 100-char boundary.
	text := strings.Repeat("a", 79) + "." + strings.Repeat("b", 120)

	chunks, err := Split(text, size, overlap)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	want := strings.Repeat("a", 79) + "."
	if chunks[0] != want {
		t.Errorf("first chunk = %q (len %d), want break at the period (len %d)", chunks[0], len(chunks[0]), len(want))
	}
	// Next window starts at end-overlap = 60.
	if !strings.HasPrefix(chunks[1], strings.Repeat("a", 19)+".") {
		t.Errorf("second chunk does not start inside the overlap region: %q", chunks[1][:25])
	}
}

func TestSplitIgnoresEarlyBreakPoint(t *testing.T) {
	const size, overlap = 100, 20
	// Period at index 30: before half the window, so the raw boundary wins.
	text := strings.Repeat("a", 30) + "." + strings.Repeat("b", 150)

	chunks, err := Split(text, size, overlap)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks[0]) != size {
		t.Errorf("first chunk len = %d, want full window %d", len(chunks[0]), size)
	}
}

func TestSplitTerminatesWhenBreakLandsInOverlap(t *testing.T) {
	// With a large overlap, a sentence break can shorten the window to
	// before start+overlap; Split must still make forward progress.
	const size, overlap = 100, 60
	text := strings.Repeat(strings.Repeat("a", 54)+".", 20)

	chunks, err := Split(text, size, overlap)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	joined := strings.Join(chunks, "")
	if !strings.Contains(joined, ".") {
		t.Error("chunks lost all content")
	}
}
