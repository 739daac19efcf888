package chunking

import (
	"strings"
	"testing"
)

func TestSplitEmptyText(t *testing.T) {
	if chunks := NewSplitter(10, 2).Split(""); chunks != nil {
		t.Fatalf("expected nil for empty text, got %v", chunks)
	}
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	chunks := NewSplitter(100, 10).Split("short text")
	if len(chunks) != 1 || chunks[0] != "short text" {
		t.Fatalf("unexpected chunks: %v", chunks)
	}
}

func TestSplitOverlapsNeighbors(t *testing.T) {
	text := strings.Repeat("abcdefghij", 3)
	chunks := NewSplitter(10, 4).Split(text)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %v", chunks)
	}
	// Step is 6, so each chunk restarts 4 runes before the previous end.
	if !strings.HasPrefix(chunks[1], chunks[0][6:]) {
		t.Fatalf("overlap missing between %q and %q", chunks[0], chunks[1])
	}
}

func TestSplitHandlesMultibyteRunes(t *testing.T) {
	text := strings.Repeat("яблоко", 10)
	chunks := NewSplitter(7, 0).Split(text)

	for _, chunk := range chunks {
		if !strings.ContainsRune("яблоко", []rune(chunk)[0]) {
			t.Fatalf("chunk split mid-rune: %q", chunk)
		}
	}
}

func TestSplitCoversAllInput(t *testing.T) {
	text := strings.Repeat("x", 95)
	chunks := NewSplitter(30, 5).Split(text)

	total := 0
	for _, chunk := range chunks {
		total += len(chunk)
	}
	if total < len(text) {
		t.Fatalf("chunks cover %d of %d input runes", total, len(text))
	}
}

func TestNewSplitterNormalizesBadParameters(t *testing.T) {
	s := NewSplitter(0, -1)
	if s.ChunkSize != 900 || s.Overlap != 0 {
		t.Fatalf("unexpected defaults: %+v", s)
	}

	s = NewSplitter(100, 100)
	if s.Overlap >= s.ChunkSize {
		t.Fatalf("overlap must stay below chunk size: %+v", s)
	}
}
