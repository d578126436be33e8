package chunking

import (
	"unicode"

	"github.com/quaydocs/corpus-assistant/internal/core/domain"
)

const (
	defaultChunkSize = 2000
	defaultOverlap   = 300
)

// Splitter cuts document text into overlapping passages. Offsets are rune
// (character) positions in the source text.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if overlap < 0 {
		overlap = defaultOverlap
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{ChunkSize: chunkSize, Overlap: overlap}
}

// Split produces passages of at most ChunkSize runes, consecutive passages
// sharing Overlap runes. Cuts snap back to whitespace where possible, but a
// passage is never shorter than the overlap except the final one. The union
// of covered ranges is the whole text with no gaps and monotonically
// increasing start offsets.
func (s *Splitter) Split(text string) []domain.Passage {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	out := make([]domain.Passage, 0, len(runes)/(s.ChunkSize-s.Overlap)+1)
	start := 0
	for {
		end := start + s.ChunkSize
		if end >= len(runes) {
			out = append(out, domain.Passage{Text: string(runes[start:]), StartIndex: start})
			return out
		}
		cut := s.snapToBoundary(runes, start, end)
		out = append(out, domain.Passage{Text: string(runes[start:cut]), StartIndex: start})
		start = cut - s.Overlap
	}
}

// snapToBoundary moves the cut back to the nearest whitespace run so
// passages end on natural text boundaries, never closer to start than
// Overlap+1 runes. Falls back to a hard cut inside unbroken text.
func (s *Splitter) snapToBoundary(runes []rune, start, end int) int {
	floor := start + s.Overlap + 1
	for i := end; i > floor; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}
