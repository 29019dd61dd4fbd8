package corpus

import (
	"fmt"
	"strings"
)

// Chunk is a fixed-length slice of a document, the unit of retrieval.
type Chunk struct {
	Source  string
	Ordinal int
	Text    string
}

// Splitter cuts text into windows of Size runes that overlap by Overlap runes.
// Boundaries are purely positional.
type Splitter struct {
	Size    int
	Overlap int
}

func NewSplitter(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Splitter{Size: size, Overlap: overlap}, nil
}

// Split returns the windows of text; whitespace-only windows are dropped.
func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	step := s.Size - s.Overlap

	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + s.Size
		if end > len(runes) {
			end = len(runes)
		}
		if piece := string(runes[start:end]); strings.TrimSpace(piece) != "" {
			out = append(out, piece)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}

// SplitDocuments chunks every document, keeping document order.
func (s *Splitter) SplitDocuments(docs []Document) []Chunk {
	var chunks []Chunk
	for _, doc := range docs {
		for i, text := range s.Split(doc.Text) {
			chunks = append(chunks, Chunk{Source: doc.Source, Ordinal: i, Text: text})
		}
	}
	return chunks
}
