// Package vectorstore holds the similarity index over embedded knowledge-base chunks.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
)

var (
	ErrIndexNotLoaded    = errors.New("VECTOR_INDEX_NOT_LOADED")
	ErrDimensionMismatch = errors.New("VECTOR_DIMENSION_MISMATCH")
	ErrSearchFailed      = errors.New("VECTOR_SEARCH_FAILED")
)

// Record is an embedded chunk.
type Record struct {
	ID      string
	Source  string
	Ordinal int
	Text    string
	Vector  []float32
}

// Match is a record with its similarity to the query; higher is closer.
type Match struct {
	Record
	Score float64
}

// Store is a similarity index whose contents are replaced wholesale.
// Replace must never expose a partially built index to concurrent Search calls.
type Store interface {
	// Load restores a previously persisted index and reports whether one existed.
	Load(ctx context.Context) (bool, error)
	Replace(ctx context.Context, records []Record) error
	Search(ctx context.Context, vector []float32, k int) ([]Match, error)
	Size() int
	Backend() string
}

// RecordID is stable for a given source and chunk position.
func RecordID(source string, ordinal int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s#%d", source, ordinal))).String()
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine returns 0 when either vector has zero length.
func cosine(a []float32, aNorm float64, b []float32, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (aNorm * bNorm)
}
