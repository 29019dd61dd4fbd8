// Package genai adapts text-generation and embedding backends to the two narrow
// capabilities the assistant needs: generate given a prompt, and embed a text.
package genai

import (
	"context"
	"errors"
)

var (
	ErrGenAITimeout       = errors.New("GENAI_TIMEOUT")
	ErrGenAIRequestFailed = errors.New("GENAI_REQUEST_FAILED")
)

type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
}

// Generator is a single-shot completion backend.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// Embedder must use the same model at index-build time and at query time.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Logger interface definition
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	With(fields map[string]interface{}) Logger
}
