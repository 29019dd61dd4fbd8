package genai

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenBudget truncates grounding context to a token limit. A nil budget leaves text unchanged.
type TokenBudget struct {
	enc   *tiktoken.Tiktoken
	limit int
}

// NewTokenBudget loads the named encoding (e.g. cl100k_base). The first call may download the BPE ranks.
func NewTokenBudget(encoding string, limit int) (*TokenBudget, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", encoding, err)
	}
	return &TokenBudget{enc: enc, limit: limit}, nil
}

func (b *TokenBudget) Count(text string) int {
	if b == nil {
		return 0
	}
	return len(b.enc.Encode(text, nil, nil))
}

// Truncate returns text cut to at most limit tokens.
func (b *TokenBudget) Truncate(text string) string {
	if b == nil || b.limit <= 0 {
		return text
	}
	tokens := b.enc.Encode(text, nil, nil)
	if len(tokens) <= b.limit {
		return text
	}
	return b.enc.Decode(tokens[:b.limit])
}
