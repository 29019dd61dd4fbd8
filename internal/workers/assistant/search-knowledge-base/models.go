// internal/workers/assistant/search-knowledge-base/models.go
package searchknowledgebase

import "bank-assistant/internal/models"

type Input struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

// Result carries the concatenated context and its distinct sources on success.
type Result struct {
	Success   bool                      `json:"success"`
	ErrorCode string                    `json:"error,omitempty"`
	Message   string                    `json:"message,omitempty"`
	Context   string                    `json:"context,omitempty"`
	Sources   []string                  `json:"sources,omitempty"`
	Passages  []models.RetrievedPassage `json:"passages,omitempty"`
}

type Output struct {
	Result Result `json:"searchResult"`
}
