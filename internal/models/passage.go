// internal/models/passage.go
package models

// RetrievedPassage is a chunk returned by the retrieval index for a single query.
type RetrievedPassage struct {
	Text             string  `json:"text"`
	SourceIdentifier string  `json:"sourceIdentifier"`
	Score            float64 `json:"score"`
}

// DistinctSources returns the source identifiers of passages in rank order without duplicates.
func DistinctSources(passages []RetrievedPassage) []string {
	seen := make(map[string]struct{}, len(passages))
	sources := make([]string, 0, len(passages))
	for _, p := range passages {
		if _, ok := seen[p.SourceIdentifier]; ok {
			continue
		}
		seen[p.SourceIdentifier] = struct{}{}
		sources = append(sources, p.SourceIdentifier)
	}
	return sources
}
