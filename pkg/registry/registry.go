// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	CategoryRouting   = "routing"
	CategoryData      = "data"
	CategoryRetrieval = "retrieval"
	CategoryAI        = "ai"
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("registry %s: %w", path, err)
	}
	return &reg, nil
}

// Default is the built-in catalogue of assistant job types.
func Default() *ActivityRegistry {
	return &ActivityRegistry{
		Version:     "1.0.0",
		LastUpdated: "2026-10-01",
		Activities: []Activity{
			{
				ID:           "process-query",
				DisplayName:  "Process Query",
				Description:  "Classify a customer query, dispatch it to the matching tool and return a response envelope",
				Category:     CategoryRouting,
				TaskType:     "process-query",
				InputSchema:  map[string]interface{}{"query": "string", "requestId": "string"},
				OutputSchema: map[string]interface{}{"response": "object"},
				ErrorCodes:   []string{"empty_query", "system_error"},
				Timeout:      "60s",
				Retries:      0,
				Tags:         []string{"entrypoint"},
			},
			{
				ID:           "classify-intent",
				DisplayName:  "Classify Intent",
				Description:  "Label a query as balance, knowledge_base or general",
				Category:     CategoryRouting,
				TaskType:     "classify-intent",
				InputSchema:  map[string]interface{}{"query": "string"},
				OutputSchema: map[string]interface{}{"intent": "string", "classification": "object"},
				ErrorCodes:   []string{"GENERATION_FAILED"},
				Timeout:      "15s",
				Retries:      0,
			},
			{
				ID:           "lookup-balance",
				DisplayName:  "Lookup Balance",
				Description:  "Find an account balance by national identifier",
				Category:     CategoryData,
				TaskType:     "lookup-balance",
				InputSchema:  map[string]interface{}{"query": "string", "identifier": "string"},
				OutputSchema: map[string]interface{}{"balanceResult": "object"},
				ErrorCodes:   []string{"not_found", "no_identifier_found"},
				Timeout:      "5s",
				Retries:      0,
			},
			{
				ID:           "search-knowledge-base",
				DisplayName:  "Search Knowledge Base",
				Description:  "Return the passages nearest to a query from the procedures index",
				Category:     CategoryRetrieval,
				TaskType:     "search-knowledge-base",
				InputSchema:  map[string]interface{}{"query": "string", "k": "integer"},
				OutputSchema: map[string]interface{}{"searchResult": "object"},
				ErrorCodes:   []string{"no_results", "search_error", "EMBEDDING_FAILED", "INDEX_NOT_READY"},
				Timeout:      "15s",
				Retries:      1,
			},
			{
				ID:           "generate-answer",
				DisplayName:  "Generate Answer",
				Description:  "Answer a question from retrieved context or under the banking-topics guard",
				Category:     CategoryAI,
				TaskType:     "generate-answer",
				InputSchema:  map[string]interface{}{"question": "string", "context": "string"},
				OutputSchema: map[string]interface{}{"answerResult": "object"},
				ErrorCodes:   []string{"llm_error", "GENERATION_FAILED", "GENERATION_TIMEOUT"},
				Timeout:      "60s",
				Retries:      3,
			},
		},
	}
}

// Find returns the activity registered for taskType.
func (r *ActivityRegistry) Find(taskType string) (Activity, bool) {
	for _, a := range r.Activities {
		if a.TaskType == taskType {
			return a, true
		}
	}
	return Activity{}, false
}

// Validate rejects entries without a task type and duplicate task types.
func (r *ActivityRegistry) Validate() error {
	seen := make(map[string]bool, len(r.Activities))
	for i, a := range r.Activities {
		if a.TaskType == "" {
			return fmt.Errorf("activity %d (%s) has no taskType", i, a.ID)
		}
		if seen[a.TaskType] {
			return fmt.Errorf("duplicate taskType %q", a.TaskType)
		}
		seen[a.TaskType] = true
	}
	return nil
}
