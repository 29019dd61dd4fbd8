// internal/models/intent.go
package models

import "strings"

// Intent is the routing category assigned to a customer query.
type Intent string

const (
	IntentBalance       Intent = "balance"
	IntentKnowledgeBase Intent = "knowledge_base"
	IntentGeneral       Intent = "general"
)

// IntentPriority is the order in which category names are searched for in raw classifier output.
var IntentPriority = []Intent{IntentBalance, IntentKnowledgeBase, IntentGeneral}

func (i Intent) Valid() bool {
	switch i {
	case IntentBalance, IntentKnowledgeBase, IntentGeneral:
		return true
	}
	return false
}

func (i Intent) String() string {
	return string(i)
}

// Ptr returns a pointer to a copy of i, for nullable envelope fields.
func (i Intent) Ptr() *Intent {
	return &i
}

// ParseIntent maps free-form model output onto an Intent. Output is lower-cased and the first
// category name found as a substring (in IntentPriority order) wins. When nothing matches,
// IntentGeneral is returned together with ok=false.
func ParseIntent(raw string) (intent Intent, ok bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	for _, candidate := range IntentPriority {
		if strings.Contains(normalized, string(candidate)) {
			return candidate, true
		}
	}
	return IntentGeneral, false
}

// ClassificationResult always carries a usable Intent, even when Success is false.
type ClassificationResult struct {
	Success        bool   `json:"success"`
	Intent         Intent `json:"intent"`
	RawModelOutput string `json:"rawModelOutput"`
	Error          string `json:"error,omitempty"`
}
