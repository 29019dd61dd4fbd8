// internal/workers/assistant/generate-answer/models.go
package generateanswer

// Input carries an optional grounding context.
type Input struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

// Result holds the answer on success and the backend error text otherwise.
type Result struct {
	Success   bool   `json:"success"`
	ErrorCode string `json:"error,omitempty"`
	Message   string `json:"message,omitempty"`
	Answer    string `json:"answer,omitempty"`
	Source    string `json:"source,omitempty"`

	cause error
}

type Output struct {
	Result Result `json:"answerResult"`
}

// Answer sources.
const (
	SourceLLM            = "llm"
	SourceLLMWithContext = "llm_with_context"
)
