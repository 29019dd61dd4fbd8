// internal/workers/assistant/lookup-balance/models.go
package lookupbalance

type Input struct {
	Query      string `json:"query"`
	Identifier string `json:"identifier"`
}

// Result is the tool outcome. ErrorCode is empty on success.
type Result struct {
	Success   bool                   `json:"success"`
	ErrorCode string                 `json:"error,omitempty"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

type Output struct {
	Result Result `json:"balanceResult"`
}
