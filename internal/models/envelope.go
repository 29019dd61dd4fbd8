// internal/models/envelope.go
package models

// ResponseEnvelope is the single response contract returned for every query.
// Message is always safe to show to the customer.
type ResponseEnvelope struct {
	Success   bool                   `json:"success"`
	QueryType *Intent                `json:"query_type"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data"`
	Sources   []string               `json:"sources"`
	Error     *string                `json:"error"`

	// Details holds the underlying failure text for logs only.
	Details string `json:"-"`
}

func NewSuccessEnvelope(intent Intent, message string) *ResponseEnvelope {
	return &ResponseEnvelope{
		Success:   true,
		QueryType: intent.Ptr(),
		Message:   message,
	}
}

// NewFailureEnvelope builds a degraded response. intent may be nil when no classification happened.
func NewFailureEnvelope(intent *Intent, message, code, details string) *ResponseEnvelope {
	env := &ResponseEnvelope{
		Success:   false,
		QueryType: intent,
		Message:   message,
		Details:   details,
	}
	if code != "" {
		env.Error = &code
	}
	return env
}

// ErrorCode returns the machine-readable failure code, or "" on success.
func (e *ResponseEnvelope) ErrorCode() string {
	if e == nil || e.Error == nil {
		return ""
	}
	return *e.Error
}

// Intent returns the query type or "" when the query was never classified.
func (e *ResponseEnvelope) Intent() Intent {
	if e == nil || e.QueryType == nil {
		return ""
	}
	return *e.QueryType
}
