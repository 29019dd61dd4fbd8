package errors

import (
	"fmt"
	"strings"
	"time"
)

type ErrorCode string

// Response codes placed in ResponseEnvelope.Error.
const (
	CodeEmptyQuery        ErrorCode = "empty_query"
	CodeSystemError       ErrorCode = "system_error"
	CodeNotFound          ErrorCode = "not_found"
	CodeNoIdentifierFound ErrorCode = "no_identifier_found"
	CodeNoResults         ErrorCode = "no_results"
	CodeSearchError       ErrorCode = "search_error"
	CodeLLMError          ErrorCode = "llm_error"

	// HTTP surface only
	CodeInvalidRequest ErrorCode = "invalid_request"
	CodeRateLimited    ErrorCode = "rate_limited"
	CodeUnauthorized   ErrorCode = "unauthorized"
)

// Structured error codes for construction, backend and job failures.
const (
	ErrCodeDataSourceLoadFailed ErrorCode = "DATA_SOURCE_LOAD_FAILED"
	ErrCodeEmptyCorpus          ErrorCode = "EMPTY_CORPUS"
	ErrCodeIndexBuildFailed     ErrorCode = "INDEX_BUILD_FAILED"
	ErrCodeIndexNotReady        ErrorCode = "INDEX_NOT_READY"

	ErrCodeGenerationFailed  ErrorCode = "GENERATION_FAILED"
	ErrCodeGenerationTimeout ErrorCode = "GENERATION_TIMEOUT"
	ErrCodeEmbeddingFailed   ErrorCode = "EMBEDDING_FAILED"

	ErrCodeDatabaseConnectionFailed      ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"

	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrCodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrCodeRateLimited    ErrorCode = "RATE_LIMITED"
	ErrCodeConfiguration  ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
)

type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is matches on Code so callers can compare against a constructor result.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// --- Construction errors (fatal at startup) ---

func NewDataSourceLoadError(source string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDataSourceLoadFailed,
		Message:   fmt.Sprintf("Failed to load account data from %s", source),
		Details:   err.Error(),
		Retryable: false,
		Metadata:  map[string]interface{}{"source": source},
		Timestamp: time.Now().UTC(),
	}
}

func NewEmptyCorpusError(path string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmptyCorpus,
		Message:   "Knowledge base corpus is empty",
		Details:   fmt.Sprintf("no text documents found under %s", path),
		Retryable: false,
		Metadata:  map[string]interface{}{"path": path},
		Timestamp: time.Now().UTC(),
	}
}

func NewIndexBuildError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeIndexBuildFailed,
		Message:   "Failed to build the retrieval index",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewIndexNotReadyError() *StandardError {
	return &StandardError{
		Code:      ErrCodeIndexNotReady,
		Message:   "Retrieval index has not been initialized",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewConfigurationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfiguration,
		Message:   "Invalid configuration",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// --- Backend errors ---

func NewGenerationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGenerationFailed,
		Message:   "Text generation backend failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewGenerationTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeGenerationTimeout,
		Message:   "Text generation backend timed out",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewEmbeddingFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmbeddingFailed,
		Message:   "Embedding backend failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewDatabaseConnectionError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewElasticsearchConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeElasticsearchConnectionFailed,
		Message:   "Failed to connect to Elasticsearch",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// --- Surface errors ---

func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Request does not match the expected schema",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewUnauthorizedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthorized,
		Message:   "Authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewRateLimitedError() *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimited,
		Message:   "Too many requests",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeDataSourceLoadFailed:          "DATA_SOURCE_LOAD_FAILED",
	ErrCodeEmptyCorpus:                   "EMPTY_CORPUS",
	ErrCodeIndexBuildFailed:              "INDEX_BUILD_FAILED",
	ErrCodeIndexNotReady:                 "INDEX_NOT_READY",
	ErrCodeGenerationFailed:              "GENERATION_FAILED",
	ErrCodeGenerationTimeout:             "GENERATION_TIMEOUT",
	ErrCodeEmbeddingFailed:               "EMBEDDING_FAILED",
	ErrCodeDatabaseConnectionFailed:      "DATABASE_CONNECTION_FAILED",
	ErrCodeElasticsearchConnectionFailed: "ELASTICSEARCH_CONNECTION_FAILED",
	ErrCodeInvalidRequest:                "INVALID_REQUEST",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeGenerationFailed,
		ErrCodeEmbeddingFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeElasticsearchConnectionFailed,
		ErrCodeIndexBuildFailed:
		return 3

	case ErrCodeGenerationTimeout,
		ErrCodeIndexNotReady:
		return 1

	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DATA_SOURCE") || strings.Contains(codeStr, "DATABASE"):
		return "DATA"
	case strings.Contains(codeStr, "CORPUS") || strings.Contains(codeStr, "INDEX") || strings.Contains(codeStr, "ELASTICSEARCH"):
		return "RETRIEVAL"
	case strings.Contains(codeStr, "GENERATION") || strings.Contains(codeStr, "EMBEDDING"):
		return "AI"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "CONFIGURATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "UNAUTHORIZED") || strings.Contains(codeStr, "RATE_LIMITED"):
		return "ACCESS"
	default:
		return "OTHER"
	}
}
