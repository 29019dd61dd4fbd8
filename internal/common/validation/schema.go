package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// QueryRequestSchema describes the body of POST /api/query and of process-query jobs.
// An empty query is schema-valid; rejecting it is the orchestrator's job.
const QueryRequestSchema = `{
  "type": "object",
  "properties": {
    "query": {
      "type": "string",
      "maxLength": 2000,
      "description": "Free-text customer query"
    },
    "requestId": {
      "type": "string"
    }
  },
  "required": ["query"],
  "additionalProperties": false
}`

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Summary joins the errors into a single line for logs and envelope details.
func (r *ValidationResult) Summary() string {
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return strings.Join(parts, "; ")
}

// Validator holds a compiled JSON schema.
type Validator struct {
	schema *gojsonschema.Schema
}

func NewValidator(schemaJSON string) (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// MustValidator panics on an invalid schema; use it only with compile-time constants.
func MustValidator(schemaJSON string) *Validator {
	v, err := NewValidator(schemaJSON)
	if err != nil {
		panic(err)
	}
	return v
}

// ValidateBytes validates a raw JSON document. Malformed JSON is reported as a single error.
func (v *Validator) ValidateBytes(doc []byte) *ValidationResult {
	return v.validate(gojsonschema.NewBytesLoader(doc))
}

// ValidateInput validates decoded job variables.
func (v *Validator) ValidateInput(input map[string]interface{}) *ValidationResult {
	return v.validate(gojsonschema.NewGoLoader(input))
}

func (v *Validator) validate(loader gojsonschema.JSONLoader) *ValidationResult {
	result, err := v.schema.Validate(loader)
	if err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "(root)",
				Message: err.Error(),
				Code:    "MALFORMED_DOCUMENT",
			}},
		}
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		field := re.Field()
		if p, ok := re.Details()["property"].(string); ok && field == "(root)" {
			field = p
		}
		errs = append(errs, ValidationError{
			Field:   field,
			Message: re.Description(),
			Code:    errorCode(re.Type()),
		})
	}

	return &ValidationResult{
		Valid:  result.Valid(),
		Errors: errs,
	}
}

func errorCode(kind string) string {
	switch kind {
	case "required":
		return "REQUIRED_FIELD_MISSING"
	case "invalid_type":
		return "INVALID_TYPE"
	case "string_gte":
		return "MIN_LENGTH_VIOLATION"
	case "string_lte":
		return "MAX_LENGTH_VIOLATION"
	case "additional_property_not_allowed":
		return "EXTRA_FIELD"
	case "enum":
		return "INVALID_ENUM_VALUE"
	case "pattern":
		return "PATTERN_MISMATCH"
	default:
		return strings.ToUpper(kind)
	}
}
