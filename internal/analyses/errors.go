package analyses

import (
	"errors"
	"strings"
)

// ErrValidation marks input rejected before any work starts.
var ErrValidation = errors.New("validation failed")

const (
	ErrorCodeValidation       = "validation_error"
	ErrorCodeUnsupportedMedia = "unsupported_media_type"
	ErrorCodeExtraction       = "extraction_failed"
	ErrorCodeOCRUnavailable   = "extraction_unavailable"
	ErrorCodeAnalysis         = "analysis_failed"
	ErrorCodeStorage          = "storage_error"
	ErrorCodeNotFound         = "not_found"
	ErrorCodePayloadTooLarge  = "payload_too_large"
	ErrorCodeTimeout          = "timeout"
	ErrorCodeInternal         = "internal_error"
)

// FieldIssue names one invalid request field.
type FieldIssue struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// ValidationError lists every problem found in a request.
type ValidationError struct {
	Issues []FieldIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Field+" "+issue.Issue)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) add(field, issue string) {
	e.Issues = append(e.Issues, FieldIssue{Field: field, Issue: issue})
}

func (e *ValidationError) orNil() error {
	if e == nil || len(e.Issues) == 0 {
		return nil
	}
	return e
}
