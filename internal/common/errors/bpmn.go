package errors

import (
	"fmt"
	"time"
)

// BPMNError is the shape thrown to the Zeebe engine when a job ends in a business error.
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

// ToErrorVariables returns the variables attached to fail/throw commands.
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

var bpmnCodes = map[Kind]string{
	KindValidation:     "MATCH_INPUT_INVALID",
	KindAuthentication: "MATCH_UNAUTHENTICATED",
	KindAuthorization:  "MATCH_FORBIDDEN",
	KindNotFound:       "MATCH_RESOURCE_NOT_FOUND",
	KindConflict:       "MATCH_CONFLICT",
	KindDependency:     "MATCH_DEPENDENCY_FAILED",
}

// ConvertToBPMNError maps a StandardError onto the error codes modelled in the matching workflows.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	code, ok := bpmnCodes[stdErr.Kind]
	if !ok {
		code = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      code,
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

// GetErrorCategory is used as a log dimension.
func GetErrorCategory(kind Kind) string {
	switch kind {
	case KindValidation:
		return "VALIDATION"
	case KindAuthentication, KindAuthorization:
		return "AUTH"
	case KindNotFound, KindConflict:
		return "STATE"
	case KindDependency:
		return "DEPENDENCY"
	default:
		return "OTHER"
	}
}
