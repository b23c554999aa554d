package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type ErrorCode string

const (
	ErrCodeOnboardingValidationFailed ErrorCode = "ONBOARDING_VALIDATION_FAILED"
	ErrCodeDuplicateCustomer          ErrorCode = "DUPLICATE_CUSTOMER"
	ErrCodeStoreReadFailed            ErrorCode = "STORE_READ_FAILED"
	ErrCodeStoreWriteFailed           ErrorCode = "STORE_WRITE_FAILED"

	ErrCodeInvalidApplication ErrorCode = "INVALID_APPLICATION"
	ErrCodeLetterWriteFailed  ErrorCode = "LETTER_WRITE_FAILED"

	ErrCodeLLMRequestFailed ErrorCode = "LLM_REQUEST_FAILED"
	ErrCodeLLMTimeout       ErrorCode = "LLM_TIMEOUT"
	ErrCodeModelNotAllowed  ErrorCode = "MODEL_NOT_ALLOWED"

	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"

	ErrCodeDecisionRecordFailed ErrorCode = "DECISION_RECORD_FAILED"
	ErrCodeEventPublishFailed   ErrorCode = "EVENT_PUBLISH_FAILED"

	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrCodeResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeInternalError    ErrorCode = "INTERNAL_ERROR"
)

// StandardError is the error shape shared by workers, the chat engine and the HTTP API.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error { return e.cause }

// WithMetadata attaches a key/value pair and returns the receiver.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
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

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

func NewOnboardingValidationError(details string) *StandardError {
	return newError(ErrCodeOnboardingValidationFailed, "Onboarding form is invalid", details, false, nil)
}

func NewDuplicateCustomerError(customerID string) *StandardError {
	return newError(ErrCodeDuplicateCustomer, "Customer already exists",
		fmt.Sprintf("customerId: %s", customerID), false, nil)
}

func NewStoreReadFailedError(path string, err error) *StandardError {
	return newError(ErrCodeStoreReadFailed, "Customer store could not be read",
		fmt.Sprintf("path: %s, error: %v", path, err), false, err)
}

func NewStoreWriteFailedError(path string, err error) *StandardError {
	return newError(ErrCodeStoreWriteFailed, "Customer store could not be written",
		fmt.Sprintf("path: %s, error: %v", path, err), true, err)
}

func NewInvalidApplicationError(details string) *StandardError {
	return newError(ErrCodeInvalidApplication, "Loan application is invalid", details, false, nil)
}

func NewLetterWriteFailedError(path string, err error) *StandardError {
	return newError(ErrCodeLetterWriteFailed, "Sanction letter could not be written",
		fmt.Sprintf("path: %s, error: %v", path, err), true, err)
}

func NewLLMRequestFailedError(err error) *StandardError {
	return newError(ErrCodeLLMRequestFailed, "LLM request failed", err.Error(), true, err)
}

func NewLLMTimeoutError(err error) *StandardError {
	return newError(ErrCodeLLMTimeout, "LLM request timed out", err.Error(), true, err)
}

func NewModelNotAllowedError(model string) *StandardError {
	return newError(ErrCodeModelNotAllowed, "Model is not in the allow-list",
		fmt.Sprintf("model: %s", model), false, nil)
}

func NewSessionNotFoundError(sessionID string) *StandardError {
	return newError(ErrCodeSessionNotFound, "Session not found",
		fmt.Sprintf("sessionId: %s", sessionID), false, nil)
}

func NewDecisionRecordFailedError(err error) *StandardError {
	return newError(ErrCodeDecisionRecordFailed, "Loan decision could not be recorded", err.Error(), true, err)
}

func NewEventPublishFailedError(err error) *StandardError {
	return newError(ErrCodeEventPublishFailed, "Sanction event could not be published", err.Error(), true, err)
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid input", details, false, nil)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError("EXTERNAL_SERVICE_ERROR", fmt.Sprintf("External service '%s' error", service), err.Error(), true, err)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError("TIMEOUT_ERROR", fmt.Sprintf("Service '%s' timeout", service), err.Error(), true, err)
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return newError(ErrCodeResourceNotFound, fmt.Sprintf("Resource not found in %s", service), details, false, nil)
}

func NewBusinessRuleError(message, details string) *StandardError {
	return newError("BUSINESS_RULE_VIOLATION", message, details, false, nil)
}

func NewAuthenticationError(details string) *StandardError {
	return newError("AUTHENTICATION_ERROR", "Authentication failed", details, false, nil)
}

// FromCode wraps err in a StandardError carrying code. Worker packages use it
// to turn their sentinel errors into the shared shape.
func FromCode(code ErrorCode, err error) *StandardError {
	return newError(code, strings.ReplaceAll(strings.ToLower(string(code)), "_", " "), err.Error(), GetRetryCount(code) > 0, err)
}

// AsStandardError returns the StandardError in err's chain, if any.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Code == code
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStoreWriteFailed,
		ErrCodeDecisionRecordFailed,
		ErrCodeEventPublishFailed,
		ErrCodeLetterWriteFailed:
		return 3

	case ErrCodeLLMRequestFailed:
		return 1

	default:
		return 0 // business errors and LLM timeouts are not retried
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
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
	case strings.Contains(codeStr, "ONBOARDING") || strings.Contains(codeStr, "CUSTOMER") || strings.Contains(codeStr, "STORE"):
		return "CUSTOMER"
	case strings.Contains(codeStr, "LETTER") || strings.Contains(codeStr, "APPLICATION") || strings.Contains(codeStr, "DECISION"):
		return "LOAN"
	case strings.Contains(codeStr, "LLM") || strings.Contains(codeStr, "MODEL"):
		return "AI"
	case strings.Contains(codeStr, "EVENT"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "SESSION"):
		return "SESSION"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
