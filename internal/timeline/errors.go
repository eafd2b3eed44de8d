package timeline

import "fmt"

// ErrorCode identifies a class of timeline failure.
type ErrorCode string

const (
	CodeMalformedFlowCode           ErrorCode = "MALFORMED_FLOW_CODE"
	CodeInvalidStageFlowCombination ErrorCode = "INVALID_STAGE_FLOW_COMBINATION"
	CodeUnknownCatalogReference     ErrorCode = "UNKNOWN_CATALOG_REFERENCE"
	CodeDuplicateRequestName        ErrorCode = "DUPLICATE_REQUEST_NAME"
	CodeCurrentFlowNotFound         ErrorCode = "CURRENT_FLOW_NOT_FOUND"
	CodeStageNotUpdatable           ErrorCode = "STAGE_NOT_UPDATABLE"
	CodeBlockedTransition           ErrorCode = "BLOCKED_TRANSITION"
	CodeFlowOutOfBounds             ErrorCode = "FLOW_OUT_OF_BOUNDS"
	CodeRequestNotFound             ErrorCode = "REQUEST_NOT_FOUND"
	CodeCatalogIntegrity            ErrorCode = "CATALOG_INTEGRITY_ERROR"
	CodeInvalidInput                ErrorCode = "INVALID_INPUT"
)

// Error is a validation failure raised by the timeline engine or the
// services built on it. Errors are deterministic for the same inputs and
// are never retried.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error carrying the same code, so the sentinels below work
// with errors.Is regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrMalformedFlowCode           = &Error{Code: CodeMalformedFlowCode}
	ErrInvalidStageFlowCombination = &Error{Code: CodeInvalidStageFlowCombination}
	ErrUnknownCatalogReference     = &Error{Code: CodeUnknownCatalogReference}
	ErrDuplicateRequestName        = &Error{Code: CodeDuplicateRequestName}
	ErrCurrentFlowNotFound         = &Error{Code: CodeCurrentFlowNotFound}
	ErrStageNotUpdatable           = &Error{Code: CodeStageNotUpdatable}
	ErrBlockedTransition           = &Error{Code: CodeBlockedTransition}
	ErrFlowOutOfBounds             = &Error{Code: CodeFlowOutOfBounds}
	ErrRequestNotFound             = &Error{Code: CodeRequestNotFound}
	ErrCatalogIntegrity            = &Error{Code: CodeCatalogIntegrity}
	ErrInvalidInput                = &Error{Code: CodeInvalidInput}
)

func newError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Errorf builds an *Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) error {
	return newError(code, format, args...)
}
