package tools

import "fmt"

// ErrorCode classifies failures surfaced at the tool boundary
type ErrorCode string

const (
	ErrCodeUnknownTool       ErrorCode = "UNKNOWN_TOOL"
	ErrCodeMissingParameter  ErrorCode = "MISSING_PARAMETER"
	ErrCodeInvalidParameter  ErrorCode = "INVALID_PARAMETER"
	ErrCodeInvalidFormat     ErrorCode = "INVALID_FORMAT"
	ErrCodeMissingDateRange  ErrorCode = "MISSING_DATE_RANGE"
	ErrCodeUnexpectedPayload ErrorCode = "UNEXPECTED_PAYLOAD"
)

// Error is a validation or dispatch failure raised before or after the
// upstream call. Upstream failures keep their mixpanel error types.
type Error struct {
	Code    ErrorCode
	Param   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func unknownTool(name string) *Error {
	return &Error{Code: ErrCodeUnknownTool, Message: fmt.Sprintf("unknown tool: %s", name)}
}

func missingParameter(name string) *Error {
	return &Error{Code: ErrCodeMissingParameter, Param: name, Message: fmt.Sprintf("missing required parameter: %s", name)}
}

func invalidParameter(name, reason string) *Error {
	return &Error{Code: ErrCodeInvalidParameter, Param: name, Message: fmt.Sprintf("invalid parameter %s: %s", name, reason)}
}

func invalidFormat(name, reason string) *Error {
	return &Error{Code: ErrCodeInvalidFormat, Param: name, Message: fmt.Sprintf("invalid %s format: %s", name, reason)}
}

func missingDateRange() *Error {
	return &Error{Code: ErrCodeMissingDateRange, Message: "you must specify either interval or both from_date and to_date"}
}

func unexpectedPayload(reason string) *Error {
	return &Error{Code: ErrCodeUnexpectedPayload, Message: fmt.Sprintf("unexpected response payload: %s", reason)}
}
