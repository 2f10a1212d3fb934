// Package errors defines the error taxonomy for the analysis pipeline.
//
// Structural problems (bad data shape, failed inference, failed export)
// propagate to the caller as *AnalysisError values with a stable code.
// Per-event conditions (an event outside the series coverage) are also typed
// here so callers can log and continue; a missing data point is NOT an error
// in this taxonomy - it is represented as an invalid OptionalFloat in the
// result tables.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for analysis failures
const (
	CodeDataShape  = "DATA_SHAPE"
	CodeOutOfRange = "OUT_OF_RANGE_EVENT"
	CodeInference  = "INFERENCE_FAILURE"
	CodeExport     = "EXPORT_FAILED"
)

// AnalysisError represents a structured analysis error
type AnalysisError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AnalysisError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause, if any
func (e *AnalysisError) Unwrap() error {
	return e.cause
}

// Is matches two AnalysisErrors by code, so sentinel values work with errors.Is
func (e *AnalysisError) Is(target error) bool {
	var t *AnalysisError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// Sentinel values for errors.Is checks
var (
	ErrDataShape  = &AnalysisError{Code: CodeDataShape, Message: "series has an unusable shape"}
	ErrOutOfRange = &AnalysisError{Code: CodeOutOfRange, Message: "event date outside series coverage"}
	ErrInference  = &AnalysisError{Code: CodeInference, Message: "posterior sampling failed"}
	ErrExport     = &AnalysisError{Code: CodeExport, Message: "report export failed"}
)

// New creates a new AnalysisError with the given code and message
func New(code, message string) *AnalysisError {
	return &AnalysisError{Code: code, Message: message}
}

// Newf creates a new AnalysisError with a formatted message
func Newf(code, format string, args ...interface{}) *AnalysisError {
	return &AnalysisError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a new AnalysisError
func Wrap(code, message string, cause error) *AnalysisError {
	return &AnalysisError{Code: code, Message: message, cause: cause}
}

// DataShape creates a DATA_SHAPE error with a formatted message
func DataShape(format string, args ...interface{}) *AnalysisError {
	return Newf(CodeDataShape, format, args...)
}

// OutOfRangeEvent creates an OUT_OF_RANGE_EVENT error carrying the event name
func OutOfRangeEvent(name, date string) *AnalysisError {
	return &AnalysisError{
		Code:    CodeOutOfRange,
		Message: fmt.Sprintf("event %q at %s is outside the series coverage", name, date),
		Details: map[string]string{"event": name, "date": date},
	}
}

// Inference creates an INFERENCE_FAILURE error wrapping the underlying cause
func Inference(message string, cause error) *AnalysisError {
	return Wrap(CodeInference, message, cause)
}

// Export creates an EXPORT_FAILED error wrapping the underlying cause
func Export(message string, cause error) *AnalysisError {
	return Wrap(CodeExport, message, cause)
}
