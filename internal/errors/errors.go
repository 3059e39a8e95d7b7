package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ProtocolViolation indicates a malformed frame, wrong content type,
	// wrong status, non-ASCII bytes where ASCII is required, or a missing
	// protocol sentinel
	ProtocolViolation ErrorCode = "PROTOCOL_VIOLATION"
	// EmptyRepository indicates the server advertised the null object id
	// for its default reference
	EmptyRepository ErrorCode = "EMPTY_REPOSITORY"
	// UnsupportedObjectKind indicates a tree entry that is neither a blob
	// nor a tree (submodules and the like)
	UnsupportedObjectKind ErrorCode = "UNSUPPORTED_OBJECT_KIND"
	// TransferMissing indicates the negotiation response carried no
	// binary transfer payload
	TransferMissing ErrorCode = "TRANSFER_MISSING"
	// ObjectMissing indicates a commit or tree id that cannot be resolved
	ObjectMissing ErrorCode = "OBJECT_MISSING"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// AnalysisError represents a churnmap error with a stable code, a
// human-readable message, and an optional underlying cause.
// Every failure mode in an analysis run is terminal: errors propagate
// up through all layers without local recovery.
type AnalysisError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error
}

// New creates a new AnalysisError
func New(code ErrorCode, message string, cause error) *AnalysisError {
	return &AnalysisError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Newf creates a new AnalysisError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *AnalysisError {
	return &AnalysisError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface
func (e *AnalysisError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AnalysisError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *AnalysisError) WithDetails(details interface{}) *AnalysisError {
	e.Details = details
	return e
}

// CodeOf returns the error code carried by err, or InternalError if err
// is not an AnalysisError.
func CodeOf(err error) ErrorCode {
	var ae *AnalysisError
	if stderrors.As(err, &ae) {
		return ae.Code
	}
	return InternalError
}

// HasCode reports whether err carries the given error code.
func HasCode(err error, code ErrorCode) bool {
	var ae *AnalysisError
	return stderrors.As(err, &ae) && ae.Code == code
}
