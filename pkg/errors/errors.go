package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of errors that can occur
type ErrorType string

const (
	// ErrorTypeValidation means the scan was started against the wrong page or platform
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// DefaultMessage is shown when a failure carries no message of its own
const DefaultMessage = "An error occurred during the scan"

// Error is a classified failure raised by a platform driver or the scan pipeline
type Error struct {
	Type     ErrorType
	Platform string
	Message  string
	Code     int
	Err      error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given type
func New(t ErrorType, platform, message string) *Error {
	return &Error{Type: t, Platform: platform, Message: message}
}

// Wrap attaches a type to an underlying error
func Wrap(t ErrorType, platform, message string, err error) *Error {
	return &Error{Type: t, Platform: platform, Message: message, Err: err}
}

// Validation reports that the active location does not match the platform
func Validation(platform, message string) *Error {
	return New(ErrorTypeValidation, platform, message)
}

// RateLimited reports an upstream 429
func RateLimited(platform, message string) *Error {
	return &Error{Type: ErrorTypeRateLimit, Platform: platform, Message: message, Code: http.StatusTooManyRequests}
}

// FromStatusCode classifies a non-2xx HTTP status
func FromStatusCode(platform string, code int, message string) *Error {
	t := ErrorTypeUnknown
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		t = ErrorTypeAuth
	case code == http.StatusNotFound:
		t = ErrorTypeNotFound
	case code == http.StatusTooManyRequests:
		t = ErrorTypeRateLimit
	case code >= 500:
		t = ErrorTypeServerError
	}
	return &Error{Type: t, Platform: platform, Message: message, Code: code}
}

// TypeOf returns the type of the first *Error in err's chain
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsValidation reports whether err is a location/platform mismatch
func IsValidation(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypeValidation
}

// IsRateLimited reports whether err is an upstream rate limit
func IsRateLimited(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypeRateLimit
}

// IsUnavailable reports whether err is a network, parse or upstream server failure.
// Per-candidate lookups degrade to an unknown value on these.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	switch TypeOf(err) {
	case ErrorTypeNetwork, ErrorTypeParsing, ErrorTypeNotFound, ErrorTypeServerError:
		return true
	}
	return false
}

// UserMessage extracts the human-readable part of err
func UserMessage(err error) string {
	if err == nil {
		return DefaultMessage
	}
	var e *Error
	if stderrors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return DefaultMessage
}
