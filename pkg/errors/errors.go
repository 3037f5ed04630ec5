// Package errors defines the failure kinds a contract exchange can surface.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the category of a harness failure
type ErrorType int

const (
	// ErrorTypeTimeout means no complete response arrived before the deadline
	ErrorTypeTimeout ErrorType = iota
	// ErrorTypeTransport is a connection-level failure of the underlying transport
	ErrorTypeTransport
	// ErrorTypeContractViolation means one of the response checks failed
	ErrorTypeContractViolation
	// ErrorTypeMalformedRequest is a request rejected before it was sent
	ErrorTypeMalformedRequest
	// ErrorTypeMalformedResponse is a response the reader could not frame
	ErrorTypeMalformedResponse
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeTransport:
		return "transport failure"
	case ErrorTypeContractViolation:
		return "contract violation"
	case ErrorTypeMalformedRequest:
		return "malformed request"
	case ErrorTypeMalformedResponse:
		return "malformed response"
	default:
		return "unknown"
	}
}

// Error represents a structured harness error
type Error struct {
	Type    ErrorType
	Message string
	Context string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("httpcontract: %s: %s", e.Type, e.Message)
	if e.Context != "" {
		msg += " (context: " + e.Context + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error
func NewError(errType ErrorType, message, context string, err error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Context: context,
		Err:     err,
	}
}

// NewTimeoutError creates a timeout error for the given wait stage
func NewTimeoutError(context string, err error) *Error {
	return NewError(ErrorTypeTimeout, "no complete response within deadline", context, err)
}

// NewTransportError wraps a transport failure
func NewTransportError(context string, err error) *Error {
	return NewError(ErrorTypeTransport, "exchange failed", context, err)
}

// NewMalformedRequestError creates a request validation error
func NewMalformedRequestError(message string) *Error {
	return NewError(ErrorTypeMalformedRequest, message, "validate", nil)
}

// NewMalformedResponseError creates a response framing error
func NewMalformedResponseError(message, context string) *Error {
	return NewError(ErrorTypeMalformedResponse, message, context, nil)
}

// TypeOf reports the ErrorType of the first *Error in err's chain
func TypeOf(err error) (ErrorType, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type, true
	}
	return 0, false
}

func isType(err error, t ErrorType) bool {
	got, ok := TypeOf(err)
	return ok && got == t
}

// IsTimeout reports whether err is a Timeout failure
func IsTimeout(err error) bool { return isType(err, ErrorTypeTimeout) }

// IsTransportFailure reports whether err is a TransportFailure
func IsTransportFailure(err error) bool { return isType(err, ErrorTypeTransport) }

// IsContractViolation reports whether err is a ContractViolation
func IsContractViolation(err error) bool { return isType(err, ErrorTypeContractViolation) }

// IsMalformedRequest reports whether err is a MalformedRequest
func IsMalformedRequest(err error) bool { return isType(err, ErrorTypeMalformedRequest) }

// IsMalformedResponse reports whether err is a MalformedResponse
func IsMalformedResponse(err error) bool { return isType(err, ErrorTypeMalformedResponse) }
