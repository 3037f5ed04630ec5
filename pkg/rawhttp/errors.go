package rawhttp

import (
	stderrors "errors"
	"fmt"
	"net"

	"github.com/WhileEndless/go-httpcontract/pkg/errors"
	"github.com/WhileEndless/go-httpcontract/pkg/response"
)

// Error types for different failure scenarios
var (
	ErrConnection   = stderrors.New("connection failed")
	ErrTLSHandshake = stderrors.New("TLS handshake failed")
	ErrTimeout      = stderrors.New("operation timeout")
	ErrProtocol     = stderrors.New("protocol violation")
	ErrClosed       = stderrors.New("connection closed")
	ErrBusy         = stderrors.New("exchange already in flight")
	ErrBodyTooLarge = stderrors.New("response body too large")
)

// ErrorType represents different error categories
type ErrorType int

const (
	ErrorTypeConnection ErrorType = iota
	ErrorTypeTLS
	ErrorTypeTimeout
	ErrorTypeProtocol
	ErrorTypeClosed
	ErrorTypeBusy
	ErrorTypeBodyTooLarge
)

var sentinels = map[ErrorType]error{
	ErrorTypeConnection:   ErrConnection,
	ErrorTypeTLS:          ErrTLSHandshake,
	ErrorTypeTimeout:      ErrTimeout,
	ErrorTypeProtocol:     ErrProtocol,
	ErrorTypeClosed:       ErrClosed,
	ErrorTypeBusy:         ErrBusy,
	ErrorTypeBodyTooLarge: ErrBodyTooLarge,
}

// HTTPError represents a detailed transport error with categorization
type HTTPError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's category, so callers can test
// errors.Is(err, rawhttp.ErrTimeout)
func (e *HTTPError) Is(target error) bool {
	return sentinels[e.Type] == target
}

// NewConnectionError creates a connection error
func NewConnectionError(err error) *HTTPError {
	return &HTTPError{Type: ErrorTypeConnection, Message: "connection failed", Err: err}
}

// NewTLSError creates a TLS handshake error
func NewTLSError(err error) *HTTPError {
	return &HTTPError{Type: ErrorTypeTLS, Message: "TLS handshake failed", Err: err}
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(err error) *HTTPError {
	return &HTTPError{Type: ErrorTypeTimeout, Message: "operation timeout", Err: err}
}

// NewProtocolError creates an error for a peer that violated HTTP/1.1 framing
func NewProtocolError(err error) *HTTPError {
	return &HTTPError{Type: ErrorTypeProtocol, Message: "protocol violation", Err: err}
}

// NewClosedError is returned for requests on a closed or unusable connection
func NewClosedError(err error) *HTTPError {
	return &HTTPError{Type: ErrorTypeClosed, Message: "connection closed", Err: err}
}

// NewBusyError is returned when a second exchange is submitted while one is in flight
func NewBusyError() *HTTPError {
	return &HTTPError{Type: ErrorTypeBusy, Message: "exchange already in flight"}
}

// NewBodyTooLargeError creates an error for a body above the memory limit
func NewBodyTooLargeError(limit int64) *HTTPError {
	return &HTTPError{Type: ErrorTypeBodyTooLarge, Message: fmt.Sprintf("response body larger than %d bytes", limit)}
}

// classify maps an I/O error from the exchange onto an HTTPError. Resets,
// EOFs and everything unrecognised count as connection failures.
func classify(err error, limit int64) *HTTPError {
	var httpErr *HTTPError
	var netErr net.Error
	switch {
	case stderrors.As(err, &httpErr):
		return httpErr
	case stderrors.Is(err, response.ErrBodyTooLarge):
		return NewBodyTooLargeError(limit)
	case errors.IsMalformedResponse(err):
		return NewProtocolError(err)
	case stderrors.As(err, &netErr) && netErr.Timeout():
		return NewTimeoutError(err)
	default:
		return NewConnectionError(err)
	}
}
