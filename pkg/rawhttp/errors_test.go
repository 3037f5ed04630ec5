package rawhttp

import (
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	herrors "github.com/WhileEndless/go-httpcontract/pkg/errors"
	"github.com/WhileEndless/go-httpcontract/pkg/response"
)

func TestErrorTypes(t *testing.T) {
	tests := []struct {
		name     string
		errFunc  func(error) *HTTPError
		wantType ErrorType
		sentinel error
	}{
		{"Connection Error", NewConnectionError, ErrorTypeConnection, ErrConnection},
		{"TLS Error", NewTLSError, ErrorTypeTLS, ErrTLSHandshake},
		{"Timeout Error", NewTimeoutError, ErrorTypeTimeout, ErrTimeout},
		{"Protocol Error", NewProtocolError, ErrorTypeProtocol, ErrProtocol},
		{"Closed Error", NewClosedError, ErrorTypeClosed, ErrClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			baseErr := errors.New("test error")
			httpErr := tt.errFunc(baseErr)

			if httpErr.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", httpErr.Type, tt.wantType)
			}

			if httpErr.Error() == "" {
				t.Error("Error() returned empty string")
			}

			if unwrapped := errors.Unwrap(httpErr); unwrapped != baseErr {
				t.Errorf("Unwrap() = %v, want %v", unwrapped, baseErr)
			}

			if !errors.Is(httpErr, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", httpErr, tt.sentinel)
			}
		})
	}
}

func TestSentinelsDoNotCrossMatch(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewTimeoutError(nil))

	if !errors.Is(err, ErrTimeout) {
		t.Error("wrapped timeout does not match ErrTimeout")
	}
	if errors.Is(err, ErrConnection) {
		t.Error("timeout matches ErrConnection")
	}
}

func TestBusyAndBodyTooLarge(t *testing.T) {
	if !errors.Is(NewBusyError(), ErrBusy) {
		t.Error("busy error does not match ErrBusy")
	}

	err := NewBodyTooLargeError(1024)
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Error("body error does not match ErrBodyTooLarge")
	}
	if err.Error() != "response body larger than 1024 bytes" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType ErrorType
	}{
		{"already classified", NewTLSError(nil), ErrorTypeTLS},
		{"body limit", response.ErrBodyTooLarge, ErrorTypeBodyTooLarge},
		{"bad framing", herrors.NewMalformedResponseError("bad status line", "status line"), ErrorTypeProtocol},
		{"deadline", os.ErrDeadlineExceeded, ErrorTypeTimeout},
		{"truncated", io.ErrUnexpectedEOF, ErrorTypeConnection},
		{"peer closed", io.EOF, ErrorTypeConnection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err, 1024)
			if got.Type != tt.wantType {
				t.Errorf("classify(%v).Type = %v, want %v", tt.err, got.Type, tt.wantType)
			}
		})
	}
}
