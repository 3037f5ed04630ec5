package request

import (
	"bytes"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/WhileEndless/go-httpcontract/pkg/errors"
	"github.com/WhileEndless/go-httpcontract/pkg/headers"
)

// Method is an HTTP request method
type Method string

const (
	MethodOptions Method = "OPTIONS"
	MethodHead    Method = "HEAD"
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodPatch   Method = "PATCH"
	MethodTrace   Method = "TRACE"
	MethodConnect Method = "CONNECT"
)

// DefaultVersion is the protocol version of built requests
const DefaultVersion = "HTTP/1.1"

// Request represents an HTTP/1.1 request about to be sent
type Request struct {
	Method  Method                  // HTTP method (GET, POST, etc.)
	Target  string                  // Request target (origin-form path)
	Version string                  // HTTP version (HTTP/1.1)
	Headers *headers.OrderedHeaders // Headers, unique by name, in send order
	Body    []byte                  // Request body (nil for no payload)
}

// New creates a request without a payload
func New(method Method, target string) *Request {
	return &Request{
		Method:  method,
		Target:  target,
		Version: DefaultVersion,
		Headers: headers.NewOrderedHeaders(),
	}
}

// Clone creates a deep copy of the request
func (r *Request) Clone() *Request {
	clone := New(r.Method, r.Target)
	clone.Version = r.Version
	clone.Headers = r.Headers.Clone()
	if r.Body != nil {
		clone.Body = append([]byte(nil), r.Body...)
	}
	return clone
}

// WithHeader sets a header, replacing any previous value, and returns r
func (r *Request) WithHeader(name, value string) *Request {
	r.Headers.Set(name, value)
	return r
}

// SetBody sets the payload with its content type and a Content-Length
// matching the byte length of body
func (r *Request) SetBody(body []byte, contentType string) {
	r.Body = body
	r.Headers.Set("Content-Type", contentType)
	r.Headers.Set("Content-Length", strconv.Itoa(len(body)))
}

// GetContentLength returns the Content-Length header value
func (r *Request) GetContentLength() string {
	return r.Headers.Get("Content-Length")
}

// GetContentType returns the Content-Type header value
func (r *Request) GetContentType() string {
	return r.Headers.Get("Content-Type")
}

// GetHost returns the Host header value
func (r *Request) GetHost() string {
	return r.Headers.Get("Host")
}

// Bytes serializes the request in wire form
func (r *Request) Bytes() []byte {
	var buf bytes.Buffer

	buf.WriteString(string(r.Method))
	buf.WriteByte(' ')
	buf.WriteString(r.Target)
	buf.WriteByte(' ')
	buf.WriteString(r.Version)
	buf.WriteString("\r\n")
	buf.Write(r.Headers.Build())
	buf.WriteString("\r\n")
	buf.Write(r.Body)

	return buf.Bytes()
}

// Validate rejects requests that would put a malformed message on the wire.
// It returns a MalformedRequest error describing the first problem found.
func (r *Request) Validate() error {
	if r.Method == "" || !httpguts.ValidHeaderFieldName(string(r.Method)) {
		return errors.NewMalformedRequestError("invalid method " + strconv.Quote(string(r.Method)))
	}

	if r.Target == "" || strings.ContainsAny(r.Target, " \r\n") {
		return errors.NewMalformedRequestError("invalid request target " + strconv.Quote(r.Target))
	}

	if !strings.HasPrefix(r.Version, "HTTP/") {
		return errors.NewMalformedRequestError("invalid protocol version " + strconv.Quote(r.Version))
	}

	for _, h := range r.Headers.All() {
		if !httpguts.ValidHeaderFieldName(h.Name) {
			return errors.NewMalformedRequestError("invalid header name " + strconv.Quote(h.Name))
		}
		if !httpguts.ValidHeaderFieldValue(h.Value) {
			return errors.NewMalformedRequestError("invalid value for header " + h.Name)
		}
	}

	if r.Version == DefaultVersion && r.GetHost() == "" {
		return errors.NewMalformedRequestError("missing Host header")
	}

	if r.Headers.Has("Transfer-Encoding") {
		return errors.NewMalformedRequestError("chunked request bodies are not supported")
	}

	contentLength := r.GetContentLength()
	if len(r.Body) == 0 {
		if contentLength != "" && contentLength != "0" {
			return errors.NewMalformedRequestError("Content-Length " + contentLength + " without a body")
		}
		return nil
	}

	if r.GetContentType() == "" {
		return errors.NewMalformedRequestError("body without Content-Type")
	}
	if contentLength == "" {
		return errors.NewMalformedRequestError("body without Content-Length")
	}
	if n, err := strconv.Atoi(contentLength); err != nil || n != len(r.Body) {
		return errors.NewMalformedRequestError("Content-Length " + strconv.Quote(contentLength) +
			" does not match body length " + strconv.Itoa(len(r.Body)))
	}

	return nil
}
