package response

import (
	"bytes"
	"io"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/net/http/httpguts"

	"github.com/WhileEndless/go-httpcontract/pkg/compression"
	"github.com/WhileEndless/go-httpcontract/pkg/headers"
)

// Response represents an HTTP response as it was framed on the wire
type Response struct {
	Version    string                  // HTTP version (HTTP/1.1)
	StatusCode int                     // HTTP status code (200, 404, etc.)
	StatusText string                  // Reason phrase exactly as received
	Headers    *headers.OrderedHeaders // Header field lines in wire order
	Body       []byte                  // Payload with transfer framing removed
	RawBody    []byte                  // Payload bytes exactly as framed
	Trailers   *headers.OrderedHeaders // Trailer fields of a chunked body
	Chunked    bool                    // Body was read with chunked framing
	Raw        []byte                  // Status line + header section + RawBody

	decodeOnce sync.Once
	decoded    []byte
	decodeErr  error
}

// NewResponse creates a new Response instance
func NewResponse() *Response {
	return &Response{
		Version:  "HTTP/1.1",
		Headers:  headers.NewOrderedHeaders(),
		Trailers: headers.NewOrderedHeaders(),
	}
}

// Clone creates a deep copy of the response
func (r *Response) Clone() *Response {
	clone := NewResponse()
	clone.Version = r.Version
	clone.StatusCode = r.StatusCode
	clone.StatusText = r.StatusText
	clone.Headers = r.Headers.Clone()
	clone.Trailers = r.Trailers.Clone()
	clone.Chunked = r.Chunked
	clone.Body = bytes.Clone(r.Body)
	clone.RawBody = bytes.Clone(r.RawBody)
	clone.Raw = bytes.Clone(r.Raw)
	return clone
}

// GetContentType returns the Content-Type header value
func (r *Response) GetContentType() string {
	return r.Headers.Get("Content-Type")
}

// GetContentLength returns the Content-Length header text and whether it was present
func (r *Response) GetContentLength() (string, bool) {
	if !r.Headers.Has("Content-Length") {
		return "", false
	}
	return r.Headers.Get("Content-Length"), true
}

// GetContentEncoding returns the Content-Encoding header value (trimmed)
func (r *Response) GetContentEncoding() string {
	return strings.TrimSpace(r.Headers.Get("Content-Encoding"))
}

// TransferEncoding returns every Transfer-Encoding field value as received
func (r *Response) TransferEncoding() []string {
	return r.Headers.Values("Transfer-Encoding")
}

// IsChunkedEncoding reports whether chunked is the final transfer coding
func (r *Response) IsChunkedEncoding() bool {
	var codings []string
	for _, v := range r.TransferEncoding() {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				codings = append(codings, c)
			}
		}
	}
	return len(codings) > 0 && httpguts.HeaderValuesContainsToken(codings[len(codings)-1:], "chunked")
}

// Content returns the payload. With decode set, Content-Encoding is removed
// first; the decoded form is computed once and reused by later calls.
func (r *Response) Content(decode bool) ([]byte, error) {
	if !decode || r.GetContentEncoding() == "" {
		return r.Body, nil
	}

	r.decodeOnce.Do(func() {
		r.decoded, r.decodeErr = compression.DecodeContent(r.Body, r.GetContentEncoding())
	})
	return r.decoded, r.decodeErr
}

// IsSuccessful returns true if the response has a 2xx status code
func (r *Response) IsSuccessful() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsInformational returns true if the response has a 1xx status code
func (r *Response) IsInformational() bool {
	return r.StatusCode >= 100 && r.StatusCode < 200
}

// IsRedirect returns true if the response has a 3xx status code
func (r *Response) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

// IsClientError returns true if the response has a 4xx status code
func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

// IsServerError returns true if the response has a 5xx status code
func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500 && r.StatusCode < 600
}

// StatusLine returns the status line without its line ending
func (r *Response) StatusLine() string {
	return r.Version + " " + strconv.Itoa(r.StatusCode) + " " + r.StatusText
}

// Build serializes the status line, headers and RawBody. Headers are written
// as-is, so a response may deliberately carry framing that disagrees with its
// body (scripted servers rely on this).
func (r *Response) Build() []byte {
	var buf bytes.Buffer

	buf.WriteString(r.StatusLine())
	buf.WriteString("\r\n")
	buf.Write(r.Headers.Build())
	buf.WriteString("\r\n")
	buf.Write(r.RawBody)

	return buf.Bytes()
}

// WriteTo writes the serialized response to w
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Build())
	return int64(n), err
}
