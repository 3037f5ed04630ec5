package response

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/WhileEndless/go-httpcontract/pkg/chunked"
	"github.com/WhileEndless/go-httpcontract/pkg/errors"
	"github.com/WhileEndless/go-httpcontract/pkg/headers"
)

// ErrBodyTooLarge is returned when a body exceeds the read limit
var ErrBodyTooLarge = chunked.ErrBodyTooLarge

// ReadOptions controls how a response is read off a connection
type ReadOptions struct {
	// RequestMethod is the method of the request this response answers.
	// Responses to HEAD never carry a body.
	RequestMethod string

	// MaxBodySize bounds the payload kept in memory (0 = unbounded)
	MaxBodySize int64

	// MaxHeaderBytes bounds the header section (0 = headers.DefaultMaxHeaderBytes)
	MaxHeaderBytes int
}

// ReadHead reads the status line and header section. The body, if any, is
// left unread on br.
func ReadHead(br *bufio.Reader, opts ReadOptions) (*Response, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return nil, err
	}

	resp := NewResponse()
	if err := resp.parseStatusLine(strings.TrimRight(line, "\r\n")); err != nil {
		return nil, err
	}

	hdrs, err := headers.ReadHeaders(br, opts.MaxHeaderBytes)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	resp.Headers = hdrs

	var raw bytes.Buffer
	raw.WriteString(resp.StatusLine())
	raw.WriteString("\r\n")
	raw.Write(hdrs.Build())
	raw.WriteString("\r\n")
	resp.Raw = raw.Bytes()

	return resp, nil
}

// HasBody reports whether the message framing allows a body at all
func (r *Response) HasBody(requestMethod string) bool {
	if strings.EqualFold(requestMethod, "HEAD") {
		return false
	}
	return !(r.IsInformational() || r.StatusCode == 204 || r.StatusCode == 304)
}

// maxPrealloc caps the buffer allocated up front for a declared length
const maxPrealloc = 64 << 10

// ReadBody reads the body that follows a head returned by ReadHead, applying
// HTTP/1.1 message framing: no body, chunked, Content-Length, or read until
// the connection closes. It reports whether the connection can carry another
// exchange afterwards.
func (r *Response) ReadBody(br *bufio.Reader, opts ReadOptions) (reusable bool, err error) {
	if !r.HasBody(opts.RequestMethod) {
		r.Body, r.RawBody = []byte{}, []byte{}
		return true, nil
	}

	switch {
	case len(r.TransferEncoding()) > 0:
		if !r.IsChunkedEncoding() {
			return false, r.readUntilClose(br, opts.MaxBodySize)
		}
		body, err := chunked.Read(br, opts.MaxBodySize)
		if err != nil {
			return false, err
		}
		r.Body, r.RawBody, r.Trailers, r.Chunked = body.Data, body.Raw, body.Trailers, true

	case r.Headers.Has("Content-Length"):
		n, err := r.declaredLength()
		if err != nil {
			return false, err
		}
		if opts.MaxBodySize > 0 && n > opts.MaxBodySize {
			return false, ErrBodyTooLarge
		}
		var body bytes.Buffer
		body.Grow(int(min(n, maxPrealloc)))
		if _, err := io.CopyN(&body, br, n); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return false, err
		}
		r.Body = body.Bytes()
		if r.Body == nil {
			r.Body = []byte{}
		}
		r.RawBody = r.Body

	default:
		return false, r.readUntilClose(br, opts.MaxBodySize)
	}

	r.Raw = append(r.Raw, r.RawBody...)
	return !strings.EqualFold(r.Headers.Get("Connection"), "close"), nil
}

func (r *Response) readUntilClose(br *bufio.Reader, maxSize int64) error {
	var src io.Reader = br
	if maxSize > 0 {
		src = io.LimitReader(br, maxSize+1)
	}

	body, err := io.ReadAll(src)
	if err != nil {
		return err
	}
	if maxSize > 0 && int64(len(body)) > maxSize {
		return ErrBodyTooLarge
	}

	r.Body, r.RawBody = body, body
	r.Raw = append(r.Raw, body...)
	return nil
}

// declaredLength parses Content-Length; repeated fields must agree
func (r *Response) declaredLength() (int64, error) {
	var n int64 = -1
	for _, v := range r.Headers.Values("Content-Length") {
		for _, part := range strings.Split(v, ",") {
			parsed, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil || parsed < 0 {
				return 0, errors.NewMalformedResponseError("invalid Content-Length "+strconv.Quote(v), "readBody")
			}
			if n != -1 && parsed != n {
				return 0, errors.NewMalformedResponseError("conflicting Content-Length values", "readBody")
			}
			n = parsed
		}
	}
	return n, nil
}

// Parse reads a complete response from data
func Parse(data []byte, opts ReadOptions) (*Response, error) {
	br := bufio.NewReader(bytes.NewReader(data))

	resp, err := ReadHead(br, opts)
	if err != nil {
		return nil, err
	}
	if _, err := resp.ReadBody(br, opts); err != nil {
		return nil, err
	}
	return resp, nil
}

// parseStatusLine parses "HTTP/1.1 200 OK". The reason phrase is kept
// verbatim and may be empty.
func (r *Response) parseStatusLine(line string) error {
	version, rest, ok := strings.Cut(line, " ")
	if !ok || !strings.HasPrefix(version, "HTTP/") {
		return errors.NewMalformedResponseError("invalid status line "+strconv.Quote(line), "parseStatusLine")
	}
	r.Version = version

	code, reason, _ := strings.Cut(rest, " ")
	statusCode, err := strconv.Atoi(code)
	if err != nil || len(code) != 3 || statusCode < 100 {
		return errors.NewMalformedResponseError("invalid status code "+strconv.Quote(code), "parseStatusLine")
	}
	r.StatusCode = statusCode
	r.StatusText = reason

	return nil
}
