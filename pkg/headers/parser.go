package headers

import (
	"bufio"
	"bytes"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/WhileEndless/go-httpcontract/pkg/errors"
)

// DefaultMaxHeaderBytes bounds the header section ReadHeaders accepts
const DefaultMaxHeaderBytes = 1 << 20

// ParseHeaders parses a raw header block with fault tolerance.
// Lines without a colon are skipped; parsing stops at the first empty line.
func ParseHeaders(data []byte) *OrderedHeaders {
	h := NewOrderedHeaders()

	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimRight(line, "\r")
		if len(bytes.TrimSpace(line)) == 0 {
			break
		}

		colonPos := bytes.IndexByte(line, ':')
		if colonPos <= 0 {
			continue
		}

		name := strings.TrimSpace(string(line[:colonPos]))
		value := strings.TrimSpace(string(line[colonPos+1:]))
		h.Add(name, value)
	}

	return h
}

// ReadHeaders reads field lines from r up to and including the empty line
// that ends a header section. Unlike ParseHeaders it is strict: field names
// must be valid tokens, obsolete line folding is rejected and the section may
// not exceed maxBytes (0 means DefaultMaxHeaderBytes).
func ReadHeaders(r *bufio.Reader, maxBytes int) (*OrderedHeaders, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxHeaderBytes
	}

	h := NewOrderedHeaders()
	read := 0
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}

		read += len(line)
		if read > maxBytes {
			return nil, errors.NewMalformedResponseError("header section too large", "readHeaders")
		}

		line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
		if line == "" {
			return h, nil
		}

		if line[0] == ' ' || line[0] == '\t' {
			return nil, errors.NewMalformedResponseError("obsolete line folding: "+line, "readHeaders")
		}

		colonPos := strings.IndexByte(line, ':')
		if colonPos == -1 {
			return nil, errors.NewMalformedResponseError("header line without colon: "+line, "readHeaders")
		}

		name := line[:colonPos]
		if !httpguts.ValidHeaderFieldName(name) {
			return nil, errors.NewMalformedResponseError("invalid header name: "+name, "readHeaders")
		}

		value := strings.Trim(line[colonPos+1:], " \t")
		if !httpguts.ValidHeaderFieldValue(value) {
			return nil, errors.NewMalformedResponseError("invalid value for header "+name, "readHeaders")
		}

		h.Add(name, value)
	}
}

// Build writes headers in standard format (Name: Value\r\n)
func (h *OrderedHeaders) Build() []byte {
	var buf bytes.Buffer

	for _, header := range h.All() {
		buf.WriteString(header.Name)
		buf.WriteString(": ")
		buf.WriteString(header.Value)
		buf.WriteString("\r\n")
	}

	return buf.Bytes()
}
