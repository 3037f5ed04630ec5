package chunked

import (
	"bufio"
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/WhileEndless/go-httpcontract/pkg/errors"
	"github.com/WhileEndless/go-httpcontract/pkg/headers"
)

// ErrBodyTooLarge is returned when the decoded body exceeds the read limit
var ErrBodyTooLarge = stderrors.New("chunked body too large")

// Body is a chunked payload read off the wire
type Body struct {
	Data     []byte                  // Decoded payload
	Raw      []byte                  // Bytes exactly as framed on the wire
	Trailers *headers.OrderedHeaders // Trailer fields after the last chunk
}

// Read consumes one chunked message body from r, including the last-chunk and
// trailer section. maxSize bounds the decoded payload (0 means unbounded).
// Malformed framing yields a MalformedResponse error; a connection that ends
// mid-body yields io.ErrUnexpectedEOF.
func Read(r *bufio.Reader, maxSize int64) (*Body, error) {
	var data, raw bytes.Buffer
	var total int64

	for {
		sizeLine, err := r.ReadString('\n')
		if err != nil {
			return nil, unexpected(err)
		}
		raw.WriteString(sizeLine)

		size, err := parseSize(sizeLine)
		if err != nil {
			return nil, err
		}

		if size == 0 {
			break
		}

		if maxSize > 0 && size > maxSize-total {
			return nil, ErrBodyTooLarge
		}
		total += size

		// the peer's size line is not trusted for allocation
		if _, err := io.CopyN(io.MultiWriter(&raw, &data), r, size); err != nil {
			return nil, unexpected(err)
		}

		crlf, err := r.ReadString('\n')
		if err != nil {
			return nil, unexpected(err)
		}
		raw.WriteString(crlf)
		if strings.TrimRight(crlf, "\r\n") != "" {
			return nil, errors.NewMalformedResponseError("missing CRLF after chunk data", "chunked.Read")
		}
	}

	trailers, err := headers.ReadHeaders(r, 0)
	if err != nil {
		return nil, unexpected(err)
	}
	raw.Write(trailers.Build())
	raw.WriteString("\r\n")

	return &Body{Data: data.Bytes(), Raw: raw.Bytes(), Trailers: trailers}, nil
}

func parseSize(line string) (int64, error) {
	sizeStr := strings.TrimRight(line, "\r\n")
	if idx := strings.IndexByte(sizeStr, ';'); idx != -1 {
		sizeStr = sizeStr[:idx]
	}
	sizeStr = strings.TrimSpace(sizeStr)

	size, err := strconv.ParseInt(sizeStr, 16, 64)
	if err != nil || size < 0 {
		return 0, errors.NewMalformedResponseError("invalid chunk size line: "+strconv.Quote(line), "chunked.Read")
	}
	return size, nil
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// Decode decodes chunked transfer encoding to plain body
// Always succeeds - if malformed, returns what it can parse
// Returns decoded body and any trailers found after final chunk
func Decode(chunkedBody []byte) (body []byte, trailers *headers.OrderedHeaders) {
	trailers = headers.NewOrderedHeaders()

	var result bytes.Buffer
	data := chunkedBody
	pos := 0

	for pos < len(data) {
		lineEnd := bytes.IndexByte(data[pos:], '\n')
		if lineEnd == -1 {
			break
		}

		sizeLine := strings.TrimRight(string(data[pos:pos+lineEnd]), "\r")
		if idx := strings.IndexByte(sizeLine, ';'); idx != -1 {
			sizeLine = sizeLine[:idx]
		}

		chunkSize, err := strconv.ParseInt(strings.TrimSpace(sizeLine), 16, 64)
		if err != nil || chunkSize < 0 {
			break
		}
		pos += lineEnd + 1

		if chunkSize == 0 {
			trailers = headers.ParseHeaders(data[pos:])
			break
		}

		if pos+int(chunkSize) > len(data) {
			result.Write(data[pos:])
			break
		}

		result.Write(data[pos : pos+int(chunkSize)])
		pos += int(chunkSize)

		if pos+1 < len(data) && data[pos] == '\r' && data[pos+1] == '\n' {
			pos += 2
		} else if pos < len(data) && data[pos] == '\n' {
			pos++
		}
	}

	return result.Bytes(), trailers
}

// Encode encodes data with chunked transfer encoding
// chunkSize specifies the size of each chunk (must be > 0)
// If chunkSize <= 0, uses default of 8192 bytes
func Encode(data []byte, chunkSize int) []byte {
	return EncodeWithTrailers(data, chunkSize, nil)
}

// EncodeWithTrailers encodes data with chunked transfer encoding and trailers
func EncodeWithTrailers(data []byte, chunkSize int, trailers *headers.OrderedHeaders) []byte {
	if chunkSize <= 0 {
		chunkSize = 8192
	}

	var result bytes.Buffer
	for pos := 0; pos < len(data); pos += chunkSize {
		end := min(pos+chunkSize, len(data))
		fmt.Fprintf(&result, "%x\r\n", end-pos)
		result.Write(data[pos:end])
		result.WriteString("\r\n")
	}

	result.WriteString("0\r\n")
	if trailers != nil {
		result.Write(trailers.Build())
	}
	result.WriteString("\r\n")

	return result.Bytes()
}
