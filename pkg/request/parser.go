package request

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/WhileEndless/go-httpcontract/pkg/errors"
	"github.com/WhileEndless/go-httpcontract/pkg/headers"
)

// Read reads one request off a server-side connection. Bodies are framed by
// Content-Length only; the harness never sends chunked requests.
func Read(br *bufio.Reader) (*Request, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return nil, err
	}

	parts := strings.Fields(strings.TrimRight(line, "\r\n"))
	if len(parts) != 3 {
		return nil, errors.NewMalformedRequestError("invalid request line " + strconv.Quote(line))
	}

	req := New(Method(parts[0]), parts[1])
	req.Version = parts[2]

	hdrs, err := headers.ReadHeaders(br, 0)
	if err != nil {
		return nil, err
	}
	req.Headers = hdrs

	if cl := req.GetContentLength(); cl != "" {
		n, err := strconv.ParseInt(cl, 10, 64)
		if err != nil || n < 0 {
			return nil, errors.NewMalformedRequestError("invalid Content-Length " + strconv.Quote(cl))
		}
		req.Body = make([]byte, n)
		if _, err := io.ReadFull(br, req.Body); err != nil {
			return nil, err
		}
	}

	return req, nil
}
