package request

import (
	"bufio"
	"bytes"
	"strconv"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WhileEndless/go-httpcontract/pkg/errors"
	"github.com/WhileEndless/go-httpcontract/pkg/version"
)

func TestBuilderNoPayload(t *testing.T) {
	b := NewBuilder("localhost:8080")

	for _, req := range []*Request{b.Get("/echo"), b.Head("/echo"), b.Options("/echo"), b.Delete("/echo")} {
		assert.Equal(t, "localhost:8080", req.GetHost())
		assert.Equal(t, version.UserAgent(), req.Headers.Get("User-Agent"))
		assert.Equal(t, DefaultVersion, req.Version)
		assert.Nil(t, req.Body)
		assert.False(t, req.Headers.Has("Content-Length"))
		assert.False(t, req.Headers.Has("Content-Type"))
		require.NoError(t, req.Validate())
	}
}

func TestBuilderPayloadContentLength(t *testing.T) {
	b := NewBuilder("localhost:1")

	for _, payload := range []string{"", "hello", "héllo wörld", "日本語テキスト", string(bytes.Repeat([]byte("x"), 70000))} {
		req := b.Post("/echo", payload, "text/plain")

		assert.Equal(t, "text/plain", req.GetContentType())
		assert.Equal(t, strconv.Itoa(len(payload)), req.GetContentLength())
		assert.Equal(t, []byte(payload), req.Body)
		if utf8.RuneCountInString(payload) != len(payload) {
			assert.NotEqual(t, strconv.Itoa(utf8.RuneCountInString(payload)), req.GetContentLength(),
				"Content-Length must count bytes, not characters")
		}
		require.NoError(t, req.Validate())
	}
}

func TestBuilderMethods(t *testing.T) {
	b := NewBuilder("h")

	assert.Equal(t, MethodPut, b.Put("/", "x", "text/plain").Method)
	assert.Equal(t, MethodPatch, b.Patch("/", "x", "text/plain").Method)
	assert.Equal(t, MethodPost, b.Post("/", "x", "text/plain").Method)
	assert.Equal(t, MethodOptions, b.Options("/").Method)
}

func TestWithHeaderReplaces(t *testing.T) {
	req := NewBuilder("h").Get("/").WithHeader("Accept", "text/plain").WithHeader("accept", "application/json")

	assert.Equal(t, []string{"application/json"}, req.Headers.Values("Accept"))
}

func TestValidateMalformed(t *testing.T) {
	b := NewBuilder("h")

	tests := []struct {
		name string
		req  func() *Request
	}{
		{"body without content type", func() *Request {
			r := b.Get("/")
			r.Body = []byte("abc")
			r.Headers.Set("Content-Length", "3")
			return r
		}},
		{"body without content length", func() *Request {
			r := b.Post("/", "abc", "text/plain")
			r.Headers.Del("Content-Length")
			return r
		}},
		{"content length mismatch", func() *Request {
			return b.Post("/", "abc", "text/plain").WithHeader("Content-Length", "2")
		}},
		{"content length without body", func() *Request {
			return b.Get("/").WithHeader("Content-Length", "4")
		}},
		{"missing host", func() *Request {
			return New(MethodGet, "/")
		}},
		{"bad header name", func() *Request {
			return b.Get("/").WithHeader("Bad Name", "x")
		}},
		{"bad header value", func() *Request {
			return b.Get("/").WithHeader("X-Injected", "a\r\nb: c")
		}},
		{"empty target", func() *Request {
			return b.Get("")
		}},
		{"empty method", func() *Request {
			return b.NoPayload("", "/")
		}},
		{"chunked request", func() *Request {
			return b.Get("/").WithHeader("Transfer-Encoding", "chunked")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req().Validate()
			require.Error(t, err)
			assert.True(t, errors.IsMalformedRequest(err), "got %v", err)
		})
	}
}

func TestBytesAndRead(t *testing.T) {
	req := NewBuilder("localhost:9").Put("/things/1", `{"a":1}`, "application/json").WithHeader("X-Trace", "t1")

	raw := req.Bytes()
	assert.True(t, bytes.HasPrefix(raw, []byte("PUT /things/1 HTTP/1.1\r\nHost: localhost:9\r\n")))
	assert.True(t, bytes.HasSuffix(raw, []byte("\r\n\r\n{\"a\":1}")))

	parsed, err := Read(bufio.NewReader(bytes.NewReader(raw)))
	require.NoError(t, err)
	assert.Equal(t, req.Method, parsed.Method)
	assert.Equal(t, req.Target, parsed.Target)
	assert.Equal(t, req.Body, parsed.Body)
	assert.Equal(t, "t1", parsed.Headers.Get("x-trace"))
	assert.Equal(t, req.Headers.All(), parsed.Headers.All())
}

func TestCloneIsIndependent(t *testing.T) {
	req := NewBuilder("h").Post("/", "abc", "text/plain")
	clone := req.Clone()

	clone.Body[0] = 'z'
	clone.Headers.Set("Host", "other")

	assert.Equal(t, "abc", string(req.Body))
	assert.Equal(t, "h", req.GetHost())
}
