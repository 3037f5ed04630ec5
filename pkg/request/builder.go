package request

import (
	"github.com/WhileEndless/go-httpcontract/pkg/version"
)

// Builder produces requests addressed to one live server. Building never
// performs network I/O and never fails.
type Builder struct {
	host      string
	userAgent string
}

// NewBuilder creates a Builder that stamps every request with Host: host
func NewBuilder(host string) *Builder {
	return &Builder{host: host, userAgent: version.UserAgent()}
}

// Host returns the Host header value used by built requests
func (b *Builder) Host() string {
	return b.host
}

// NoPayload builds a request without a body
func (b *Builder) NoPayload(method Method, path string) *Request {
	req := New(method, path)
	req.Headers.Set("Host", b.host)
	if b.userAgent != "" {
		req.Headers.Set("User-Agent", b.userAgent)
	}
	return req
}

// Payload builds a request carrying payload as UTF-8 with the declared
// Content-Type and the exact byte length as Content-Length
func (b *Builder) Payload(method Method, path, payload, contentType string) *Request {
	req := b.NoPayload(method, path)
	req.SetBody([]byte(payload), contentType)
	return req
}

func (b *Builder) Options(path string) *Request { return b.NoPayload(MethodOptions, path) }

func (b *Builder) Head(path string) *Request { return b.NoPayload(MethodHead, path) }

func (b *Builder) Get(path string) *Request { return b.NoPayload(MethodGet, path) }

func (b *Builder) Delete(path string) *Request { return b.NoPayload(MethodDelete, path) }

func (b *Builder) Post(path, payload, contentType string) *Request {
	return b.Payload(MethodPost, path, payload, contentType)
}

func (b *Builder) Put(path, payload, contentType string) *Request {
	return b.Payload(MethodPut, path, payload, contentType)
}

func (b *Builder) Patch(path, payload, contentType string) *Request {
	return b.Payload(MethodPatch, path, payload, contentType)
}
