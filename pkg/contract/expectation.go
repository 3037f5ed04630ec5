package contract

import (
	"net/http"
)

// DefaultVersion is the protocol version expected when none is given
const DefaultVersion = "HTTP/1.1"

// Expectation describes the response a request must produce.
//
// Zero values select the defaults:
//   - Version: DefaultVersion
//   - Reason: http.StatusText(Status)
//   - ContentType: "" means the response must carry no Content-Type at all
//   - Body: Equal("")
//   - Length: the byte length of an Equal body unless DecodeContent is set,
//     BodyLength otherwise
type Expectation struct {
	Version     string
	Status      int
	Reason      string
	ContentType string
	Body        BodyMatcher
	Length      LengthPolicy

	// DecodeContent matches Body against the payload after removing its
	// Content-Encoding. Framing checks always use the payload as sent.
	DecodeContent bool

	// StrictFraming rejects any Transfer-Encoding next to an expected
	// Content-Length. By default a chunked coding is tolerated there.
	StrictFraming bool

	// AllowUnframed accepts a response with neither Content-Length nor
	// Transfer-Encoding under NoLength, such as a 304 Not Modified.
	AllowUnframed bool
}

// Expect returns an Expectation for status with the given content type and
// exact body; the expected Content-Length is the byte length of body, not of
// whatever the server sent
func Expect(status int, contentType, body string) Expectation {
	return Expectation{
		Status:      status,
		ContentType: contentType,
		Body:        Equal(body),
		Length:      FixedLength(len(body)),
	}
}

// ExpectNoContent returns an Expectation for an empty response without a
// Content-Type that declares Content-Length: 0. Interim statuses and 204 are
// the exception: they must declare no length at all, since an HTTP/1.1
// server may not send Content-Length with them.
func ExpectNoContent(status int) Expectation {
	exp := Expectation{Status: status, Length: FixedLength(0)}
	if bodyless(status) {
		exp.Length = NoLength
	}
	return exp
}

// bodyless reports whether status is exempt from chunked framing when no
// length is declared. 304 is not: a body-free 304 without Transfer-Encoding
// fails under NoLength unless the Expectation sets AllowUnframed.
func bodyless(status int) bool {
	return status < 200 || status == 204
}

func (e Expectation) withDefaults() Expectation {
	if e.Version == "" {
		e.Version = DefaultVersion
	}
	if e.Reason == "" {
		e.Reason = http.StatusText(e.Status)
	}
	if e.Body == nil {
		e.Body = Equal("")
	}
	if e.Length == nil {
		e.Length = BodyLength
		if m, ok := e.Body.(equalMatcher); ok && !e.DecodeContent {
			e.Length = FixedLength(len(m.want))
		}
	}
	return e
}

// LengthPolicy decides the Content-Length a response must declare, given the
// payload that was actually received. ok=false means no length may be
// declared and the body must be chunked instead.
type LengthPolicy interface {
	ExpectedLength(payload string) (n int, ok bool)
}

// LengthFunc adapts a function to a LengthPolicy
type LengthFunc func(payload string) (int, bool)

func (f LengthFunc) ExpectedLength(payload string) (int, bool) {
	return f(payload)
}

var (
	// BodyLength expects Content-Length to equal the received payload size.
	// A Content-Length framed payload always satisfies it, so it only
	// checks that a length was declared and agrees across repeated fields.
	BodyLength LengthPolicy = LengthFunc(func(payload string) (int, bool) { return len(payload), true })

	// NoLength expects chunked framing and no Content-Length
	NoLength LengthPolicy = LengthFunc(func(string) (int, bool) { return 0, false })
)

// FixedLength expects Content-Length: n regardless of the payload
func FixedLength(n int) LengthPolicy {
	return LengthFunc(func(string) (int, bool) { return n, true })
}
