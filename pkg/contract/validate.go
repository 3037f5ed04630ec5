// Package contract checks a received HTTP response against an Expectation.
//
// Checks run in a fixed order and stop at the first mismatch:
// protocol version, status, content type, body materialization, framing
// headers, then content.
package contract

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/WhileEndless/go-httpcontract/pkg/errors"
	"github.com/WhileEndless/go-httpcontract/pkg/response"
)

// Check identifies one step of validation
type Check int

const (
	CheckVersion Check = iota
	CheckStatus
	CheckContentType
	CheckBody
	CheckFraming
	CheckContent
)

func (c Check) String() string {
	switch c {
	case CheckVersion:
		return "protocol version"
	case CheckStatus:
		return "status"
	case CheckContentType:
		return "content type"
	case CheckBody:
		return "body"
	case CheckFraming:
		return "content framing"
	case CheckContent:
		return "content"
	default:
		return "unknown"
	}
}

// Violation describes the first check a response failed
type Violation struct {
	Check    Check
	Expected string
	Actual   string
	// Detail is a diff of expected and actual content, when one is available
	Detail string
}

func (v *Violation) Error() string {
	msg := fmt.Sprintf("%s mismatch: expected %s, got %s", v.Check, v.Expected, v.Actual)
	if v.Detail != "" {
		msg += "\n" + v.Detail
	}
	return msg
}

// AsViolation extracts the Violation from an error returned by Validate
func AsViolation(err error) (*Violation, bool) {
	var v *Violation
	if stderrors.As(err, &v) {
		return v, true
	}
	return nil, false
}

// Validate checks resp against exp and returns nil if it conforms. A failed
// check is reported as a contract violation wrapping a *Violation.
func Validate(resp *response.Response, exp Expectation) error {
	if v := check(resp, exp.withDefaults()); v != nil {
		return errors.NewError(errors.ErrorTypeContractViolation,
			"response failed "+v.Check.String()+" check", resp.StatusLine(), v)
	}
	return nil
}

func check(resp *response.Response, exp Expectation) *Violation {
	if resp.Version != exp.Version {
		return &Violation{Check: CheckVersion, Expected: exp.Version, Actual: resp.Version}
	}

	if resp.StatusCode != exp.Status || resp.StatusText != exp.Reason {
		return &Violation{
			Check:    CheckStatus,
			Expected: strconv.Quote(strconv.Itoa(exp.Status) + " " + exp.Reason),
			Actual:   strconv.Quote(strconv.Itoa(resp.StatusCode) + " " + resp.StatusText),
		}
	}

	if v := checkContentType(resp, exp.ContentType); v != nil {
		return v
	}

	content, err := resp.Content(exp.DecodeContent)
	if err != nil {
		return &Violation{
			Check:    CheckBody,
			Expected: "decodable content",
			Actual:   "Content-Encoding " + strconv.Quote(resp.GetContentEncoding()),
			Detail:   err.Error(),
		}
	}

	if v := checkFraming(resp, exp); v != nil {
		return v
	}

	body := string(content)
	if !exp.Body.Matches(body) {
		v := &Violation{Check: CheckContent, Expected: exp.Body.String(), Actual: strconv.Quote(body)}
		if d, ok := exp.Body.(differ); ok {
			v.Detail = d.Diff(body)
		}
		return v
	}
	return nil
}

func checkContentType(resp *response.Response, want string) *Violation {
	has := resp.Headers.Has("Content-Type")
	got := resp.GetContentType()

	switch {
	case want == "" && has:
		return &Violation{Check: CheckContentType, Expected: "no Content-Type", Actual: strconv.Quote(got)}
	case want != "" && !has:
		return &Violation{Check: CheckContentType, Expected: strconv.Quote(want), Actual: "no Content-Type"}
	case want != "" && got != want:
		return &Violation{Check: CheckContentType, Expected: strconv.Quote(want), Actual: strconv.Quote(got)}
	}
	return nil
}

func checkFraming(resp *response.Response, exp Expectation) *Violation {
	cl, hasCL := resp.GetContentLength()
	te := resp.TransferEncoding()

	n, declared := exp.Length.ExpectedLength(string(resp.Body))
	if declared {
		want := strconv.Itoa(n)
		if !hasCL {
			return &Violation{Check: CheckFraming, Expected: "Content-Length: " + want, Actual: "no Content-Length"}
		}
		for _, v := range resp.Headers.Values("Content-Length") {
			if strings.TrimSpace(v) != want {
				return &Violation{Check: CheckFraming, Expected: "Content-Length: " + want, Actual: "Content-Length: " + cl}
			}
		}
		for _, v := range te {
			if exp.StrictFraming || !strings.EqualFold(strings.TrimSpace(v), "chunked") {
				return &Violation{
					Check:    CheckFraming,
					Expected: "Content-Length framing only",
					Actual:   "Transfer-Encoding: " + strings.Join(te, ", "),
				}
			}
		}
		return nil
	}

	if hasCL {
		return &Violation{Check: CheckFraming, Expected: "no Content-Length", Actual: "Content-Length: " + cl}
	}
	if bodyless(resp.StatusCode) || (exp.AllowUnframed && len(te) == 0) {
		return nil
	}
	if len(te) == 0 || !strings.EqualFold(strings.TrimSpace(te[0]), "chunked") {
		actual := "no Transfer-Encoding"
		if len(te) > 0 {
			actual = "Transfer-Encoding: " + strings.Join(te, ", ")
		}
		return &Violation{Check: CheckFraming, Expected: "Transfer-Encoding: chunked", Actual: actual}
	}
	return nil
}
