package contract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// BodyMatcher is a predicate over a materialized response body
type BodyMatcher interface {
	Matches(body string) bool
	fmt.Stringer
}

// differ is implemented by matchers that can explain a mismatch
type differ interface {
	Diff(body string) string
}

type equalMatcher struct{ want string }

// Equal matches a body that is exactly want
func Equal(want string) BodyMatcher { return equalMatcher{want} }

func (m equalMatcher) Matches(body string) bool { return body == m.want }
func (m equalMatcher) String() string          { return strconv.Quote(m.want) }
func (m equalMatcher) Diff(body string) string  { return cmp.Diff(m.want, body) }

type foldMatcher struct{ want string }

// EqualFold matches want ignoring case
func EqualFold(want string) BodyMatcher { return foldMatcher{want} }

func (m foldMatcher) Matches(body string) bool { return strings.EqualFold(body, m.want) }
func (m foldMatcher) String() string          { return "equal ignoring case to " + strconv.Quote(m.want) }

type containsMatcher struct{ sub string }

// Contains matches a body containing sub
func Contains(sub string) BodyMatcher { return containsMatcher{sub} }

func (m containsMatcher) Matches(body string) bool { return strings.Contains(body, m.sub) }
func (m containsMatcher) String() string          { return "containing " + strconv.Quote(m.sub) }

type prefixMatcher struct{ prefix string }

// HasPrefix matches a body starting with prefix
func HasPrefix(prefix string) BodyMatcher { return prefixMatcher{prefix} }

func (m prefixMatcher) Matches(body string) bool { return strings.HasPrefix(body, m.prefix) }
func (m prefixMatcher) String() string          { return "starting with " + strconv.Quote(m.prefix) }

type regexpMatcher struct{ re *regexp.Regexp }

// Regexp matches a body against a regular expression. It panics if expr
// does not compile, like regexp.MustCompile.
func Regexp(expr string) BodyMatcher { return regexpMatcher{regexp.MustCompile(expr)} }

func (m regexpMatcher) Matches(body string) bool { return m.re.MatchString(body) }
func (m regexpMatcher) String() string          { return "matching /" + m.re.String() + "/" }

type anyMatcher struct{}

// Any matches every body
func Any() BodyMatcher { return anyMatcher{} }

func (anyMatcher) Matches(string) bool { return true }
func (anyMatcher) String() string      { return "anything" }

type allMatcher []BodyMatcher

// AllOf matches when every matcher does
func AllOf(matchers ...BodyMatcher) BodyMatcher { return allMatcher(matchers) }

func (m allMatcher) Matches(body string) bool {
	for _, matcher := range m {
		if !matcher.Matches(body) {
			return false
		}
	}
	return true
}

func (m allMatcher) String() string {
	parts := make([]string, len(m))
	for i, matcher := range m {
		parts[i] = matcher.String()
	}
	return "all of (" + strings.Join(parts, ", ") + ")"
}

type jsonMatcher struct {
	raw  string
	want any
}

// ParseJSONEqual returns a matcher for a body that decodes to the same JSON
// value as want, ignoring formatting and object key order.
func ParseJSONEqual(want string) (BodyMatcher, error) {
	var v any
	if err := json.Unmarshal([]byte(want), &v); err != nil {
		return nil, fmt.Errorf("contract: invalid expected JSON: %w", err)
	}
	return jsonMatcher{raw: want, want: v}, nil
}

// JSONEqual is like ParseJSONEqual but panics if want is not JSON
func JSONEqual(want string) BodyMatcher {
	m, err := ParseJSONEqual(want)
	if err != nil {
		panic(err)
	}
	return m
}

func (m jsonMatcher) decode(body string) (any, bool) {
	var got any
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		return nil, false
	}
	return got, true
}

func (m jsonMatcher) Matches(body string) bool {
	got, ok := m.decode(body)
	return ok && cmp.Equal(m.want, got)
}

func (m jsonMatcher) String() string { return "JSON equal to " + m.raw }

func (m jsonMatcher) Diff(body string) string {
	got, ok := m.decode(body)
	if !ok {
		return "body is not valid JSON"
	}
	return cmp.Diff(m.want, got)
}
