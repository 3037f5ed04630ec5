package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchers(t *testing.T) {
	tests := []struct {
		name    string
		matcher BodyMatcher
		match   []string
		reject  []string
	}{
		{"equal", Equal("ok"), []string{"ok"}, []string{"OK", "ok ", ""}},
		{"equal empty", Equal(""), []string{""}, []string{" "}},
		{"fold", EqualFold("Hello"), []string{"hello", "HELLO"}, []string{"hell"}},
		{"contains", Contains("ell"), []string{"hello", "ell"}, []string{"hel"}},
		{"prefix", HasPrefix("he"), []string{"hello", "he"}, []string{"the"}},
		{"regexp", Regexp(`^id=\d+$`), []string{"id=42"}, []string{"id=", "xid=1"}},
		{"any", Any(), []string{"", "anything"}, nil},
		{"all", AllOf(HasPrefix("a"), Contains("b")), []string{"ab", "acb"}, []string{"ba", "ac"}},
		{"json", JSONEqual(`{"a":[1,2],"b":null}`), []string{`{ "b": null, "a": [1, 2] }`}, []string{`{"a":[2,1],"b":null}`, "not json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, body := range tt.match {
				assert.True(t, tt.matcher.Matches(body), "%s should match %q", tt.matcher, body)
			}
			for _, body := range tt.reject {
				assert.False(t, tt.matcher.Matches(body), "%s should reject %q", tt.matcher, body)
			}
		})
	}
}

func TestJSONEqualPanicsOnInvalidJSON(t *testing.T) {
	assert.Panics(t, func() { JSONEqual("{") })
}

func TestParseJSONEqual(t *testing.T) {
	_, err := ParseJSONEqual(`{"a":`)
	assert.Error(t, err)

	m, err := ParseJSONEqual(`{"a": [1, 2]}`)
	require.NoError(t, err)
	assert.True(t, m.Matches(`{"a":[1,2]}`))
	assert.False(t, m.Matches(`{"a":[2,1]}`))
}

func TestLengthPolicies(t *testing.T) {
	n, ok := BodyLength.ExpectedLength("héllo")
	assert.True(t, ok)
	assert.Equal(t, 6, n)

	_, ok = NoLength.ExpectedLength("hello")
	assert.False(t, ok)

	n, ok = FixedLength(3).ExpectedLength("hello")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	half := LengthFunc(func(p string) (int, bool) { return len(p) / 2, true })
	n, _ = half.ExpectedLength("abcd")
	assert.Equal(t, 2, n)
}

func TestExpectationDefaults(t *testing.T) {
	exp := Expectation{Status: 404}.withDefaults()

	assert.Equal(t, "HTTP/1.1", exp.Version)
	assert.Equal(t, "Not Found", exp.Reason)
	assert.True(t, exp.Body.Matches(""))
	n, ok := exp.Length.ExpectedLength("received")
	assert.True(t, ok)
	assert.Zero(t, n)

	// an exact body fixes the length unless it is matched after decoding
	exp = Expectation{Status: 200, Body: Equal("héllo")}.withDefaults()
	n, _ = exp.Length.ExpectedLength("x")
	assert.Equal(t, 6, n)

	exp = Expectation{Status: 200, Body: Equal("hello"), DecodeContent: true}.withDefaults()
	n, _ = exp.Length.ExpectedLength("xyz")
	assert.Equal(t, 3, n)

	n, ok = Expect(200, "text/plain", "hello").Length.ExpectedLength("hel")
	assert.True(t, ok)
	assert.Equal(t, 5, n)

	n, ok = ExpectNoContent(200).Length.ExpectedLength("abc")
	assert.True(t, ok)
	assert.Zero(t, n)
	_, ok = ExpectNoContent(204).Length.ExpectedLength("")
	assert.False(t, ok)
}
