package headers

import (
	"bufio"
	stderrors "errors"
	"io"
	"strings"
	"testing"

	"github.com/WhileEndless/go-httpcontract/pkg/errors"
)

func TestOrderedHeaders_Basic(t *testing.T) {
	h := NewOrderedHeaders()

	h.Set("Content-Type", "application/json")
	h.Set("X-Test", "value")

	if got := h.Get("Content-Type"); got != "application/json" {
		t.Errorf("Expected 'application/json', got '%s'", got)
	}

	if got := h.Get("X-Test"); got != "value" {
		t.Errorf("Expected 'value', got '%s'", got)
	}

	if got := h.Get("Missing"); got != "" {
		t.Errorf("Expected empty value for missing header, got '%s'", got)
	}
}

func TestOrderedHeaders_CaseInsensitive(t *testing.T) {
	h := NewOrderedHeaders()
	h.Set("Content-Type", "application/json")

	if got := h.Get("content-type"); got != "application/json" {
		t.Errorf("Case insensitive lookup failed")
	}

	if got := h.Get("CONTENT-TYPE"); got != "application/json" {
		t.Errorf("Case insensitive lookup failed")
	}

	if got := h.GetRaw("content-type"); got != "Content-Type" {
		t.Errorf("Expected 'Content-Type', got '%s'", got)
	}
}

func TestOrderedHeaders_OrderPreservation(t *testing.T) {
	h := NewOrderedHeaders()

	h.Set("Host", "localhost:8080")
	h.Set("User-Agent", "test")
	h.Set("Content-Type", "text/plain")
	h.Set("Content-Length", "5")

	all := h.All()
	expected := []string{"Host", "User-Agent", "Content-Type", "Content-Length"}

	if len(all) != len(expected) {
		t.Fatalf("Expected %d headers, got %d", len(expected), len(all))
	}

	for i, header := range all {
		if header.Name != expected[i] {
			t.Errorf("Order mismatch at position %d: expected '%s', got '%s'",
				i, expected[i], header.Name)
		}
	}
}

func TestOrderedHeaders_SetReplacesDuplicates(t *testing.T) {
	h := NewOrderedHeaders()
	h.Add("Accept", "text/plain")
	h.Add("X-Multi", "one")
	h.Add("X-Multi", "two")
	h.Add("Connection", "keep-alive")

	h.Set("x-multi", "three")

	if h.Len() != 3 {
		t.Fatalf("Expected 3 headers after Set, got %d", h.Len())
	}
	if got := h.Values("X-Multi"); len(got) != 1 || got[0] != "three" {
		t.Errorf("Values = %v, want [three]", got)
	}
	if got := h.All()[1].Name; got != "x-multi" {
		t.Errorf("Replaced header moved or kept old name: got '%s' at position 1", got)
	}
}

func TestOrderedHeaders_AddKeepsRepeats(t *testing.T) {
	h := NewOrderedHeaders()
	h.Add("Transfer-Encoding", "gzip")
	h.Add("Transfer-Encoding", "chunked")

	values := h.Values("transfer-encoding")
	if len(values) != 2 || values[0] != "gzip" || values[1] != "chunked" {
		t.Errorf("Values = %v, want [gzip chunked]", values)
	}
	if got := h.Get("Transfer-Encoding"); got != "gzip" {
		t.Errorf("Get should return the first value, got '%s'", got)
	}
}

func TestOrderedHeaders_Delete(t *testing.T) {
	h := NewOrderedHeaders()
	h.Add("X-Drop", "1")
	h.Set("Keep", "this")
	h.Add("x-drop", "2")

	h.Del("X-Drop")

	if h.Has("X-Drop") {
		t.Error("Header not deleted")
	}

	if !h.Has("Keep") {
		t.Error("Other headers should remain")
	}

	if h.Len() != 1 {
		t.Errorf("Expected 1 header after delete, got %d", h.Len())
	}
}

func TestOrderedHeaders_Clone(t *testing.T) {
	h := NewOrderedHeaders()
	h.Set("A", "1")

	clone := h.Clone()
	clone.Set("A", "2")
	clone.Set("B", "3")

	if h.Get("A") != "1" || h.Has("B") {
		t.Error("Clone shares state with the original")
	}
}

func TestParseHeaders_FaultTolerant(t *testing.T) {
	raw := "Host: example.com\r\nnot a header line\r\nX-Empty:\r\nX-Spaced:   padded  \r\n\r\nIgnored: after end"

	h := ParseHeaders([]byte(raw))

	if h.Len() != 3 {
		t.Fatalf("Expected 3 headers, got %d", h.Len())
	}
	if got := h.Get("X-Spaced"); got != "padded" {
		t.Errorf("Expected trimmed value, got '%s'", got)
	}
	if !h.Has("X-Empty") {
		t.Error("Empty-valued header dropped")
	}
	if h.Has("Ignored") {
		t.Error("Parsed past the end of the header section")
	}
}

func TestReadHeaders(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("Content-Type: text/plain\r\nContent-Length: 2\r\nX-Bare: lf only\n\r\nok"))

	h, err := ReadHeaders(br, 0)
	if err != nil {
		t.Fatalf("ReadHeaders failed: %v", err)
	}
	if h.Len() != 3 {
		t.Errorf("Expected 3 headers, got %d", h.Len())
	}
	if got := h.Get("X-Bare"); got != "lf only" {
		t.Errorf("Expected 'lf only', got '%s'", got)
	}

	rest, _ := io.ReadAll(br)
	if string(rest) != "ok" {
		t.Errorf("ReadHeaders consumed past the header section: rest = %q", rest)
	}
}

func TestReadHeaders_Strict(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no colon", "Broken\r\n\r\n"},
		{"space in name", "Bad Name: x\r\n\r\n"},
		{"obs-fold", "X-A: 1\r\n continued\r\n\r\n"},
		{"control char in value", "X-A: a\x01b\r\n\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadHeaders(bufio.NewReader(strings.NewReader(tt.raw)), 0)
			if !errors.IsMalformedResponse(err) {
				t.Errorf("Expected malformed response error, got %v", err)
			}
		})
	}
}

func TestReadHeaders_Limits(t *testing.T) {
	raw := "X-Long: " + strings.Repeat("a", 100) + "\r\n\r\n"
	_, err := ReadHeaders(bufio.NewReader(strings.NewReader(raw)), 64)
	if !errors.IsMalformedResponse(err) {
		t.Errorf("Expected malformed response error for oversized section, got %v", err)
	}

	_, err = ReadHeaders(bufio.NewReader(strings.NewReader("X-A: 1\r\n")), 0)
	if !stderrors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF for truncated section, got %v", err)
	}
}

func TestBuild(t *testing.T) {
	h := NewOrderedHeaders()
	h.Set("Host", "localhost")
	h.Add("X-Multi", "1")
	h.Add("X-Multi", "2")

	want := "Host: localhost\r\nX-Multi: 1\r\nX-Multi: 2\r\n"
	if got := string(h.Build()); got != want {
		t.Errorf("Build() = %q, want %q", got, want)
	}
}
