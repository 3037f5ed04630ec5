package chunked

import (
	"bufio"
	stderrors "errors"
	"io"
	"strings"
	"testing"

	"github.com/WhileEndless/go-httpcontract/pkg/errors"
	"github.com/WhileEndless/go-httpcontract/pkg/headers"
)

func reader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestRead_Simple(t *testing.T) {
	input := "3\r\nfoo\r\n3\r\nbar\r\n0\r\n\r\n"
	body, err := Read(reader(input), 0)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if string(body.Data) != "foobar" {
		t.Errorf("Expected body %q, got %q", "foobar", body.Data)
	}
	if string(body.Raw) != input {
		t.Errorf("Expected raw %q, got %q", input, body.Raw)
	}
	if body.Trailers.Len() != 0 {
		t.Errorf("Expected no trailers, got %d", body.Trailers.Len())
	}
}

func TestRead_LeavesFollowingBytes(t *testing.T) {
	r := reader("2\r\nok\r\n0\r\n\r\nHTTP/1.1 200 OK\r\n")
	if _, err := Read(r, 0); err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	rest, _ := io.ReadAll(r)
	if string(rest) != "HTTP/1.1 200 OK\r\n" {
		t.Errorf("Expected next message to stay buffered, got %q", rest)
	}
}

func TestRead_WithTrailersAndExtensions(t *testing.T) {
	body, err := Read(reader("3;ext=val\r\nfoo\r\n0\r\nX-Checksum: abc123\r\n\r\n"), 0)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if string(body.Data) != "foo" {
		t.Errorf("Expected body %q, got %q", "foo", body.Data)
	}
	if got := body.Trailers.Get("x-checksum"); got != "abc123" {
		t.Errorf("Expected trailer X-Checksum=abc123, got %q", got)
	}
}

func TestRead_Truncated(t *testing.T) {
	for _, input := range []string{
		"",
		"5\r\nhel",
		"5\r\nhello\r\n",
		"5\r\nhello\r\n0\r\n",
	} {
		_, err := Read(reader(input), 0)
		if !stderrors.Is(err, io.ErrUnexpectedEOF) {
			t.Errorf("Read(%q) error = %v, want io.ErrUnexpectedEOF", input, err)
		}
	}
}

func TestRead_Malformed(t *testing.T) {
	for _, input := range []string{
		"zz\r\nfoo\r\n0\r\n\r\n",
		"-1\r\nfoo\r\n0\r\n\r\n",
		"3\r\nfooXX\r\n0\r\n\r\n",
	} {
		_, err := Read(reader(input), 0)
		if !errors.IsMalformedResponse(err) {
			t.Errorf("Read(%q) error = %v, want malformed response", input, err)
		}
	}
}

func TestRead_Limit(t *testing.T) {
	_, err := Read(reader("5\r\nhello\r\n5\r\nworld\r\n0\r\n\r\n"), 8)
	if !stderrors.Is(err, ErrBodyTooLarge) {
		t.Errorf("Read() error = %v, want ErrBodyTooLarge", err)
	}

	_, err = Read(reader("5\r\nhello\r\n7fffffffffffffff\r\nabc"), 8)
	if !stderrors.Is(err, ErrBodyTooLarge) {
		t.Errorf("Read() with overflowing size error = %v, want ErrBodyTooLarge", err)
	}
}

func TestRead_HugeSizeUnbounded(t *testing.T) {
	_, err := Read(reader("7fffffffffffffff\r\nabc"), 0)
	if !stderrors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Read() error = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestDecode_Simple(t *testing.T) {
	body, trailers := Decode([]byte("3\r\nfoo\r\n3\r\nbar\r\n0\r\n\r\n"))

	if string(body) != "foobar" {
		t.Errorf("Expected body %q, got %q", "foobar", body)
	}
	if trailers.Len() != 0 {
		t.Errorf("Expected no trailers, got %d", trailers.Len())
	}
}

func TestDecode_UnixLineEndings(t *testing.T) {
	body, _ := Decode([]byte("3\nfoo\n3\nbar\n0\n\n"))

	if string(body) != "foobar" {
		t.Errorf("Expected body %q, got %q", "foobar", body)
	}
}

func TestDecode_Malformed_InsufficientData(t *testing.T) {
	body, _ := Decode([]byte("a\r\nabc"))

	if string(body) != "abc" {
		t.Errorf("Expected partial body %q, got %q", "abc", body)
	}
}

func TestEncode_Simple(t *testing.T) {
	got := string(Encode([]byte("foobar"), 3))
	expected := "3\r\nfoo\r\n3\r\nbar\r\n0\r\n\r\n"

	if got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestEncode_Empty(t *testing.T) {
	if got := string(Encode(nil, 0)); got != "0\r\n\r\n" {
		t.Errorf("Expected only last-chunk, got %q", got)
	}
}

func TestEncodeWithTrailers(t *testing.T) {
	trailers := headers.NewOrderedHeaders()
	trailers.Set("X-Checksum", "abc")

	got := string(EncodeWithTrailers([]byte("hi"), 0, trailers))
	expected := "2\r\nhi\r\n0\r\nX-Checksum: abc\r\n\r\n"

	if got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestRoundTrip_VariousChunkSizes(t *testing.T) {
	data := []byte(strings.Repeat("0123456789", 100))

	for _, size := range []int{1, 7, 64, 1000, 5000} {
		encoded := Encode(data, size)

		body, err := Read(reader(string(encoded)), 0)
		if err != nil {
			t.Fatalf("chunk size %d: Read() error = %v", size, err)
		}
		if string(body.Data) != string(data) {
			t.Errorf("chunk size %d: round trip mismatch", size)
		}

		decoded, _ := Decode(encoded)
		if string(decoded) != string(data) {
			t.Errorf("chunk size %d: Decode mismatch", size)
		}
	}
}

func BenchmarkRead(b *testing.B) {
	encoded := string(Encode([]byte(strings.Repeat("x", 64*1024)), 4096))

	for i := 0; i < b.N; i++ {
		_, _ = Read(reader(encoded), 0)
	}
}
