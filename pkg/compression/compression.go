// Package compression decodes and encodes HTTP content codings.
package compression

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// CompressionType represents supported compression algorithms
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionGzip
	CompressionDeflate
	CompressionBrotli
	CompressionZstd
	CompressionUnknown
)

func (ct CompressionType) String() string {
	switch ct {
	case CompressionNone:
		return "identity"
	case CompressionGzip:
		return "gzip"
	case CompressionDeflate:
		return "deflate"
	case CompressionBrotli:
		return "br"
	case CompressionZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// DetectCompression maps a single Content-Encoding token to a CompressionType
func DetectCompression(contentEncoding string) CompressionType {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "gzip", "x-gzip":
		return CompressionGzip
	case "deflate", "x-deflate":
		return CompressionDeflate
	case "br", "brotli":
		return CompressionBrotli
	case "zstd", "zstandard":
		return CompressionZstd
	case "identity", "":
		return CompressionNone
	default:
		return CompressionUnknown
	}
}

// Decompress decompresses data based on the compression type
func Decompress(data []byte, compressionType CompressionType) ([]byte, error) {
	if len(data) == 0 || compressionType == CompressionNone {
		return data, nil
	}

	r, err := NewDecompressReader(bytes.NewReader(data), compressionType)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("compression: %s decode: %w", compressionType, err)
	}
	return out, nil
}

// DecodeContent undoes a Content-Encoding field value. Codings are listed in
// the order they were applied, so they are removed right to left.
func DecodeContent(data []byte, contentEncoding string) ([]byte, error) {
	codings := strings.Split(contentEncoding, ",")
	for i := len(codings) - 1; i >= 0; i-- {
		ct := DetectCompression(codings[i])
		if ct == CompressionUnknown {
			return nil, fmt.Errorf("compression: unsupported content coding %q", strings.TrimSpace(codings[i]))
		}

		var err error
		if data, err = Decompress(data, ct); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// Compress compresses data using the specified algorithm
func Compress(data []byte, compressionType CompressionType) ([]byte, error) {
	if compressionType == CompressionNone {
		return data, nil
	}

	var buf bytes.Buffer
	w, err := NewCompressWriter(&buf, compressionType)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compression: %s encode: %w", compressionType, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compression: %s encode: %w", compressionType, err)
	}
	return buf.Bytes(), nil
}

// NewDecompressReader creates a streaming decompression reader
func NewDecompressReader(r io.Reader, compressionType CompressionType) (io.ReadCloser, error) {
	switch compressionType {
	case CompressionNone:
		return io.NopCloser(r), nil
	case CompressionGzip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("compression: gzip reader: %w", err)
		}
		return gr, nil
	case CompressionDeflate:
		return newDeflateReader(r)
	case CompressionBrotli:
		return io.NopCloser(brotli.NewReader(r)), nil
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("compression: zstd reader: %w", err)
		}
		return zr.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("compression: unsupported compression type %s", compressionType)
	}
}

// NewCompressWriter creates a streaming compression writer.
// Close must be called to flush the final block.
func NewCompressWriter(w io.Writer, compressionType CompressionType) (io.WriteCloser, error) {
	switch compressionType {
	case CompressionGzip:
		return gzip.NewWriter(w), nil
	case CompressionDeflate:
		return zlib.NewWriter(w), nil
	case CompressionBrotli:
		return brotli.NewWriter(w), nil
	case CompressionZstd:
		return zstd.NewWriter(w)
	default:
		return nil, fmt.Errorf("compression: unsupported compression type %s", compressionType)
	}
}

// newDeflateReader reads the "deflate" coding, which is a zlib stream. Some
// servers send raw DEFLATE under that name, so a stream without a zlib
// header is read as raw DEFLATE.
func newDeflateReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	if hdr, err := br.Peek(2); err == nil && isZlibHeader(hdr[0], hdr[1]) {
		zr, err := zlib.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("compression: deflate reader: %w", err)
		}
		return zr, nil
	}
	return flate.NewReader(br), nil
}

// isZlibHeader reports whether cmf and flg form a zlib header (RFC 1950)
// using the DEFLATE method
func isZlibHeader(cmf, flg byte) bool {
	return cmf&0x0f == 8 && cmf>>4 <= 7 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}
