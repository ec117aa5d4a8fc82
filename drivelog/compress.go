package drivelog

import (
	"compress/bzip2"
	"compress/gzip"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// -----------------------------------------------------------------------------
// Zstd Decompressor
// -----------------------------------------------------------------------------

// zstdDecompressor implements Decompressor for Zstandard streams.
type zstdDecompressor struct{}

// NewZstdDecompressor creates a zstd decompressor for .zst segment files.
func NewZstdDecompressor() Decompressor {
	return &zstdDecompressor{}
}

func (z *zstdDecompressor) Name() string {
	return "zstd"
}

func (z *zstdDecompressor) Extension() string {
	return ".zst"
}

func (z *zstdDecompressor) Decompress(r io.Reader) (io.ReadCloser, error) {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return decoder.IOReadCloser(), nil
}

// -----------------------------------------------------------------------------
// Gzip Decompressor
// -----------------------------------------------------------------------------

// gzipDecompressor implements Decompressor for gzip streams.
type gzipDecompressor struct{}

// NewGzipDecompressor creates a gzip decompressor for .gz segment files.
func NewGzipDecompressor() Decompressor {
	return &gzipDecompressor{}
}

func (g *gzipDecompressor) Name() string {
	return "gzip"
}

func (g *gzipDecompressor) Extension() string {
	return ".gz"
}

func (g *gzipDecompressor) Decompress(r io.Reader) (io.ReadCloser, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	return zr, nil
}

// -----------------------------------------------------------------------------
// Bzip2 Decompressor
// -----------------------------------------------------------------------------

// bzip2Decompressor implements Decompressor for bzip2 streams.
type bzip2Decompressor struct{}

// NewBzip2Decompressor creates a bzip2 decompressor for .bz2 segment files.
func NewBzip2Decompressor() Decompressor {
	return &bzip2Decompressor{}
}

func (b *bzip2Decompressor) Name() string {
	return "bzip2"
}

func (b *bzip2Decompressor) Extension() string {
	return ".bz2"
}

func (b *bzip2Decompressor) Decompress(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(bzip2.NewReader(r)), nil
}

// -----------------------------------------------------------------------------
// NoOp Decompressor
// -----------------------------------------------------------------------------

// noopDecompressor implements Decompressor for uncompressed files.
type noopDecompressor struct{}

// NewNoOpDecompressor creates a passthrough decompressor.
func NewNoOpDecompressor() Decompressor {
	return &noopDecompressor{}
}

func (n *noopDecompressor) Name() string {
	return "noop"
}

func (n *noopDecompressor) Extension() string {
	return ""
}

func (n *noopDecompressor) Decompress(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

// -----------------------------------------------------------------------------
// Extension dispatch
// -----------------------------------------------------------------------------

// decompressorFor selects a decompressor from the reference's file
// extension. URL query strings and fragments are ignored. Unknown
// extensions pass through unchanged.
func decompressorFor(ref string) Decompressor {
	name := ref
	if strings.Contains(ref, "://") {
		if u, err := url.Parse(ref); err == nil {
			name = u.Path
		}
	}

	switch path.Ext(name) {
	case ".zst":
		return NewZstdDecompressor()
	case ".gz":
		return NewGzipDecompressor()
	case ".bz2":
		return NewBzip2Decompressor()
	default:
		return NewNoOpDecompressor()
	}
}
