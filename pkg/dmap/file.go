package dmap

import (
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/openradar/darnio/pkg/models"
)

// Compression selects the codec wrapped around an encoded buffer on
// write. Compression is opaque to the record codec itself.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	bz2Magic  = []byte("BZh")
)

// Decompress returns the plain bytes of raw, transparently unwrapping
// gzip, zstd or bzip2 by magic-number sniffing. Unrecognized input is
// returned as-is.
func Decompress(raw []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(raw, gzipMagic):
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("dmap: gzip: %w", err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case bytes.HasPrefix(raw, zstdMagic):
		zr, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("dmap: zstd: %w", err)
		}
		defer zr.Close()
		return zr.DecodeAll(raw, nil)
	case bytes.HasPrefix(raw, bz2Magic):
		return io.ReadAll(bzip2.NewReader(bytes.NewReader(raw)))
	}
	return raw, nil
}

// Compress wraps buf with the chosen codec. bzip2 is sniffed on read for
// archive compatibility but never produced.
func Compress(buf []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone, "":
		return buf, nil
	case CompressionGzip:
		var out bytes.Buffer
		zw := gzip.NewWriter(&out)
		if _, err := zw.Write(buf); err != nil {
			return nil, fmt.Errorf("dmap: gzip: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("dmap: gzip: %w", err)
		}
		return out.Bytes(), nil
	case CompressionZstd:
		zw, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("dmap: zstd: %w", err)
		}
		defer zw.Close()
		return zw.EncodeAll(buf, nil), nil
	}
	return nil, fmt.Errorf("dmap: unknown compression %q", c)
}

// ReadFile decodes every record in the file at path, unwrapping any
// recognized compression first.
func ReadFile(path string, opts ...Option) ([]*models.Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	buf, err := Decompress(raw)
	if err != nil {
		return nil, fmt.Errorf("dmap: %s: %w", path, err)
	}
	return DecodeAll(buf, opts...)
}

// WriteFile encodes recs and writes them to path with the chosen
// compression.
func WriteFile(path string, recs []*models.Record, c Compression) error {
	buf, err := EncodeAll(recs)
	if err != nil {
		return err
	}
	out, err := Compress(buf, c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}
