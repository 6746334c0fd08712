package directory

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/hupe1980/indexlib/status"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the codec a FileWriter applies to its payload.
type Compression uint8

const (
	// CompressionNone stores the payload as is.
	CompressionNone Compression = iota
	// CompressionZstd compresses the payload with zstd.
	CompressionZstd
	// CompressionLZ4 compresses the payload with the LZ4 frame format.
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression parses the names returned by Compression.String.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return CompressionNone, status.InvalidArgsf("unknown compression %q", s)
	}
}

// Compressed files start with headerMagic followed by one codec byte.
var headerMagic = [4]byte{'I', 'X', 'C', 0x01}

const headerSize = len(headerMagic) + 1

func writeHeader(w io.Writer, c Compression) error {
	var hdr [headerSize]byte
	copy(hdr[:], headerMagic[:])
	hdr[len(headerMagic)] = byte(c)
	_, err := w.Write(hdr[:])
	return err
}

type nopFlushCloser struct{ io.Writer }

func (nopFlushCloser) Close() error { return nil }

func newCompressor(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressionNone:
		return nopFlushCloser{w}, nil
	case CompressionZstd:
		if err := writeHeader(w, c); err != nil {
			return nil, err
		}
		return zstd.NewWriter(w)
	case CompressionLZ4:
		if err := writeHeader(w, c); err != nil {
			return nil, err
		}
		return lz4.NewWriter(w), nil
	default:
		return nil, status.InvalidArgsf("unknown compression %d", c)
	}
}

// newDecompressor sniffs the header and returns a reader over the payload.
func newDecompressor(r io.Reader) (io.ReadCloser, Compression, error) {
	br := bufio.NewReader(r)

	hdr, err := br.Peek(headerSize)
	if err != nil || !bytes.Equal(hdr[:len(headerMagic)], headerMagic[:]) {
		return io.NopCloser(br), CompressionNone, nil
	}

	c := Compression(hdr[len(headerMagic)])
	if _, err := br.Discard(headerSize); err != nil {
		return nil, CompressionNone, err
	}

	switch c {
	case CompressionZstd:
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, c, err
		}
		return dec.IOReadCloser(), c, nil
	case CompressionLZ4:
		return io.NopCloser(lz4.NewReader(br)), c, nil
	default:
		return nil, c, status.Corruptf("unknown compression codec %d", c)
	}
}
