// Package codec wraps file streams with the compression formats large DOM
// captures are commonly stored in. The format is chosen from the file
// extension so every tool reads and writes compressed documents transparently.
package codec

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	apperrors "github.com/mcncl/domtools/internal/errors"
)

// Type identifies a compression format.
type Type string

const (
	None Type = "none"
	Zstd Type = "zstd"
	S2   Type = "s2"
	LZ4  Type = "lz4"
)

var extensions = map[Type]string{
	None: "",
	Zstd: ".zst",
	S2:   ".s2",
	LZ4:  ".lz4",
}

// Parse resolves a codec name as given on the command line.
func Parse(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return None, nil
	case "zstd", "zst":
		return Zstd, nil
	case "s2":
		return S2, nil
	case "lz4":
		return LZ4, nil
	default:
		return None, apperrors.NewArgumentError(fmt.Sprintf("unknown codec %q (want none, zstd, s2 or lz4)", name), apperrors.ErrUnknownCodec)
	}
}

// Detect picks the codec from a file name's extension.
func Detect(path string) Type {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return Zstd
	case ".s2":
		return S2
	case ".lz4":
		return LZ4
	default:
		return None
	}
}

// Extension returns the file suffix written for t ("" for None).
func (t Type) Extension() string {
	return extensions[t]
}

// NewReader returns a reader that decompresses r. Closing it releases the
// decoder but not r.
func NewReader(r io.Reader, t Type) (io.ReadCloser, error) {
	switch t {
	case None:
		return io.NopCloser(r), nil
	case Zstd:
		dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		return dec.IOReadCloser(), nil
	case S2:
		return io.NopCloser(s2.NewReader(r)), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownCodec, t)
	}
}

// NewWriter returns a writer that compresses into w. Close flushes the
// compressed stream but does not close w.
func NewWriter(w io.Writer, t Type) (io.WriteCloser, error) {
	switch t {
	case None:
		return nopWriteCloser{w}, nil
	case Zstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		return enc, nil
	case S2:
		return s2.NewWriter(w), nil
	case LZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownCodec, t)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
