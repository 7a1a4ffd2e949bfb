package codec

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/mcncl/domtools/internal/errors"
)

func TestRoundTrip(t *testing.T) {
	payload := []byte(strings.Repeat(`{"nodeName":"DIV","nodeType":1,"children":[]},`, 200))

	for _, typ := range []Type{None, Zstd, S2, LZ4} {
		t.Run(string(typ), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(&buf, typ)
			require.NoError(t, err)
			_, err = w.Write(payload)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			if typ != None {
				assert.Less(t, buf.Len(), len(payload), "repetitive input should shrink")
			}

			r, err := NewReader(&buf, typ)
			require.NoError(t, err)
			defer func() { _ = r.Close() }()

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, payload, got)
		})
	}
}

func TestDetect(t *testing.T) {
	tests := map[string]Type{
		"capture.json":      None,
		"capture.json.zst":  Zstd,
		"capture.json.ZSTD": Zstd,
		"capture.json.s2":   S2,
		"capture.json.lz4":  LZ4,
		"-":                 None,
	}
	for path, expected := range tests {
		assert.Equal(t, expected, Detect(path), path)
	}
}

func TestParse(t *testing.T) {
	typ, err := Parse("ZSTD")
	require.NoError(t, err)
	assert.Equal(t, Zstd, typ)

	typ, err = Parse("")
	require.NoError(t, err)
	assert.Equal(t, None, typ)

	_, err = Parse("brotli")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnknownCodec)
	assert.Equal(t, 2, apperrors.ExitCode(err))
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "", None.Extension())
	assert.Equal(t, ".zst", Zstd.Extension())
	assert.Equal(t, ".s2", S2.Extension())
	assert.Equal(t, ".lz4", LZ4.Extension())
}
