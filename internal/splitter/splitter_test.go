package splitter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/domtools/internal/codec"
	"github.com/mcncl/domtools/internal/encoder"
	apperrors "github.com/mcncl/domtools/internal/errors"
	"github.com/mcncl/domtools/internal/parser"
)

func newSplitter(t *testing.T, maxBytes int64) *Splitter {
	t.Helper()
	s, err := New(Options{MaxBytes: maxBytes})
	require.NoError(t, err)
	return s
}

func captureDoc(children int) string {
	var parts []string
	for i := 0; i < children; i++ {
		parts = append(parts, fmt.Sprintf(`{"nodeName":"DIV","nodeType":1,"id":"node-%03d","children":[]}`, i))
	}
	return `{"nodeName":"#document","nodeType":9,"children":[` + strings.Join(parts, ",") + `]}`
}

func canonical(t *testing.T, data []byte) string {
	t.Helper()
	doc, err := parser.ParseString(string(data))
	require.NoError(t, err)
	return string(encoder.Canonical(doc.Root))
}

func TestSplit_ObjectRoot(t *testing.T) {
	input := captureDoc(40)
	s := newSplitter(t, 400)

	chunks, err := s.Split([]byte(input))
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	total := 0
	for i, chunk := range chunks {
		assert.Equal(t, fmt.Sprintf("chunk_%04d.json", i+1), chunk.Name)
		assert.LessOrEqual(t, len(chunk.Data), 400)
		assert.True(t, strings.HasPrefix(string(chunk.Data), `{"nodeName":"#document","nodeType":9,"children":[`))
		total += chunk.Elements
	}
	assert.Equal(t, 40, total)
}

func TestSplit_ReassemblesInOrder(t *testing.T) {
	inputs := []string{
		captureDoc(25),
		`[1,"two",{"three":3},[4],null,true,"fi\"ve",6.50]`,
		`{"children":[],"meta":{"v":1}}`,
	}

	for _, input := range inputs {
		s := newSplitter(t, 64)
		chunks, err := s.Split([]byte(input))
		require.NoError(t, err)

		var data [][]byte
		for _, chunk := range chunks {
			data = append(data, chunk.Data)
		}
		joined, err := s.Join(data)
		require.NoError(t, err)
		assert.Equal(t, canonical(t, []byte(input)), canonical(t, joined), input)
	}
}

func TestSplit_FieldIsWrittenLast(t *testing.T) {
	s := newSplitter(t, 1024)
	chunks, err := s.Split([]byte(`{"children":[1,2],"nodeName":"BODY"}`))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, `{"nodeName":"BODY","children":[1,2]}`, string(chunks[0].Data))
}

func TestSplit_ElementBytesPreserved(t *testing.T) {
	input := `[ 1.50 , "<b>é</b>" , {"k" : 1e3} ]`
	s := newSplitter(t, 1024)

	chunks, err := s.Split([]byte(input))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, `[1.50,"<b>é</b>",{"k":1e3}]`, string(chunks[0].Data))
}

func TestSplit_OversizedElement(t *testing.T) {
	big := `"` + strings.Repeat("x", 200) + `"`
	input := `[1,` + big + `,2]`
	s := newSplitter(t, 50)

	chunks, err := s.Split([]byte(input))
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, `[1]`, string(chunks[0].Data))
	assert.Equal(t, `[`+big+`]`, string(chunks[1].Data))
	assert.Equal(t, `[2]`, string(chunks[2].Data))
}

func TestSplit_EmptyCollection(t *testing.T) {
	s := newSplitter(t, 50)
	chunks, err := s.Split([]byte(`{"nodeName":"HTML","children":[]}`))
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, `{"nodeName":"HTML","children":[]}`, string(chunks[0].Data))
	assert.Equal(t, 0, chunks[0].Elements)
}

func TestSplit_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		target error
	}{
		{"invalid json", `{"children":[`, apperrors.ErrInvalidJSON},
		{"scalar root", `"text"`, apperrors.ErrNotCollection},
		{"object without field", `{"nodeName":"A"}`, apperrors.ErrNotCollection},
		{"field is not an array", `{"children":{"a":1}}`, apperrors.ErrNotCollection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newSplitter(t, 100).Split([]byte(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestNew_RejectsNonPositiveSize(t *testing.T) {
	_, err := New(Options{MaxBytes: 0})
	require.Error(t, err)
	assert.Equal(t, 2, apperrors.ExitCode(err))
}

func TestSplit_NameWidthGrows(t *testing.T) {
	var items []string
	for i := 0; i < 10001; i++ {
		items = append(items, "1")
	}
	s := newSplitter(t, 3)
	chunks, err := s.Split([]byte("[" + strings.Join(items, ",") + "]"))
	require.NoError(t, err)
	require.Len(t, chunks, 10001)
	assert.Equal(t, "chunk_00001.json", chunks[0].Name)
	assert.Equal(t, "chunk_10001.json", chunks[10000].Name)
}

func TestWriteAndJoinFiles_Compressed(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	input := captureDoc(30)

	s, err := New(Options{MaxBytes: 500, Prefix: "part_", Codec: codec.Zstd})
	require.NoError(t, err)

	chunks, err := s.Split([]byte(input))
	require.NoError(t, err)
	paths, err := s.Write(dir, chunks)
	require.NoError(t, err)
	require.Len(t, paths, len(chunks))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, len(chunks))
	assert.Equal(t, "part_0001.json.zst", entries[0].Name())

	joined, err := s.JoinFiles(paths)
	require.NoError(t, err)
	assert.Equal(t, canonical(t, []byte(input)), canonical(t, joined))
}

func TestJoin_Errors(t *testing.T) {
	s := newSplitter(t, 100)

	_, err := s.Join(nil)
	require.Error(t, err)
	assert.Equal(t, 2, apperrors.ExitCode(err))

	_, err = s.Join([][]byte{[]byte(`[1]`), []byte(`{"children":[2]}`)})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotCollection)
}

func TestBytesFromMB(t *testing.T) {
	assert.Equal(t, int64(104857), BytesFromMB(0.1))
	assert.Equal(t, int64(1048576), BytesFromMB(1))
}
