package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/domtools/internal/encoder"
	apperrors "github.com/mcncl/domtools/internal/errors"
	"github.com/mcncl/domtools/internal/parser"
)

func apply(t *testing.T, input string, keys ...string) (string, Result) {
	t.Helper()
	doc, err := parser.ParseString(input)
	require.NoError(t, err)

	f, err := New(keys, Options{})
	require.NoError(t, err)

	res, err := f.Apply(doc.Root)
	require.NoError(t, err)

	out, err := encoder.Marshal(res.Value, encoder.Compact)
	require.NoError(t, err)
	return string(out), res
}

func TestApply(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		keys     []string
		expected string
	}{
		{
			name:     "keeps matched members with their ancestors",
			input:    `{"a":{"keep":1,"drop":2},"b":[{"keep":3}]}`,
			keys:     []string{"keep"},
			expected: `{"a":{"keep":1},"b":[{"keep":3}]}`,
		},
		{
			name:     "matched subtree is kept verbatim",
			input:    `{"nodeName":"DIV","children":[{"nodeName":"P","style":"x"}]}`,
			keys:     []string{"children"},
			expected: `{"children":[{"nodeName":"P","style":"x"}]}`,
		},
		{
			name:     "nested target inside retained subtree",
			input:    `{"keep":{"keep":{"other":1}}}`,
			keys:     []string{"keep"},
			expected: `{"keep":{"keep":{"other":1}}}`,
		},
		{
			name:     "nothing matched keeps an empty root object",
			input:    `{"a":{"b":1},"c":[1,2]}`,
			keys:     []string{"missing"},
			expected: `{}`,
		},
		{
			name:     "nothing matched keeps an empty root array",
			input:    `[{"a":1},2]`,
			keys:     []string{"missing"},
			expected: `[]`,
		},
		{
			name:     "scalar root becomes its empty form",
			input:    `"just a string"`,
			keys:     []string{"a"},
			expected: `""`,
		},
		{
			name:     "array elements without matches are removed",
			input:    `[{"x":1},{"nodeName":"A"},{"x":2,"nodeName":"B"}]`,
			keys:     []string{"nodeName"},
			expected: `[{"nodeName":"A"},{"nodeName":"B"}]`,
		},
		{
			name:     "matching is case sensitive",
			input:    `{"Key":1,"key":2}`,
			keys:     []string{"key"},
			expected: `{"key":2}`,
		},
		{
			name:     "several keys keep document order",
			input:    `{"b":1,"x":0,"a":2}`,
			keys:     []string{"a", "b"},
			expected: `{"b":1,"a":2}`,
		},
		{
			name:     "empty containers under matches survive",
			input:    `{"wrap":{"children":[]}}`,
			keys:     []string{"children"},
			expected: `{"wrap":{"children":[]}}`,
		},
		{
			name:     "wrapper fields are not searched",
			input:    `{"img":{"_type":"Blob","data":"data:x"},"data":{"_type":"Function","source":"f()"}}`,
			keys:     []string{"data", "source"},
			expected: `{"data":{"_type":"Function","source":"f()"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := apply(t, tt.input, tt.keys...)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestApply_Counters(t *testing.T) {
	_, res := apply(t, `{"a":{"keep":1,"drop":2},"b":[{"keep":3},4]}`, "keep")
	assert.Equal(t, 2, res.Matched)
	assert.Equal(t, 2, res.Dropped)
}

func TestApply_UnmatchedWrapperCountsOnce(t *testing.T) {
	out, res := apply(t, `{"img":{"_type":"Blob","data":"data:x","size":6}}`, "data", "size")
	assert.Equal(t, `{}`, out)
	assert.Equal(t, 0, res.Matched)
	assert.Equal(t, 1, res.Dropped)
}

func TestApply_Idempotent(t *testing.T) {
	input := `{"a":{"keep":1,"drop":2},"b":[{"keep":{"x":[1,2]}},{"other":5}],"c":"z"}`
	once, _ := apply(t, input, "keep")
	twice, _ := apply(t, once, "keep")
	assert.Equal(t, once, twice)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	input := `{"a":{"keep":1,"drop":2}}`
	doc, err := parser.ParseString(input)
	require.NoError(t, err)

	f, err := New([]string{"keep"}, Options{})
	require.NoError(t, err)
	_, err = f.Apply(doc.Root)
	require.NoError(t, err)

	out, err := encoder.Marshal(doc.Root, encoder.Compact)
	require.NoError(t, err)
	assert.Equal(t, input, string(out))
}

func TestApply_DepthLimit(t *testing.T) {
	doc, err := parser.ParseString(`{"a":{"b":{"c":{"keep":1}}}}`)
	require.NoError(t, err)

	f, err := New([]string{"keep"}, Options{MaxDepth: 2})
	require.NoError(t, err)
	_, err = f.Apply(doc.Root)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDepthExceeded)
}

func TestNew_Keys(t *testing.T) {
	f, err := New([]string{"b", "a", "b"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, f.Keys())

	_, err = New(nil, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNoKeys)
	assert.Equal(t, 2, apperrors.ExitCode(err))
}

func TestParseKeyList(t *testing.T) {
	assert.Equal(t, []string{"nodeName", "children"}, ParseKeyList(" nodeName, ,children,"))
	assert.Nil(t, ParseKeyList(""))
}
