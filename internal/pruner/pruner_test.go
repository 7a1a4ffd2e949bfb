package pruner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/domtools/internal/encoder"
	apperrors "github.com/mcncl/domtools/internal/errors"
	"github.com/mcncl/domtools/internal/parser"
)

func prune(t *testing.T, policy Policy, input string) (string, Stats) {
	t.Helper()
	doc, err := parser.ParseString(input)
	require.NoError(t, err)

	p, err := New(policy, Options{})
	require.NoError(t, err)

	res, err := p.Prune(doc.Root)
	require.NoError(t, err)

	out, err := encoder.Marshal(res.Value, encoder.Compact)
	require.NoError(t, err)
	return string(out), res.Stats
}

func TestPrune_DefaultPolicy(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "react internal key",
			input:    `{"__reactInternalInstance":"x","text":"hello"}`,
			expected: `{"text":"hello"}`,
		},
		{
			name:     "denied key names and patterns",
			input:    `{"nodeName":"SVG","width":10,"viewBox":"0 0 1 1","_owner":{},"[object Window]":1,"id":"logo"}`,
			expected: `{"nodeName":"SVG","id":"logo"}`,
		},
		{
			name:     "key denylist wins before value rules",
			input:    `{"style":{"_type":"Function","source":"f"},"title":"t"}`,
			expected: `{"title":"t"}`,
		},
		{
			name:     "function captures",
			input:    `{"onclick":{"_type":"Function","source":"function(){}"},"id":"a"}`,
			expected: `{"id":"a"}`,
		},
		{
			name:     "small wrappers are opaque leaves",
			input:    `{"icon":{"_type":"Blob","data":"data:image/png;base64,AAAA","size":27},"canvas":{"_type":"Canvas"},"id":"a"}`,
			expected: `{"icon":{"_type":"Blob","data":"data:image/png;base64,AAAA","size":27},"canvas":{"_type":"Canvas"},"id":"a"}`,
		},
		{
			name:     "large binary wrapper",
			input:    `{"img":{"_type":"Image","size":4096},"id":"a"}`,
			expected: `{"id":"a"}`,
		},
		{
			name:     "noise values",
			input:    `{"a":"#text","b":"[object Object]","c":" undefined ","d":"NULL","e":"  \n ","f":"fulfilled","g":"kept"}`,
			expected: `{"g":"kept"}`,
		},
		{
			name:     "utility class strings",
			input:    `{"cls":"flex px-4 gap-2 hidden","mixed":"flex my-card","single":"flex"}`,
			expected: `{"mixed":"flex my-card","single":"flex"}`,
		},
		{
			name:     "bare nodes",
			input:    `{"children":[{"nodeName":"BR"},{"nodeName":"P","nodeValue":"x"}]}`,
			expected: `{"children":[{"nodeName":"P","nodeValue":"x"}]}`,
		},
		{
			name:     "node left bare after pruning is removed",
			input:    `{"children":[{"nodeName":"DIV","className":"x"},{"nodeName":"P","id":"p"}]}`,
			expected: `{"children":[{"nodeName":"P","id":"p"}]}`,
		},
		{
			name:     "containers emptied by pruning are removed",
			input:    `{"props":{"style":"a","css":"b"},"list":["#text","#comment"],"keep":1}`,
			expected: `{"keep":1}`,
		},
		{
			name:     "originally empty containers are kept by default",
			input:    `{"children":[],"attributes":{},"v":null,"b":false,"n":0,"s":""}`,
			expected: `{"children":[],"attributes":{},"v":null,"b":false,"n":0,"s":""}`,
		},
		{
			name:     "protected keys survive",
			input:    `{"nodeName":"#text","nodeValue":"#text","id":"t"}`,
			expected: `{"nodeName":"#text","id":"t"}`,
		},
		{
			name:     "everything pruned leaves an empty root",
			input:    `[{"style":"x"},"#text"]`,
			expected: `[]`,
		},
		{
			name:     "scalar noise root becomes an empty string",
			input:    `"undefined"`,
			expected: `""`,
		},
		{
			name:     "blank root never grows",
			input:    `" "`,
			expected: `""`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := prune(t, DefaultPolicy(), tt.input)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestPrune_BinaryThreshold(t *testing.T) {
	bytesArray := "[" + strings.TrimSuffix(strings.Repeat("255,", 20), ",") + "]"
	dataURL := `"data:image/png;base64,` + strings.Repeat("A", 40) + `"`
	input := `{"pixels":` + bytesArray + `,"src":` + dataURL + `,"id":"a"}`

	policy := DefaultPolicy()
	out, _ := prune(t, policy, input)
	assert.Equal(t, input, out, "below the default threshold")

	policy.MaxBinaryBytes = 16
	out, stats := prune(t, policy, input)
	assert.Equal(t, `{"id":"a"}`, out)
	assert.Equal(t, 2, stats[RuleBinary])
}

func TestPrune_BinaryWrapperSize(t *testing.T) {
	input := `{"huge":{"_type":"Blob","size":1e30,"data":"x"},` +
		`"wide":{"_type":"Blob","size":99999999999999999999},` +
		`"odd":{"_type":"Image","size":10.5},` +
		`"large":{"_type":"Blob","size":4096},` +
		`"small":{"_type":"Blob","size":12},"id":"a"}`

	out, stats := prune(t, DefaultPolicy(), input)
	assert.Equal(t, `{"small":{"_type":"Blob","size":12},"id":"a"}`, out)
	assert.Equal(t, 4, stats[RuleBinary])
}

func TestPrune_OptionalRules(t *testing.T) {
	policy := DefaultPolicy()
	policy.DropBooleans = true
	policy.DropNumbers = true
	policy.DropEmptyValues = true

	out, stats := prune(t, policy, `{"a":true,"b":1,"c":null,"d":[],"e":{},"f":"","g":"text"}`)
	assert.Equal(t, `{"g":"text"}`, out)
	assert.Equal(t, 1, stats[RuleBoolean])
	assert.Equal(t, 1, stats[RuleNumber])
	assert.Equal(t, 4, stats[RuleEmptyValue])
}

func TestPrune_FoldKeyStyles(t *testing.T) {
	input := `{"class_name":"a","className":"b","ClassName":"c","title":"t"}`

	out, _ := prune(t, DefaultPolicy(), input)
	assert.Equal(t, `{"class_name":"a","ClassName":"c","title":"t"}`, out)

	policy := DefaultPolicy()
	policy.FoldKeyStyles = true
	out, _ = prune(t, policy, input)
	assert.Equal(t, `{"title":"t"}`, out)
}

func TestPrune_Stats(t *testing.T) {
	_, stats := prune(t, DefaultPolicy(), `{"__reactFiber$1":{},"style":"x","a":"#text","kids":[{"nodeName":"BR"}],"ok":"y"}`)

	assert.Equal(t, 2, stats[RuleDenyKey])
	assert.Equal(t, 1, stats[RuleNoise])
	assert.Equal(t, 1, stats[RuleBareNode])
	assert.Equal(t, 1, stats[RuleEmptied])
	assert.Equal(t, 5, stats.Total())
	assert.Equal(t, []Rule{RuleBareNode, RuleDenyKey, RuleEmptied, RuleNoise}, stats.Rules())
}

func TestPrune_Idempotent(t *testing.T) {
	inputs := []string{
		`{"nodeName":"DIV","children":[{"nodeName":"SPAN","className":"x","children":[{"nodeName":"#text","nodeValue":"hi"}]},{"nodeName":"BR"}]}`,
		`{"a":{"b":{"nodeName":"X","style":"s"}},"c":[[["#text"]],1]}`,
		`[{"_type":"Canvas"},{"nodeName":"IMG","src":{"_type":"Blob","size":99999}}]`,
	}

	for _, input := range inputs {
		once, _ := prune(t, DefaultPolicy(), input)
		twice, _ := prune(t, DefaultPolicy(), once)
		assert.Equal(t, once, twice, input)
		assert.LessOrEqual(t, len(once), len(input))
	}
}

func TestPrune_DepthLimitIsFatal(t *testing.T) {
	doc, err := parser.ParseString(`{"a":{"b":{"c":{"d":1}}}}`)
	require.NoError(t, err)

	p, err := New(DefaultPolicy(), Options{MaxDepth: 2})
	require.NoError(t, err)
	_, err = p.Prune(doc.Root)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDepthExceeded)
}

func TestNew_InvalidPattern(t *testing.T) {
	policy := DefaultPolicy()
	policy.DenyKeyPatterns = append(policy.DenyKeyPatterns, "[invalid")

	_, err := New(policy, Options{})
	require.Error(t, err)
	assert.Equal(t, 2, apperrors.ExitCode(err))
	assert.Contains(t, err.Error(), "[invalid")
}
