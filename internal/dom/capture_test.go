package dom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/domtools/internal/encoder"
	"github.com/mcncl/domtools/internal/models"
)

func capture(t *testing.T, input string, opts Options) (models.Value, Stats) {
	t.Helper()
	root, stats, err := Capture(strings.NewReader(input), opts)
	require.NoError(t, err)
	return root, stats
}

func child(t *testing.T, v models.Value, i int) models.Value {
	t.Helper()
	children, ok := v.Get(FieldChildren)
	require.True(t, ok, "node has no children array")
	require.Greater(t, len(children.Items), i)
	return children.Items[i]
}

// body returns the BODY element of a captured document.
func body(t *testing.T, doc models.Value) models.Value {
	t.Helper()
	children, ok := doc.Get(FieldChildren)
	require.True(t, ok)
	htmlNode := children.Items[len(children.Items)-1]
	return child(t, htmlNode, 1)
}

func compact(t *testing.T, v models.Value) string {
	t.Helper()
	out, err := encoder.Marshal(v, encoder.Compact)
	require.NoError(t, err)
	return string(out)
}

func TestCapture_DocumentStructure(t *testing.T) {
	doc, stats := capture(t, `<!DOCTYPE html><html><head></head><body><p id="x">hi</p><!--c--></body></html>`, Options{})

	name, _ := doc.Get(FieldNodeName)
	assert.Equal(t, "#document", name.Str)

	doctype := child(t, doc, 0)
	assert.Equal(t, `{"nodeName":"html","nodeType":10,"children":[]}`, compact(t, doctype))

	assert.Equal(t,
		`{"nodeName":"BODY","nodeType":1,"attributes":{},"children":[`+
			`{"nodeName":"P","nodeType":1,"attributes":{"id":"x"},"children":[{"nodeName":"#text","nodeType":3,"nodeValue":"hi","children":[]}]},`+
			`{"nodeName":"#comment","nodeType":8,"nodeValue":"c","children":[]}]}`,
		compact(t, body(t, doc)))

	assert.Equal(t, Stats{Nodes: 8, Elements: 4, TextNodes: 1}, stats)
}

func TestCapture_Attributes(t *testing.T) {
	doc, _ := capture(t, `<button onclick="go()" type="submit">Go</button><img src="data:image/png;base64,AAAA" alt="dot">`, Options{})
	b := body(t, doc)

	button, _ := child(t, b, 0).Get(FieldAttributes)
	assert.Equal(t, `{"onclick":{"_type":"Function","source":"go()"},"type":"submit"}`, compact(t, button))

	img, _ := child(t, b, 1).Get(FieldAttributes)
	assert.Equal(t, `{"src":{"_type":"Blob","data":"data:image/png;base64,AAAA","size":26},"alt":"dot"}`, compact(t, img))
}

func TestCapture_Canvas(t *testing.T) {
	doc, _ := capture(t, `<canvas id="c"></canvas>`, Options{})
	canvas := child(t, body(t, doc), 0)

	content, ok := canvas.Get(fieldContent)
	require.True(t, ok)
	typ, ok := WrapperType(content)
	require.True(t, ok)
	assert.Equal(t, TypeCanvas, typ)
}

func TestCapture_DeclarativeShadowRoot(t *testing.T) {
	doc, stats := capture(t, `<div id="host"><template shadowrootmode="open"><span>in</span></template><p>light</p></div>`, Options{})
	host := child(t, body(t, doc), 0)

	assert.Equal(t,
		`{"nodeName":"DIV","nodeType":1,"attributes":{"id":"host"},`+
			`"shadowRoot":{"nodeName":"#document-fragment","nodeType":11,"mode":"open","children":[`+
			`{"nodeName":"SPAN","nodeType":1,"attributes":{},"children":[{"nodeName":"#text","nodeType":3,"nodeValue":"in","children":[]}]}]},`+
			`"children":[{"nodeName":"P","nodeType":1,"attributes":{},"children":[{"nodeName":"#text","nodeType":3,"nodeValue":"light","children":[]}]}]}`,
		compact(t, host))
	assert.Equal(t, 2, stats.TextNodes)
}

func TestCapture_ForeignElementsKeepCase(t *testing.T) {
	doc, _ := capture(t, `<svg viewBox="0 0 1 1"></svg>`, Options{})
	svg := child(t, body(t, doc), 0)

	name, _ := svg.Get(FieldNodeName)
	assert.Equal(t, "svg", name.Str)
}

func TestCapture_DepthLimit(t *testing.T) {
	// document 0, html 1, body 2, outer div 3
	doc, stats := capture(t, `<div><div><div></div></div></div>`, Options{MaxDepth: 3})
	outer := child(t, body(t, doc), 0)

	assert.Equal(t, `{"_type":"Truncated"}`, compact(t, child(t, outer, 0)))
	assert.Equal(t, 1, stats.Truncated)
}

func TestCapture_InvalidUTF8(t *testing.T) {
	doc, stats := capture(t, "<p>a\xffb</p>", Options{})
	text := child(t, child(t, body(t, doc), 0), 0)

	value, _ := text.Get(FieldNodeValue)
	assert.Equal(t, "a�b", value.Str)

	diag, ok := text.Get(FieldError)
	require.True(t, ok)
	assert.Contains(t, diag.Str, "serialization")
	assert.Contains(t, diag.Str, "invalid UTF-8 in text")
	assert.Equal(t, 1, stats.Errors)
}

func TestCapture_Whitespace(t *testing.T) {
	input := "<ul>\n  <li>a</li>\n</ul>"

	doc, _ := capture(t, input, Options{})
	list := child(t, body(t, doc), 0)
	assert.Equal(t, 1, mustChildren(t, list))

	doc, _ = capture(t, input, Options{KeepWhitespace: true})
	list = child(t, body(t, doc), 0)
	assert.Equal(t, 3, mustChildren(t, list))
}

func mustChildren(t *testing.T, v models.Value) int {
	t.Helper()
	children, ok := v.Get(FieldChildren)
	require.True(t, ok)
	return len(children.Items)
}

func TestCapture_EveryNodeHasChildren(t *testing.T) {
	doc, _ := capture(t, `<div><span>x</span><!--y--><br></div>`, Options{})

	var check func(v models.Value)
	check = func(v models.Value) {
		if IsWrapper(v) {
			return
		}
		children, ok := v.Get(FieldChildren)
		require.True(t, ok, compact(t, v))
		assert.Equal(t, models.Array, children.Kind)
		for _, c := range children.Items {
			check(c)
		}
	}
	check(doc)
}
