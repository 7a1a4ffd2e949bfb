package dom

import (
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/mcncl/domtools/internal/errors"
	"github.com/mcncl/domtools/internal/models"
)

// DefaultCaptureDepth bounds the node nesting of a capture.
const DefaultCaptureDepth = 512

const (
	fieldMode    = "mode"
	fieldContent = "content"

	shadowRootAttr = "shadowrootmode"
	fragmentName   = "#document-fragment"
)

// Options configures Capture.
type Options struct {
	// MaxDepth is the deepest node depth captured; the document is depth 0.
	MaxDepth int
	// KeepWhitespace keeps text nodes that hold only whitespace.
	KeepWhitespace bool
	Logger         *slog.Logger
}

// Stats describes a capture.
type Stats struct {
	Nodes     int `json:"nodes"`
	Elements  int `json:"elements"`
	TextNodes int `json:"text_nodes"`
	Truncated int `json:"truncated"`
	Errors    int `json:"errors"`
}

type capturer struct {
	opts   Options
	logger *slog.Logger
	stats  Stats
}

// Capture parses HTML from r and returns the document in capture format.
// Problems inside single nodes are recorded on the node as an _error field
// and counted; only unreadable input fails the capture.
func Capture(r io.Reader, opts Options) (models.Value, Stats, error) {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultCaptureDepth
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	doc, err := html.Parse(r)
	if err != nil {
		return models.Value{}, Stats{}, errors.NewInputError("failed to parse HTML", err)
	}

	c := &capturer{opts: opts, logger: logger}
	root := c.node(doc, 0)

	logger.Debug("capture complete",
		slog.Int("nodes", c.stats.Nodes),
		slog.Int("elements", c.stats.Elements),
		slog.Int("truncated", c.stats.Truncated),
		slog.Int("errors", c.stats.Errors))
	return root, c.stats, nil
}

func (c *capturer) node(n *html.Node, depth int) models.Value {
	if depth > c.opts.MaxDepth {
		c.stats.Truncated++
		return Marker(TypeTruncated)
	}
	c.stats.Nodes++

	fields := models.NewObjectMap(5)
	var problems []string
	clean := func(what, s string) string {
		if utf8.ValidString(s) {
			return s
		}
		problems = append(problems, "invalid UTF-8 in "+what)
		return strings.ToValidUTF8(s, "\uFFFD")
	}

	switch n.Type {
	case html.DocumentNode:
		fields.Set(FieldNodeName, models.StringValue("#document"))
		fields.Set(FieldNodeType, nodeTypeValue(DocumentNode))
	case html.DoctypeNode:
		fields.Set(FieldNodeName, models.StringValue(clean("doctype", n.Data)))
		fields.Set(FieldNodeType, nodeTypeValue(DocumentTypeNode))
	case html.TextNode:
		c.stats.TextNodes++
		fields.Set(FieldNodeName, models.StringValue("#text"))
		fields.Set(FieldNodeType, nodeTypeValue(TextNode))
		fields.Set(FieldNodeValue, models.StringValue(clean("text", n.Data)))
	case html.CommentNode:
		fields.Set(FieldNodeName, models.StringValue("#comment"))
		fields.Set(FieldNodeType, nodeTypeValue(CommentNode))
		fields.Set(FieldNodeValue, models.StringValue(clean("comment", n.Data)))
	case html.ElementNode:
		c.stats.Elements++
		fields.Set(FieldNodeName, models.StringValue(clean("tag name", tagName(n))))
		fields.Set(FieldNodeType, nodeTypeValue(ElementNode))
		fields.Set(FieldAttributes, c.attributes(n, clean))
		if n.DataAtom == atom.Canvas && n.Namespace == "" {
			fields.Set(fieldContent, Marker(TypeCanvas))
		}
	case html.ErrorNode, html.RawNode:
		fields.Set(FieldNodeName, models.StringValue("#unknown"))
		fields.Set(FieldNodeType, models.IntValue(0))
	}

	var shadow *html.Node
	children := make([]models.Value, 0)
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if shadow == nil && n.Type == html.ElementNode && isShadowTemplate(child) {
			shadow = child
			continue
		}
		if child.Type == html.TextNode && !c.opts.KeepWhitespace && strings.TrimSpace(child.Data) == "" {
			continue
		}
		children = append(children, c.node(child, depth+1))
	}
	if shadow != nil {
		fields.Set(FieldShadowRoot, c.shadowRoot(shadow, depth+1))
	}
	fields.Set(FieldChildren, models.ArrayValue(children...))

	if len(problems) > 0 {
		c.stats.Errors++
		msg := errors.NewSerializationError(strings.Join(problems, "; "), nil).Error()
		fields.Set(FieldError, models.StringValue(msg))
		c.logger.Warn("node captured with errors", slog.String("node", n.Data), slog.String("error", msg))
	}
	return models.Value{Kind: models.Object, Fields: fields}
}

// shadowRoot converts a declarative shadow root template into the fragment
// attached to its host.
func (c *capturer) shadowRoot(template *html.Node, depth int) models.Value {
	if depth > c.opts.MaxDepth {
		c.stats.Truncated++
		return Marker(TypeTruncated)
	}
	c.stats.Nodes++

	children := make([]models.Value, 0)
	for child := template.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode && !c.opts.KeepWhitespace && strings.TrimSpace(child.Data) == "" {
			continue
		}
		children = append(children, c.node(child, depth+1))
	}
	return models.ObjectValue(
		models.Member{Key: FieldNodeName, Value: models.StringValue(fragmentName)},
		models.Member{Key: FieldNodeType, Value: nodeTypeValue(DocumentFragmentNode)},
		models.Member{Key: fieldMode, Value: models.StringValue(strings.ToLower(getAttr(template, shadowRootAttr)))},
		models.Member{Key: FieldChildren, Value: models.ArrayValue(children...)},
	)
}

func (c *capturer) attributes(n *html.Node, clean func(what, s string) string) models.Value {
	attrs := models.NewObjectMap(len(n.Attr))
	for _, attr := range n.Attr {
		key := attr.Key
		if attr.Namespace != "" {
			key = attr.Namespace + ":" + key
		}
		key = clean("attribute name", key)
		val := clean("attribute "+key, attr.Val)

		switch {
		case len(key) > 2 && strings.EqualFold(key[:2], "on"):
			attrs.Set(key, FunctionWrapper(val))
		case IsDataURL(strings.TrimSpace(val)):
			attrs.Set(key, BlobWrapper(strings.TrimSpace(val)))
		default:
			attrs.Set(key, models.StringValue(val))
		}
	}
	return models.Value{Kind: models.Object, Fields: attrs}
}

// tagName follows the DOM: HTML elements report upper case names, foreign
// (SVG, MathML) elements keep their case.
func tagName(n *html.Node) string {
	if n.Namespace == "" {
		return strings.ToUpper(n.Data)
	}
	return n.Data
}

func isShadowTemplate(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Namespace == "" && n.DataAtom == atom.Template && getAttr(n, shadowRootAttr) != ""
}

func nodeTypeValue(t NodeType) models.Value {
	return models.IntValue(int64(t))
}

// getAttr returns the value of a named attribute on a node, or empty string.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if strings.EqualFold(attr.Key, key) {
			return attr.Val
		}
	}
	return ""
}
