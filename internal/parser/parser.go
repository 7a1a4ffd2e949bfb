package parser

import (
	"encoding/json"
	stderrors "errors" // Standard errors package
	"fmt"
	"io"
	"strings"

	"github.com/mcncl/domtools/internal/errors" // Custom errors package
	"github.com/mcncl/domtools/internal/fileio"
	"github.com/mcncl/domtools/internal/models"
)

// DefaultMaxDepth bounds container nesting when no limit is configured.
const DefaultMaxDepth = 10000

// Parser decodes JSON documents into models.Value trees.
// Object member order is kept exactly as it appears in the input.
type Parser struct {
	MaxDepth int
}

// New returns a parser that rejects values nested deeper than maxDepth.
// A non-positive maxDepth selects DefaultMaxDepth.
func New(maxDepth int) *Parser {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Parser{MaxDepth: maxDepth}
}

var defaultParser = New(DefaultMaxDepth)

// Parse converts JSON data from an io.Reader into a Document using the default depth limit
func Parse(reader io.Reader) (models.Document, error) {
	return defaultParser.Parse(reader)
}

// ParseString parses JSON from a string
func ParseString(jsonString string) (models.Document, error) {
	return defaultParser.ParseString(jsonString)
}

// ParseFile parses JSON from a file path
func ParseFile(filePath string) (models.Document, error) {
	return defaultParser.ParseFile(filePath)
}

// frame is a container under construction.
type frame struct {
	kind    models.Kind
	items   []models.Value
	fields  *models.ObjectMap
	key     string
	haveKey bool
}

func (f *frame) value() models.Value {
	if f.kind == models.Array {
		if f.items == nil {
			f.items = []models.Value{}
		}
		return models.Value{Kind: models.Array, Items: f.items}
	}
	return models.Value{Kind: models.Object, Fields: f.fields}
}

// Parse decodes exactly one JSON value from reader.
func (p *Parser) Parse(reader io.Reader) (models.Document, error) {
	decoder := json.NewDecoder(reader)
	decoder.UseNumber() // Ensure numbers are read as json.Number

	root, err := p.decode(decoder)
	if err != nil {
		return models.Document{}, err
	}

	// Only whitespace may follow the first value.
	if _, err := decoder.Token(); err == nil {
		return models.Document{}, errors.NewParsingError("multiple JSON values found at the root", errors.ErrMultipleJSON)
	} else if !stderrors.Is(err, io.EOF) {
		return models.Document{}, errors.NewParsingError("invalid trailing data after first JSON value", wrapSyntax(err))
	}

	return models.Document{Root: root, RootIsArray: root.Kind == models.Array}, nil
}

// decode reads tokens until one complete value has been assembled. Nesting
// is tracked on an explicit stack so input depth never grows the call stack.
func (p *Parser) decode(decoder *json.Decoder) (models.Value, error) {
	var stack []*frame

	for {
		tok, err := decoder.Token()
		if err != nil {
			if stderrors.Is(err, io.EOF) && len(stack) == 0 {
				return models.Value{}, errors.NewParsingError("input is empty or contains only whitespace", errors.ErrEmptyInput)
			}
			return models.Value{}, describeError(err)
		}

		var value models.Value
		switch t := tok.(type) {
		case json.Delim:
			switch t {
			case '{', '[':
				if len(stack) > p.MaxDepth {
					return models.Value{}, errors.NewLimitError(stackPath(stack).String(), p.MaxDepth)
				}
				f := &frame{kind: models.Array}
				if t == '{' {
					f.kind = models.Object
					f.fields = models.NewObjectMap(0)
				}
				stack = append(stack, f)
				continue
			default: // '}' or ']'
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				value = top.value()
			}
		case string:
			if top := topFrame(stack); top != nil && top.kind == models.Object && !top.haveKey {
				top.key = t
				top.haveKey = true
				continue
			}
			value = models.StringValue(t)
		case json.Number:
			value = models.NumberValue(t)
		case bool:
			value = models.BoolValue(t)
		case nil:
			value = models.NullValue()
		default:
			return models.Value{}, errors.NewParsingError(fmt.Sprintf("unexpected JSON token %T", tok), errors.ErrInvalidJSON)
		}

		if !value.IsContainer() && len(stack) > p.MaxDepth {
			return models.Value{}, errors.NewLimitError(stackPath(stack).String(), p.MaxDepth)
		}

		top := topFrame(stack)
		if top == nil {
			return value, nil
		}
		if top.kind == models.Array {
			top.items = append(top.items, value)
		} else {
			top.fields.Set(top.key, value)
			top.haveKey = false
		}
	}
}

func topFrame(stack []*frame) *frame {
	if len(stack) == 0 {
		return nil
	}
	return stack[len(stack)-1]
}

// stackPath reconstructs the path of the value about to be added to the top frame.
func stackPath(stack []*frame) models.Path {
	path := make(models.Path, 0, len(stack))
	for _, f := range stack {
		if f.kind == models.Array {
			path = append(path, models.IndexStep(len(f.items)))
		} else {
			path = append(path, models.KeyStep(f.key))
		}
	}
	return path
}

func describeError(err error) error {
	var syntaxError *json.SyntaxError
	if stderrors.As(err, &syntaxError) {
		return errors.NewParsingError(
			fmt.Sprintf("JSON syntax error at offset %d: %s", syntaxError.Offset, syntaxError.Error()),
			errors.ErrInvalidJSON,
		)
	}
	if stderrors.Is(err, io.ErrUnexpectedEOF) || stderrors.Is(err, io.EOF) {
		return errors.NewParsingError("unexpected end of JSON input", errors.ErrInvalidJSON)
	}
	return errors.NewParsingError("failed to decode JSON", err)
}

func wrapSyntax(err error) error {
	var syntaxError *json.SyntaxError
	if stderrors.As(err, &syntaxError) {
		return fmt.Errorf("%w: %v", errors.ErrInvalidJSON, err)
	}
	return err
}

// ParseString parses JSON from a string
func (p *Parser) ParseString(jsonString string) (models.Document, error) {
	if strings.TrimSpace(jsonString) == "" {
		return models.Document{}, errors.NewInputError("input string is empty", errors.ErrEmptyInput)
	}
	return p.Parse(strings.NewReader(jsonString))
}

// ParseFile parses JSON from a file path. Compressed files are decoded by extension.
func (p *Parser) ParseFile(filePath string) (models.Document, error) {
	if strings.TrimSpace(filePath) == "" {
		return models.Document{}, errors.NewInputError("file path is empty", errors.ErrInvalidFilePath)
	}
	return p.ParseInput(filePath, nil)
}

// ParseInput parses the document named by path, where "-" reads stdin.
func (p *Parser) ParseInput(path string, stdin io.Reader) (models.Document, error) {
	reader, err := fileio.Open(path, stdin)
	if err != nil {
		return models.Document{}, err
	}
	defer func() { _ = reader.Close() }()

	return p.Parse(reader)
}
