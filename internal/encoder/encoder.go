// Package encoder serializes models.Value trees back to JSON text.
//
// Object members are written in their stored order unless SortKeys is set,
// and numbers are written from their original literal so a decode/encode
// cycle reproduces numeric formatting exactly.
package encoder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/mcncl/domtools/internal/errors"
	"github.com/mcncl/domtools/internal/models"
)

// DefaultMaxDepth matches the parser limit.
const DefaultMaxDepth = 10000

// Options controls the output layout.
type Options struct {
	// Indent writes one member per line, indented by two spaces per level.
	Indent bool
	// SortKeys writes object members in byte order of their keys.
	SortKeys bool
	// MaxDepth bounds container nesting; non-positive means DefaultMaxDepth.
	MaxDepth int
	// TrailingNewline terminates the document with '\n'.
	TrailingNewline bool
}

// Compact is the layout of compressed documents.
var Compact = Options{}

// Pretty is the layout of decompressed documents.
var Pretty = Options{Indent: true, TrailingNewline: true}

type encodeState struct {
	buf      bytes.Buffer
	opts     Options
	maxDepth int
	scratch  bytes.Buffer
	strEnc   *json.Encoder
	path     models.Path // current location, only copied when reporting
}

// Marshal serializes v.
func Marshal(v models.Value, opts Options) ([]byte, error) {
	e := newEncodeState(opts)
	if err := e.value(v, 0); err != nil {
		return nil, err
	}
	if opts.TrailingNewline {
		e.buf.WriteByte('\n')
	}
	return e.buf.Bytes(), nil
}

// Encode serializes v into w.
func Encode(w io.Writer, v models.Value, opts Options) error {
	data, err := Marshal(v, opts)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return errors.NewOutputError("failed to write JSON", err)
	}
	return nil
}

// Canonical returns the compact, key-sorted encoding of v. Two values with
// the same members in any order share a canonical form, which makes it
// suitable as a hashing key.
func Canonical(v models.Value) []byte {
	data, err := Marshal(v, Options{SortKeys: true})
	if err != nil {
		// unreachable for parser-produced values
		return []byte(fmt.Sprintf("%v", v.Interface()))
	}
	return data
}

// String encodes a single string as a JSON string literal.
func String(s string) []byte {
	e := newEncodeState(Options{})
	e.str(s)
	return e.buf.Bytes()
}

func newEncodeState(opts Options) *encodeState {
	e := &encodeState{opts: opts, maxDepth: opts.MaxDepth}
	if e.maxDepth <= 0 {
		e.maxDepth = DefaultMaxDepth
	}
	e.strEnc = json.NewEncoder(&e.scratch)
	e.strEnc.SetEscapeHTML(false)
	return e
}

func (e *encodeState) value(v models.Value, depth int) error {
	if depth > e.maxDepth {
		return errors.NewLimitError(e.path.String(), e.maxDepth)
	}

	switch v.Kind {
	case models.Null:
		e.buf.WriteString("null")
	case models.Bool:
		if v.Bool {
			e.buf.WriteString("true")
		} else {
			e.buf.WriteString("false")
		}
	case models.Number:
		if v.Number == "" || !json.Valid([]byte(v.Number)) {
			return errors.NewSerializationError(fmt.Sprintf("invalid number literal %q at %s", string(v.Number), e.path.Display()), nil)
		}
		e.buf.WriteString(string(v.Number))
	case models.String:
		e.str(v.Str)
	case models.Array:
		if len(v.Items) == 0 {
			e.buf.WriteString("[]")
			return nil
		}
		e.buf.WriteByte('[')
		for i, item := range v.Items {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			e.newline(depth + 1)
			e.path = append(e.path, models.IndexStep(i))
			if err := e.value(item, depth+1); err != nil {
				return err
			}
			e.path = e.path[:len(e.path)-1]
		}
		e.newline(depth)
		e.buf.WriteByte(']')
	case models.Object:
		members := v.Members()
		if len(members) == 0 {
			e.buf.WriteString("{}")
			return nil
		}
		if e.opts.SortKeys {
			sort.SliceStable(members, func(i, j int) bool { return members[i].Key < members[j].Key })
		}
		e.buf.WriteByte('{')
		for i, member := range members {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			e.newline(depth + 1)
			e.str(member.Key)
			e.buf.WriteByte(':')
			if e.opts.Indent {
				e.buf.WriteByte(' ')
			}
			e.path = append(e.path, models.KeyStep(member.Key))
			if err := e.value(member.Value, depth+1); err != nil {
				return err
			}
			e.path = e.path[:len(e.path)-1]
		}
		e.newline(depth)
		e.buf.WriteByte('}')
	default:
		return errors.NewSerializationError(fmt.Sprintf("unknown value kind %d at %s", int(v.Kind), e.path.Display()), nil)
	}
	return nil
}

func (e *encodeState) newline(depth int) {
	if !e.opts.Indent {
		return
	}
	e.buf.WriteByte('\n')
	for i := 0; i < depth; i++ {
		e.buf.WriteString("  ")
	}
}

// str writes s as a JSON string. HTML characters are left unescaped so
// captured markup stays readable.
func (e *encodeState) str(s string) {
	e.scratch.Reset()
	_ = e.strEnc.Encode(s) // encoding a string cannot fail
	out := e.scratch.Bytes()
	e.buf.Write(out[:len(out)-1]) // drop the newline Encode appends
}
