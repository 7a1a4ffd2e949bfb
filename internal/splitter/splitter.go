// Package splitter cuts a large JSON document into size-bounded chunk files
// along its top-level collection and joins such chunks back together.
//
// The collection is the root array, or the array stored under a field
// (children by default) of the root object. Elements are copied as raw
// bytes, so every element appears in exactly one chunk byte for byte.
package splitter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/buger/jsonparser"

	"github.com/mcncl/domtools/internal/codec"
	"github.com/mcncl/domtools/internal/encoder"
	"github.com/mcncl/domtools/internal/errors"
	"github.com/mcncl/domtools/internal/fileio"
)

// Defaults as used by the split command.
const (
	DefaultMaxSizeMB = 0.1
	DefaultField     = "children"
	DefaultPrefix    = "chunk_"
	minNameWidth     = 4
)

// Options configures a Splitter.
type Options struct {
	// MaxBytes bounds the uncompressed size of each chunk.
	MaxBytes int64
	Field    string
	Prefix   string
	Codec    codec.Type
	Logger   *slog.Logger
}

// BytesFromMB converts a --max-size value to bytes.
func BytesFromMB(mb float64) int64 {
	return int64(mb * 1024 * 1024)
}

// Chunk is one output file.
type Chunk struct {
	Name     string
	Data     []byte
	Elements int
}

// Splitter splits and joins documents.
type Splitter struct {
	opts   Options
	logger *slog.Logger
}

// New creates a splitter. A non-positive MaxBytes is an argument error.
func New(opts Options) (*Splitter, error) {
	if opts.MaxBytes <= 0 {
		return nil, errors.NewArgumentError(fmt.Sprintf("maximum chunk size must be positive, got %d bytes", opts.MaxBytes), nil)
	}
	if opts.Field == "" {
		opts.Field = DefaultField
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.Codec == "" {
		opts.Codec = codec.None
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Splitter{opts: opts, logger: logger}, nil
}

// collection is a document taken apart around its top-level collection.
type collection struct {
	isArray  bool
	base     [][]byte // encoded "key":value members of an object root
	elements [][]byte
}

// prefix and suffix wrap the element list of a chunk.
func (c *collection) prefix(field string) []byte {
	if c.isArray {
		return []byte("[")
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, member := range c.base {
		buf.Write(member)
		buf.WriteByte(',')
	}
	buf.Write(encoder.String(field))
	buf.WriteString(":[")
	return buf.Bytes()
}

func (c *collection) suffix() []byte {
	if c.isArray {
		return []byte("]")
	}
	return []byte("]}")
}

// Split partitions data into chunks in document order. Chunk sizes never
// exceed MaxBytes unless a single element alone does.
func (s *Splitter) Split(data []byte) ([]Chunk, error) {
	if !json.Valid(data) {
		return nil, errors.NewInputError("document is not valid JSON", errors.ErrInvalidJSON)
	}
	var compacted bytes.Buffer
	if err := json.Compact(&compacted, data); err != nil {
		return nil, errors.NewInputError("failed to compact document", err)
	}

	coll, err := s.decompose(compacted.Bytes())
	if err != nil {
		return nil, err
	}

	prefix, suffix := coll.prefix(s.opts.Field), coll.suffix()
	overhead := int64(len(prefix) + len(suffix))

	var groups [][][]byte
	var current [][]byte
	size := overhead
	for _, element := range coll.elements {
		grown := size + int64(len(element))
		if len(current) > 0 {
			grown++ // separating comma
		}
		if len(current) > 0 && grown > s.opts.MaxBytes {
			groups = append(groups, current)
			current = nil
			grown = overhead + int64(len(element))
		}
		current = append(current, element)
		size = grown
	}
	if len(current) > 0 || len(groups) == 0 {
		groups = append(groups, current)
	}

	width := len(strconv.Itoa(len(groups)))
	if width < minNameWidth {
		width = minNameWidth
	}

	chunks := make([]Chunk, 0, len(groups))
	for i, group := range groups {
		var buf bytes.Buffer
		buf.Write(prefix)
		buf.Write(bytes.Join(group, []byte(",")))
		buf.Write(suffix)

		chunk := Chunk{
			Name:     fmt.Sprintf("%s%0*d.json%s", s.opts.Prefix, width, i+1, s.opts.Codec.Extension()),
			Data:     buf.Bytes(),
			Elements: len(group),
		}
		if int64(len(chunk.Data)) > s.opts.MaxBytes {
			s.logger.Warn("chunk exceeds maximum size because of a single element",
				slog.String("chunk", chunk.Name), slog.Int("bytes", len(chunk.Data)), slog.Int64("max_bytes", s.opts.MaxBytes))
		}
		chunks = append(chunks, chunk)
	}

	s.logger.Debug("document split", slog.Int("elements", len(coll.elements)), slog.Int("chunks", len(chunks)))
	return chunks, nil
}

func (s *Splitter) decompose(data []byte) (*collection, error) {
	_, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, errors.NewInputError("failed to read document root", err)
	}

	switch dataType {
	case jsonparser.Array:
		elements, err := arrayElements(data)
		if err != nil {
			return nil, err
		}
		return &collection{isArray: true, elements: elements}, nil

	case jsonparser.Object:
		coll := &collection{}
		found := false
		err := jsonparser.ObjectEach(data, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
			if string(key) == s.opts.Field && dataType == jsonparser.Array && !found {
				found = true
				elements, err := arrayElements(value)
				if err != nil {
					return err
				}
				coll.elements = elements
				return nil
			}
			var member bytes.Buffer
			member.Write(encoder.String(string(key)))
			member.WriteByte(':')
			member.Write(rawValue(value, dataType))
			coll.base = append(coll.base, member.Bytes())
			return nil
		})
		if err != nil {
			return nil, errors.NewInputError("failed to read document members", err)
		}
		if !found {
			return nil, errors.NewInputError(fmt.Sprintf("root object has no %q array", s.opts.Field), errors.ErrNotCollection)
		}
		return coll, nil

	default:
		return nil, errors.NewInputError(fmt.Sprintf("root is a %s, not an array or object", dataType), errors.ErrNotCollection)
	}
}

func arrayElements(data []byte) ([][]byte, error) {
	elements := make([][]byte, 0)
	var cbErr error
	_, err := jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, err error) {
		if err != nil {
			cbErr = err
			return
		}
		elements = append(elements, rawValue(value, dataType))
	})
	if err == nil {
		err = cbErr
	}
	if err != nil {
		return nil, errors.NewInputError("failed to read array elements", err)
	}
	return elements, nil
}

// rawValue restores the quotes jsonparser strips from string values.
func rawValue(value []byte, dataType jsonparser.ValueType) []byte {
	if dataType != jsonparser.String {
		return value
	}
	out := make([]byte, 0, len(value)+2)
	out = append(out, '"')
	out = append(out, value...)
	return append(out, '"')
}

// Write stores chunks in dir, creating it if needed, and returns the file paths.
func (s *Splitter) Write(dir string, chunks []Chunk) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.NewOutputError(fmt.Sprintf("failed to create directory '%s'", dir), err)
	}

	paths := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		path := filepath.Join(dir, chunk.Name)
		if err := fileio.WriteFileCodec(path, chunk.Data, s.opts.Codec); err != nil {
			return paths, err
		}
		s.logger.Info("wrote chunk", slog.String("path", path), slog.Int("elements", chunk.Elements), slog.Int("bytes", len(chunk.Data)))
		paths = append(paths, path)
	}
	return paths, nil
}

// Join concatenates the collections of chunks in the given order. Members
// other than the collection field are taken from the first chunk.
func (s *Splitter) Join(chunks [][]byte) ([]byte, error) {
	if len(chunks) == 0 {
		return nil, errors.NewArgumentError("no chunks to join", nil)
	}

	var first *collection
	var elements [][]byte
	for i, data := range chunks {
		if !json.Valid(data) {
			return nil, errors.NewInputError(fmt.Sprintf("chunk %d is not valid JSON", i+1), errors.ErrInvalidJSON)
		}
		var compacted bytes.Buffer
		if err := json.Compact(&compacted, data); err != nil {
			return nil, errors.NewInputError(fmt.Sprintf("failed to compact chunk %d", i+1), err)
		}
		coll, err := s.decompose(compacted.Bytes())
		if err != nil {
			return nil, err
		}
		if first == nil {
			first = coll
		} else if coll.isArray != first.isArray {
			return nil, errors.NewInputError(fmt.Sprintf("chunk %d does not match the shape of the first chunk", i+1), errors.ErrNotCollection)
		}
		elements = append(elements, coll.elements...)
	}

	var buf bytes.Buffer
	buf.Write(first.prefix(s.opts.Field))
	buf.Write(bytes.Join(elements, []byte(",")))
	buf.Write(first.suffix())

	s.logger.Debug("chunks joined", slog.Int("chunks", len(chunks)), slog.Int("elements", len(elements)))
	return buf.Bytes(), nil
}

// JoinFiles reads chunk files (decompressing by extension) and joins them.
func (s *Splitter) JoinFiles(paths []string) ([]byte, error) {
	chunks := make([][]byte, 0, len(paths))
	for _, path := range paths {
		data, err := fileio.ReadAll(path, nil)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, data)
	}
	return s.Join(chunks)
}
