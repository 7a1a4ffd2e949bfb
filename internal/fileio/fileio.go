// Package fileio opens inputs and writes outputs for the tools. "-" (or an
// empty path) selects standard input or standard output. Files ending in a
// compression extension are decoded and encoded transparently, and outputs
// are written through a temporary file so a failed run leaves nothing behind.
package fileio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mcncl/domtools/internal/codec"
	apperrors "github.com/mcncl/domtools/internal/errors"
)

// StdStream is the path that selects standard input or output.
const StdStream = "-"

// IsStd reports whether path refers to a standard stream.
func IsStd(path string) bool {
	return strings.TrimSpace(path) == "" || path == StdStream
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open opens path for reading, or returns stdin for "-". The caller must
// Close the result; closing a stdin reader leaves stdin open.
func Open(path string, stdin io.Reader) (io.ReadCloser, error) {
	if IsStd(path) {
		if stdin == nil {
			stdin = os.Stdin
		}
		return io.NopCloser(bufio.NewReader(stdin)), nil
	}

	file, err := os.Open(path) // #nosec G304 -- path is supplied by the user on the command line
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewInputError(fmt.Sprintf("file '%s' not found", path), apperrors.ErrFileNotFound)
		}
		return nil, apperrors.NewInputError(fmt.Sprintf("failed to open file '%s'", path), err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, apperrors.NewInputError(fmt.Sprintf("failed to get file stats for '%s'", path), err)
	}
	if stat.IsDir() {
		_ = file.Close()
		return nil, apperrors.NewInputError(fmt.Sprintf("'%s' is a directory", path), apperrors.ErrInvalidFilePath)
	}
	if stat.Size() == 0 {
		_ = file.Close()
		return nil, apperrors.NewInputError(fmt.Sprintf("input file '%s' is empty", path), apperrors.ErrFileEmpty)
	}

	dec, err := codec.NewReader(bufio.NewReader(file), codec.Detect(path))
	if err != nil {
		_ = file.Close()
		return nil, apperrors.NewInputError(fmt.Sprintf("failed to decompress '%s'", path), err)
	}
	return &readCloser{Reader: dec, closers: []io.Closer{dec, file}}, nil
}

// ReadAll reads the whole input named by path.
func ReadAll(path string, stdin io.Reader) ([]byte, error) {
	r, err := Open(path, stdin)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewInputError(fmt.Sprintf("failed to read '%s'", displayName(path)), err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, apperrors.NewInputError(fmt.Sprintf("input '%s' is empty", displayName(path)), apperrors.ErrEmptyInput)
	}
	return data, nil
}

// ReadLines reads a text file and returns its trimmed, non-empty lines.
func ReadLines(path string) ([]string, error) {
	file, err := os.Open(path) // #nosec G304 -- path is supplied by the user on the command line
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewArgumentError(fmt.Sprintf("file '%s' not found", path), apperrors.ErrFileNotFound)
		}
		return nil, apperrors.NewArgumentError(fmt.Sprintf("failed to open file '%s'", path), err)
	}
	defer func() { _ = file.Close() }()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, apperrors.NewArgumentError(fmt.Sprintf("failed to read '%s'", path), err)
	}
	return lines, nil
}

// WriteFile writes data to path, or to stdout for "-". File outputs go to a
// temporary file in the target directory that is renamed into place only
// after every byte was written and flushed.
func WriteFile(path string, stdout io.Writer, data []byte) error {
	if IsStd(path) {
		if stdout == nil {
			stdout = os.Stdout
		}
		if _, err := stdout.Write(data); err != nil {
			return apperrors.NewOutputError("failed to write to stdout", err)
		}
		return nil
	}
	return WriteFileCodec(path, data, codec.Detect(path))
}

// WriteFileCodec is WriteFile for a file path with an explicit codec.
func WriteFileCodec(path string, data []byte, typ codec.Type) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return apperrors.NewOutputError(fmt.Sprintf("failed to create '%s'", path), err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	enc, err := codec.NewWriter(tmp, typ)
	if err != nil {
		return apperrors.NewOutputError(fmt.Sprintf("failed to compress '%s'", path), err)
	}
	if _, err = enc.Write(data); err != nil {
		return apperrors.NewOutputError(fmt.Sprintf("failed to write to file '%s'", path), err)
	}
	if err = enc.Close(); err != nil {
		return apperrors.NewOutputError(fmt.Sprintf("failed to flush '%s'", path), err)
	}
	if err = tmp.Close(); err != nil {
		return apperrors.NewOutputError(fmt.Sprintf("failed to close '%s'", path), err)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return apperrors.NewOutputError(fmt.Sprintf("failed to set permissions on '%s'", path), err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return apperrors.NewOutputError(fmt.Sprintf("failed to write to file '%s'", path), err)
	}
	return nil
}

func displayName(path string) string {
	if IsStd(path) {
		return "stdin"
	}
	return path
}
