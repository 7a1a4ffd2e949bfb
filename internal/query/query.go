// Package query evaluates jq expressions against document values.
package query

import (
	stderrors "errors"
	"fmt"

	"github.com/itchyny/gojq"

	"github.com/mcncl/domtools/internal/errors"
	"github.com/mcncl/domtools/internal/models"
)

// Expression is a compiled jq program. It is safe to run repeatedly.
type Expression struct {
	source string
	code   *gojq.Code
}

// Compile parses and compiles a jq expression. Syntax errors are argument errors.
func Compile(source string) (*Expression, error) {
	parsed, err := gojq.Parse(source)
	if err != nil {
		var parseErr *gojq.ParseError
		if stderrors.As(err, &parseErr) {
			return nil, errors.NewArgumentError(fmt.Sprintf("invalid jq expression at position %d: %v", parseErr.Offset, err), err)
		}
		return nil, errors.NewArgumentError(fmt.Sprintf("invalid jq expression: %v", err), err)
	}

	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, errors.NewArgumentError(fmt.Sprintf("failed to compile jq expression: %v", err), err)
	}
	return &Expression{source: source, code: code}, nil
}

// String returns the expression source.
func (e *Expression) String() string {
	return e.source
}

// Eval runs the expression with v as input and returns every output.
func (e *Expression) Eval(v models.Value) ([]any, error) {
	var out []any
	iter := e.code.Run(v.Interface())
	for {
		result, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := result.(error); isErr {
			return out, errors.NewQueryError(describe(e.source, err), err)
		}
		out = append(out, result)
	}
	return out, nil
}

// Match reports whether the expression yields at least one truthy output
// for v. As in jq, only false and null are falsy.
func (e *Expression) Match(v models.Value) (bool, error) {
	iter := e.code.Run(v.Interface())
	for {
		result, ok := iter.Next()
		if !ok {
			return false, nil
		}
		if err, isErr := result.(error); isErr {
			return false, errors.NewQueryError(describe(e.source, err), err)
		}
		if truthy(result) {
			return true, nil
		}
	}
}

func truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	default:
		return true
	}
}

func describe(source string, err error) string {
	var haltErr *gojq.HaltError
	if stderrors.As(err, &haltErr) {
		if haltErr.Value() == nil {
			return fmt.Sprintf("%q halted", source)
		}
		return fmt.Sprintf("%q halted with: %v", source, haltErr.Value())
	}
	return fmt.Sprintf("%q failed: %v", source, err)
}
