package errors

import (
	"errors"
	"fmt"
)

// Standard application errors
var (
	ErrEmptyInput      = errors.New("input is empty or contains only whitespace")
	ErrInvalidJSON     = errors.New("invalid JSON format")
	ErrMultipleJSON    = errors.New("multiple JSON values found at the root, only one is allowed")
	ErrFileNotFound    = errors.New("file not found")
	ErrFileEmpty       = errors.New("file is empty")
	ErrInvalidFilePath = errors.New("invalid file path")
	ErrNoKeys          = errors.New("no keys given: pass --keys or --keys-file")
	ErrDepthExceeded   = errors.New("maximum nesting depth exceeded")
	ErrNotCollection   = errors.New("document has no top-level collection to split")
	ErrUnknownCodec    = errors.New("unknown compression codec")
)

// ErrorType categorizes errors
type ErrorType string

const (
	ErrorTypeInput         ErrorType = "input"
	ErrorTypeParsing       ErrorType = "parsing"
	ErrorTypeArgument      ErrorType = "argument"
	ErrorTypeLimit         ErrorType = "limit"
	ErrorTypeSerialization ErrorType = "serialization"
	ErrorTypeQuery         ErrorType = "query"
	ErrorTypeOutput        ErrorType = "output"
	ErrorTypeUnknown       ErrorType = "unknown"
)

// AppError is an application-specific error with context
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for comparison
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// NewInputError creates a new error related to input processing
func NewInputError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInput,
		Message: message,
		Err:     err,
	}
}

// NewParsingError creates a new error related to JSON parsing
func NewParsingError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeParsing,
		Message: message,
		Err:     err,
	}
}

// NewArgumentError creates a new error for a missing or invalid flag or argument
func NewArgumentError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeArgument,
		Message: message,
		Err:     err,
	}
}

// NewSerializationError creates a new error for a value that cannot be written out
func NewSerializationError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeSerialization,
		Message: message,
		Err:     err,
	}
}

// NewQueryError creates a new error related to jq expressions
func NewQueryError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeQuery,
		Message: message,
		Err:     err,
	}
}

// NewOutputError creates a new error related to output processing
func NewOutputError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeOutput,
		Message: message,
		Err:     err,
	}
}

// LimitError reports a nesting depth guard that tripped at Path.
type LimitError struct {
	Path  string
	Limit int
}

func (e *LimitError) Error() string {
	where := e.Path
	if where == "" {
		where = "(root)"
	}
	return fmt.Sprintf("nesting deeper than %d at %s", e.Limit, where)
}

// Unwrap lets errors.Is match ErrDepthExceeded.
func (e *LimitError) Unwrap() error {
	return ErrDepthExceeded
}

// NewLimitError wraps a depth guard failure as a structural limit error
func NewLimitError(path string, limit int) *AppError {
	return &AppError{
		Type:    ErrorTypeLimit,
		Message: fmt.Sprintf("document nests deeper than the configured maximum of %d", limit),
		Err:     &LimitError{Path: path, Limit: limit},
	}
}

// UserFriendlyError returns a user-friendly error message
func UserFriendlyError(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case ErrorTypeInput:
			return fmt.Sprintf("Input error: %s", appErr.Message)
		case ErrorTypeParsing:
			return fmt.Sprintf("JSON parsing error: %s", appErr.Message)
		case ErrorTypeArgument:
			return fmt.Sprintf("Argument error: %s", appErr.Message)
		case ErrorTypeLimit:
			var limitErr *LimitError
			if errors.As(appErr.Err, &limitErr) {
				return fmt.Sprintf("Structural limit error: %s (at %s)", appErr.Message, displayPath(limitErr.Path))
			}
			return fmt.Sprintf("Structural limit error: %s", appErr.Message)
		case ErrorTypeSerialization:
			return fmt.Sprintf("Serialization error: %s", appErr.Message)
		case ErrorTypeQuery:
			return fmt.Sprintf("Query error: %s", appErr.Message)
		case ErrorTypeOutput:
			return fmt.Sprintf("Output error: %s", appErr.Message)
		default:
			return fmt.Sprintf("Error: %s", appErr.Message)
		}
	}

	// Handle standard errors
	if errors.Is(err, ErrEmptyInput) {
		return "Error: The input is empty. Please provide valid JSON data."
	}
	if errors.Is(err, ErrInvalidJSON) {
		return "Error: The input contains invalid JSON. Please check your JSON syntax."
	}
	if errors.Is(err, ErrMultipleJSON) {
		return "Error: Multiple JSON values found. Please provide a single JSON document."
	}
	if errors.Is(err, ErrFileNotFound) {
		return "Error: The specified file could not be found. Please check the file path."
	}
	if errors.Is(err, ErrFileEmpty) {
		return "Error: The specified file is empty. Please provide a file with valid JSON content."
	}
	if errors.Is(err, ErrNoKeys) {
		return "Error: No keys given. Please pass --keys or --keys-file."
	}
	if errors.Is(err, ErrDepthExceeded) {
		return "Error: The document nests deeper than the configured maximum depth."
	}

	// Generic error message for unknown errors
	return fmt.Sprintf("Error: %v", err)
}

// ExitCode maps an error to the process exit status: 0 for nil, 2 for
// argument errors and 1 for everything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Type == ErrorTypeArgument {
		return 2
	}
	return 1
}

func displayPath(p string) string {
	if p == "" {
		return "(root)"
	}
	return p
}
