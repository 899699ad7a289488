package annotate

import (
	"context"
	"errors"
	"fmt"
)

// Annotator turns raw text into an annotated Document.
//
// Empty or whitespace-only text is not an error: implementations return an
// empty Document. A missing or unusable language model is reported with an
// *Error carrying CodeModelUnavailable, distinct from degenerate input.
type Annotator interface {
	Annotate(ctx context.Context, text string) (*Document, error)
}

// Func adapts an ordinary function to the Annotator interface.
type Func func(ctx context.Context, text string) (*Document, error)

// Annotate calls f(ctx, text).
func (f Func) Annotate(ctx context.Context, text string) (*Document, error) {
	return f(ctx, text)
}

// ErrorCode categorizes annotator failures.
type ErrorCode string

const (
	// CodeModelUnavailable indicates no usable language model is loaded.
	CodeModelUnavailable ErrorCode = "MODEL_UNAVAILABLE"

	// CodeRequestFailed indicates the annotation service could not be reached
	// or answered with an error status.
	CodeRequestFailed ErrorCode = "REQUEST_FAILED"

	// CodeBadResponse indicates the service answered with an undecodable body.
	CodeBadResponse ErrorCode = "BAD_RESPONSE"

	// CodeUnknownText indicates a fixture annotator has no document for the text.
	CodeUnknownText ErrorCode = "UNKNOWN_TEXT"
)

// ErrUnknownText is wrapped by FixtureAnnotator for text it has no fixture for.
var ErrUnknownText = errors.New("no annotated fixture for text")

// Error is returned by Annotator implementations in this package.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// IsModelUnavailable reports whether err is a model-unavailable failure.
// Uses errors.As to handle wrapped errors.
func IsModelUnavailable(err error) bool {
	return hasCode(err, CodeModelUnavailable)
}

// IsUnknownText reports whether err means a fixture was missing.
func IsUnknownText(err error) bool {
	return hasCode(err, CodeUnknownText)
}

func hasCode(err error, code ErrorCode) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
