package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrUnknownRanker     = errors.New("unknown ranker")
	ErrInvalidWeightSpec = errors.New("invalid weight specification")
	ErrUnknownLayer      = errors.New("unknown layer")
	ErrInvalidMeasure    = errors.New("invalid measure")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrQueryFailed       = errors.New("query evaluation failed")
	ErrInvalidInput      = errors.New("invalid input")
)

// AppError attaches a human-readable message to one of the sentinel errors
// above so callers can still match it with errors.Is.
type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: message,
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsConfigError reports whether err stems from setup-time configuration and
// should abort the run before any query is processed.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrUnknownRanker) ||
		errors.Is(err, ErrInvalidWeightSpec) ||
		errors.Is(err, ErrUnknownLayer) ||
		errors.Is(err, ErrInvalidMeasure)
}
