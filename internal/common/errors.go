package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Kind classifies a submission-processing failure so callers can switch on it
// instead of inspecting error strings.
type Kind string

const (
	KindEmptySubmission       Kind = "EmptySubmission"
	KindDownloadFailed        Kind = "DownloadFailed"
	KindInvalidImage          Kind = "InvalidImage"
	KindNoNumberFound         Kind = "NoNumberFound"
	KindMalformedExtraction   Kind = "MalformedExtraction"
	KindIncompleteExtraction  Kind = "IncompleteExtraction"
	KindInvalidFormat         Kind = "InvalidFormat"
	KindValueMismatch         Kind = "ValueMismatch"
	KindNoMetricExtracted     Kind = "NoMetricExtracted"
	KindNoMetricFound         Kind = "NoMetricFound"
	KindUnsupportedConversion Kind = "UnsupportedConversion"
	KindBackendUnavailable    Kind = "BackendUnavailable"
	KindNoActiveChallenge     Kind = "NoActiveChallenge"
	KindInvalidSubmission     Kind = "InvalidSubmission"
	KindPersistence           Kind = "PersistenceFailed"
	KindTimeout               Kind = "Timeout"
)

// KindError tags an error with its Kind and the operation that produced it.
type KindError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *KindError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *KindError) Unwrap() error {
	return e.Err
}

// NewKindError builds a *KindError.
func NewKindError(kind Kind, op string, err error) error {
	return &KindError{Kind: kind, Op: op, Err: err}
}

// KindErrorf builds a *KindError with a formatted cause.
func KindErrorf(kind Kind, op, format string, args ...any) error {
	return &KindError{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the outermost Kind found in err's chain, or "" when none.
func KindOf(err error) Kind {
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return ""
}

// IsKind reports whether err carries kind anywhere in its tree, including
// errors combined with errors.Join.
func IsKind(err error, kind Kind) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *KindError:
		return e.Kind == kind || IsKind(e.Err, kind)
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if IsKind(inner, kind) {
				return true
			}
		}
		return false
	case interface{ Unwrap() error }:
		return IsKind(e.Unwrap(), kind)
	}
	return false
}
