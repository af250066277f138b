package core

import (
	"errors"
	"fmt"
)

// Sentinel kinds. Callers branch on these with errors.Is; handlers map them
// to HTTP statuses.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrExternal   = errors.New("external service error")
)

// Error wraps a sentinel kind with a human-readable message and optional
// field-level detail.
type Error struct {
	Kind    error
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind.Error(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Message)
}

func (e *Error) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is makes errors.Is(err, core.ErrConflict) & co. work across wrapping.
func (e *Error) Is(target error) bool { return target == e.Kind }

func Validation(msg string, fields map[string]string) error {
	return &Error{Kind: ErrValidation, Message: msg, Fields: fields}
}

func NotFound(entity string) error {
	return &Error{Kind: ErrNotFound, Message: entity + " introuvable"}
}

func Forbidden(msg string) error {
	return &Error{Kind: ErrForbidden, Message: msg}
}

func Conflict(msg string) error {
	return &Error{Kind: ErrConflict, Message: msg}
}

// External tags a collaborator failure (payment provider, OCR, storage).
func External(op string, err error) error {
	return &Error{Kind: ErrExternal, Message: op, Err: err}
}

// FieldsOf extracts field-level detail when err carries any.
func FieldsOf(err error) map[string]string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Fields
	}
	return nil
}

// MessageOf returns the human-readable message, falling back to Error().
func MessageOf(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Message
	}
	return err.Error()
}
