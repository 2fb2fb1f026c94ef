// Package failure defines the error kinds shared by every component of the engine.
// Domain packages wrap these kinds into their own sentinel errors so callers can
// branch with errors.Is on either the specific error or its kind.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrUnavailable        = errors.New("unavailable")
	ErrInvalidState       = errors.New("invalid state")
	ErrDuplicate          = errors.New("duplicate")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrUnsupported        = errors.New("unsupported")
)

type Kind string

const (
	KindUnknown            Kind = "unknown"
	KindValidation         Kind = "validation"
	KindNotFound           Kind = "not_found"
	KindForbidden          Kind = "forbidden"
	KindConflict           Kind = "conflict"
	KindUnavailable        Kind = "unavailable"
	KindInvalidState       Kind = "invalid_state"
	KindDuplicate          Kind = "duplicate"
	KindStorageUnavailable Kind = "storage_unavailable"
	KindUnsupported        Kind = "unsupported"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrValidation, KindValidation},
	{ErrNotFound, KindNotFound},
	{ErrForbidden, KindForbidden},
	{ErrUnavailable, KindUnavailable},
	{ErrConflict, KindConflict},
	{ErrInvalidState, KindInvalidState},
	{ErrDuplicate, KindDuplicate},
	{ErrStorageUnavailable, KindStorageUnavailable},
	{ErrUnsupported, KindUnsupported},
}

// KindOf classifies err. Errors that wrap no known kind are KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

// Storage wraps a driver error as ErrStorageUnavailable keeping the cause.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}

// Violation describes a single rejected field.
type Violation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError collects field violations. It matches ErrValidation.
type ValidationError struct {
	Violations []Violation
}

func NewValidation(field, reason string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, reason)
	return v
}

func (e *ValidationError) Add(field, reason string) {
	e.Violations = append(e.Violations, Violation{Field: field, Reason: reason})
}

// OrNil returns nil when nothing was collected, so callers can return it directly.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Violations) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Reason)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Fields groups reasons by field name.
func (e *ValidationError) Fields() map[string][]string {
	out := make(map[string][]string, len(e.Violations))
	for _, v := range e.Violations {
		out[v.Field] = append(out[v.Field], v.Reason)
	}
	return out
}

// AsValidation extracts a ValidationError from err, or returns nil.
func AsValidation(err error) *ValidationError {
	if err == nil {
		return nil
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr
	}
	return nil
}

// Restore rebuilds an error of the given kind from its message, e.g. when a
// stored result is replayed.
func Restore(kind Kind, msg string) error {
	for _, k := range kinds {
		if k.kind == kind {
			return &restored{msg: msg, kind: k.err}
		}
	}
	return errors.New(msg)
}

type restored struct {
	msg  string
	kind error
}

func (e *restored) Error() string { return e.msg }
func (e *restored) Unwrap() error { return e.kind }
