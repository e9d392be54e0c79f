package core

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an operation failure. The set is closed: every error the
// engine returns to a caller carries exactly one of these.
type Kind string

const (
	KindUnauthorized     Kind = "Unauthorized"
	KindNotFound         Kind = "NotFound"
	KindInvalidStructure Kind = "InvalidStructure"
	KindConflict         Kind = "Conflict"
	KindTimeout          Kind = "Timeout"
	KindStorage          Kind = "StorageFailure"
	KindPartialBatch     Kind = "PartialBatchFailure"
)

// ErrDuplicate is returned by Repository implementations when an insert
// loses a uniqueness race (a version sequence slot or an active sibling
// name). The service maps it to Conflict or InvalidStructure.
var ErrDuplicate = errors.New("record already exists")

// Error is the engine's error type. Op names the operation, Resource the
// id the caller acted on, so single-item failures carry enough context to
// act on.
type Error struct {
	Kind     Kind
	Op       string
	Resource string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Resource != "" {
		msg += " " + e.Resource
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an *Error. The last argument may be an error to wrap or a
// string reason.
func E(kind Kind, op, resource string, cause any) *Error {
	e := &Error{Kind: kind, Op: op, Resource: resource}
	switch c := cause.(type) {
	case nil:
	case error:
		e.Err = c
	case string:
		if c != "" {
			e.Err = errors.New(c)
		}
	default:
		e.Err = fmt.Errorf("%v", c)
	}
	return e
}

// KindOf extracts the Kind from err, mapping context deadline errors to
// Timeout. Unclassified errors report KindStorage: anything the taxonomy
// does not name is an I/O failure from one of the stores.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindStorage
}

// IsKind reports whether err carries kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func IsUnauthorized(err error) bool { return IsKind(err, KindUnauthorized) }
func IsNotFound(err error) bool     { return IsKind(err, KindNotFound) }
func IsConflict(err error) bool     { return IsKind(err, KindConflict) }
func IsTimeout(err error) bool      { return IsKind(err, KindTimeout) }

// IsInvalidStructure reports folder-cycle and name-collision failures.
func IsInvalidStructure(err error) bool { return IsKind(err, KindInvalidStructure) }
