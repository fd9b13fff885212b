package kacchios

import (
	"context"
	"errors"
	"fmt"

	"github.com/kacchi-os/kacchios/internal/ipc"
	"github.com/kacchi-os/kacchios/internal/memalloc"
	"github.com/kacchi-os/kacchios/internal/process"
)

// Error is a structured kacchios error: the operation that failed, a
// high-level code, and (when one exists) the lower-level error it wraps.
type Error struct {
	Op    string    // Operation that failed (e.g. "Spawn", "Boot")
	Code  ErrorCode // High-level error category
	Msg   string    // Human-readable message
	Inner error     // Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		return fmt.Sprintf("kacchios: %s: %s", e.Op, msg)
	}
	return fmt.Sprintf("kacchios: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is supports errors.Is against both another *Error (compared by Code) and
// the sentinel the Error wraps.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return errors.Is(e.Inner, target)
}

// ErrorCode is a high-level error category, stable across internal
// sentinel changes.
type ErrorCode string

const (
	ErrCodeNoSlot      ErrorCode = "no free process slot"
	ErrCodeNoEntry     ErrorCode = "nil entry function"
	ErrCodeOutOfMemory ErrorCode = "allocator out of memory"
	ErrCodeZeroSize    ErrorCode = "zero-size allocation requested"
	ErrCodeNilQueue    ErrorCode = "nil ipc queue"
	ErrCodeCancelled   ErrorCode = "context cancelled"
	ErrCodeUnknown     ErrorCode = "error"
)

// WrapError classifies a known internal sentinel error into a structured,
// op-tagged *Error. A nil err returns nil; an unrecognized err is still
// wrapped, under ErrCodeUnknown, rather than passed through bare — every
// error this package returns is a *Error.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	code := ErrCodeUnknown
	switch {
	case errors.Is(err, process.ErrNoSlot):
		code = ErrCodeNoSlot
	case errors.Is(err, process.ErrNoEntry):
		code = ErrCodeNoEntry
	case errors.Is(err, memalloc.ErrOutOfMemory):
		code = ErrCodeOutOfMemory
	case errors.Is(err, memalloc.ErrZeroSize):
		code = ErrCodeZeroSize
	case errors.Is(err, ipc.ErrNilQueue):
		code = ErrCodeNilQueue
	case errors.Is(err, context.Canceled):
		code = ErrCodeCancelled
	}

	return &Error{Op: op, Code: code, Msg: err.Error(), Inner: err}
}

// IsCode reports whether err is (or wraps) a *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
