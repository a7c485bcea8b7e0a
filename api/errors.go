// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-netio.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotSupported      = errors.New("operation not supported")
	ErrQueueClosed       = errors.New("event queue is closed")
	ErrInProgress        = errors.New("connect in progress")
	ErrUnknownAddress    = errors.New("unknown address record")
	ErrWrongAddressKind  = errors.New("address record freed with the wrong function")
	ErrResolve           = errors.New("address resolution failed")
	ErrResourceExhausted = errors.New("resource exhausted")
)

// ErrorCode represents the error taxonomy of the I/O layer.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	// ErrCodeExhausted: queue or socket allocation denied by the OS.
	ErrCodeExhausted
	// ErrCodeTransient: would-block or connect in progress.
	ErrCodeTransient
	// ErrCodeDisconnect: orderly peer shutdown.
	ErrCodeDisconnect
	// ErrCodeOS: any other OS failure, see Errno.
	ErrCodeOS
	ErrCodeResolve
)

// Error represents a structured error with code, OS errno and context.
type Error struct {
	Code    ErrorCode
	Errno   int
	Message string
	Context map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[errno=%d] %s", e.Errno, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the underlying OS error to errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.Err }

// NewError creates a new structured error.
func NewError(code ErrorCode, errno int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Errno:   errno,
		Message: message,
		Err:     err,
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ErrnoOf extracts the OS error code carried by err, or 0.
func ErrnoOf(err error) int {
	if err == nil {
		return 0
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Errno
	}
	var en interface{ Errno() int }
	if errors.As(err, &en) {
		return en.Errno()
	}
	return errnoFromSyscall(err)
}
