package vm

import (
	"errors"
	"fmt"
)

// --- Compile-time errors ---

// CompileErrorKind enumerates the compiler's structured error sum.
type CompileErrorKind string

const (
	ErrModuleNotFound    CompileErrorKind = "ModuleNotFound"
	ErrBindingNotFound   CompileErrorKind = "BindingNotFound"
	ErrTooManyConstantsK CompileErrorKind = "TooManyConstants"
	ErrTooManyLocalsK    CompileErrorKind = "TooManyLocals"
	ErrInvalidJumpOffsetK CompileErrorKind = "InvalidJumpOffset"
	ErrUnsupportedPattern CompileErrorKind = "UnsupportedPattern"
	ErrMalformedRec       CompileErrorKind = "MalformedRec"
	ErrTypeError          CompileErrorKind = "TypeError"
	ErrDuplicateModule    CompileErrorKind = "DuplicateModule"
)

// CompileError is the single structured sum the compiler fails with.
type CompileError struct {
	Kind    CompileErrorKind
	Message string
	Line    int
	Column  int
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("compile error [%s] at %d:%d: %s", e.Kind, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("compile error [%s]: %s", e.Kind, e.Message)
}

func newCompileError(kind CompileErrorKind, line, col int, format string, args ...interface{}) *CompileError {
	return &CompileError{Kind: kind, Message: fmt.Sprintf(format, args...), Line: line, Column: col}
}

// Sentinels used with errors.Is against chunk-construction limits,
// which can be raised either from the compiler or directly against a
// Chunk built by other means (e.g. a test fixture).
var (
	ErrTooManyConstants = errors.New("too many constants")
	ErrTooManyLocals    = errors.New("too many locals")
	ErrInvalidJumpOffset = errors.New("jump offset out of range")
)

// --- Deserialize-time errors ---

type DeserializeErrorKind string

const (
	ErrBadMagic         DeserializeErrorKind = "BadMagic"
	ErrUnsupportedVersion DeserializeErrorKind = "UnsupportedVersion"
	ErrCorruptBytecode  DeserializeErrorKind = "CorruptBytecode"
	ErrCannotSerializeOpenClosure DeserializeErrorKind = "CannotSerializeOpenClosure"
)

type DeserializeError struct {
	Kind    DeserializeErrorKind
	Message string
}

func (e *DeserializeError) Error() string {
	return fmt.Sprintf("deserialize error [%s]: %s", e.Kind, e.Message)
}

// --- Runtime errors ---

type RuntimeErrorKind string

const (
	ErrStackUnderflow  RuntimeErrorKind = "StackUnderflow"
	ErrTypeMismatch    RuntimeErrorKind = "TypeMismatch"
	ErrDivisionByZero  RuntimeErrorKind = "DivisionByZero"
	ErrIndexOutOfBounds RuntimeErrorKind = "IndexOutOfBounds"
	ErrFieldNotFound   RuntimeErrorKind = "FieldNotFound"
	ErrNotCallable     RuntimeErrorKind = "NotCallable"
	ErrArityMismatch   RuntimeErrorKind = "ArityMismatch"
	ErrUndefinedGlobal RuntimeErrorKind = "UndefinedGlobal"
	ErrMatchFailure    RuntimeErrorKind = "MatchFailure"
	ErrEmptyList       RuntimeErrorKind = "EmptyList"
	ErrHostError       RuntimeErrorKind = "HostError"
)

// RuntimeError is what aborts the current execute(); the VM instance
// itself remains valid for the next call.
type RuntimeError struct {
	Kind    RuntimeErrorKind
	Message string
	// Expected/Got are populated for TypeMismatch.
	Expected string
	Got      string
}

func (e *RuntimeError) Error() string {
	if e.Kind == ErrTypeMismatch && e.Expected != "" {
		return fmt.Sprintf("runtime error [%s]: expected %s, got %s", e.Kind, e.Expected, e.Got)
	}
	return fmt.Sprintf("runtime error [%s]: %s", e.Kind, e.Message)
}

func newRuntimeError(kind RuntimeErrorKind, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func typeMismatch(expected string, got Kind) *RuntimeError {
	return &RuntimeError{Kind: ErrTypeMismatch, Expected: expected, Got: got.String(),
		Message: fmt.Sprintf("expected %s, got %s", expected, got)}
}

// HostErrorMsg wraps an opaque message from a failed host-function call,
// propagated verbatim.
func HostErrorMsg(msg string) *RuntimeError {
	return &RuntimeError{Kind: ErrHostError, Message: msg}
}
