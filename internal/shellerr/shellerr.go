// Package shellerr defines the error kinds surfaced by the lexer, parser,
// executor and builtins.
package shellerr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindIO Kind = iota
	KindParse
	KindNotFound
	KindPermission
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindParse:
		return "parse"
	case KindNotFound:
		return "not found"
	case KindPermission:
		return "permission denied"
	case KindInternal:
		return "internal"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a shell failure of a given kind. Msg is the human readable part,
// Err the underlying cause if any.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindNotFound:
		return e.Msg + ": command not found"
	case e.Kind == KindPermission:
		return e.Msg + ": permission denied"
	case e.Err != nil && e.Msg != "":
		return e.Msg + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Msg
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: KindParse})
// works as a kind test.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Msg == "" || t.Msg == e.Msg)
}

func Parse(format string, args ...interface{}) *Error {
	return &Error{Kind: KindParse, Msg: fmt.Sprintf(format, args...)}
}

// NotFound reports that program could not be located.
func NotFound(program string) *Error {
	return &Error{Kind: KindNotFound, Msg: program}
}

func Permission(program string, err error) *Error {
	return &Error{Kind: KindPermission, Msg: program, Err: err}
}

func IO(msg string, err error) *Error {
	return &Error{Kind: KindIO, Msg: msg, Err: err}
}

func Internal(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInternal, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err. Errors that are not *Error are treated as I/O failures.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindIO
}

// IsKind reports whether err is a shell error of kind k.
func IsKind(err error, k Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == k
}

// ExitStatus maps err to the status a POSIX shell would report for it.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case KindParse:
		return 2
	case KindNotFound:
		return 127
	case KindPermission:
		return 126
	default:
		return 1
	}
}
