// Package errors implements the typed error categories the engine raises:
// decode errors, type errors, registration errors and RPC errors. Keeping
// each category as its own type (rather than the teacher's batched
// NonFatal-errors idiom, which exists to let required-field checks keep
// accumulating through a whole marshal pass) lets callers use errors.As to
// branch on category without string matching, while construction still goes
// through the same fmt.Errorf/%w wrapping convention the teacher uses.
package errors

import "fmt"

// DecodeError reports a malformed wire or JSON buffer: truncation, an
// unknown wire byte, invalid UTF-8, or invalid base64/base16.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string { return "soia: decode " + e.Op + ": " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

func Decode(op string, format string, args ...any) *DecodeError {
	return &DecodeError{Op: op, Err: fmt.Errorf(format, args...)}
}

func WrapDecode(op string, err error) *DecodeError {
	return &DecodeError{Op: op, Err: err}
}

// TypeError reports a JSON value whose shape does not match the declared
// type, e.g. an object where a string was expected.
type TypeError struct {
	Want string
	Got  string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("soia: type error: want %s, got %s", e.Want, e.Got)
}

func Type(want, got string) *TypeError {
	return &TypeError{Want: want, Got: got}
}

// RegistrationError reports a duplicate method number, duplicate record
// identity, or invalid key-extractor string discovered at registration
// time. Registration errors are always fatal to the caller performing
// registration.
type RegistrationError struct {
	Err error
}

func (e *RegistrationError) Error() string { return "soia: registration: " + e.Err.Error() }
func (e *RegistrationError) Unwrap() error { return e.Err }

func Registration(format string, args ...any) *RegistrationError {
	return &RegistrationError{Err: fmt.Errorf(format, args...)}
}

// RPCError reports a bad request frame, an unknown method number, or a
// handler failure. Status carries the HTTP-shaped status class the caller
// should surface (400 or 500).
type RPCError struct {
	Status int
	Err    error
}

func (e *RPCError) Error() string { return fmt.Sprintf("soia: rpc (%d): %s", e.Status, e.Err) }
func (e *RPCError) Unwrap() error { return e.Err }

func RPC(status int, format string, args ...any) *RPCError {
	return &RPCError{Status: status, Err: fmt.Errorf(format, args...)}
}
