package handles

import "errors"

// Code is the outcome of a peer handle operation. The set of codes is closed,
// codes are stable small integers and carry no payload beyond the tag.
//
//go:generate stringer -type Code
type Code byte

const (
	Ok Code = iota
	InvalidState
	InvalidArgument
	AllocationFailure
	AlreadyInitialized
	NotRunning
)

// Error wraps a single non-Ok Code. Every fallible operation on a Handle or
// Registry returns either nil or an *Error, and a failure leaves the handle
// unchanged. Use errors.Is against the exported Err values:
//
//	if errors.Is(err, handles.ErrInvalidState) { ... }
type Error struct {
	Code Code
}

var (
	ErrInvalidState       = &Error{Code: InvalidState}
	ErrInvalidArgument    = &Error{Code: InvalidArgument}
	ErrAllocationFailure  = &Error{Code: AllocationFailure}
	ErrAlreadyInitialized = &Error{Code: AlreadyInitialized}
	ErrNotRunning         = &Error{Code: NotRunning}
)

func (e *Error) Error() string {
	switch e.Code {
	case InvalidState:
		return "invalid handle state"
	case InvalidArgument:
		return "invalid argument"
	case AllocationFailure:
		return "allocation failure"
	case AlreadyInitialized:
		return "handle already initialized"
	case NotRunning:
		return "handle is not running"
	default:
		return e.Code.String()
	}
}

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	var te *Error
	if !errors.As(target, &te) {
		return false
	}
	return e.Code == te.Code
}

// CodeOf returns the code carried by err. A nil error yields Ok. The second
// return value is false when err does not originate from this package.
func CodeOf(err error) (Code, bool) {
	if err == nil {
		return Ok, true
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return Ok, false
}
