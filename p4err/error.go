// Package p4err defines the fatal error taxonomy shared by every layer of
// the interpreter. Every Kind is raised via panic(*Error) and caught by a
// deferred Recover at a package entry point that turns it into an ordinary
// returned error: symbolic.Interpret, and typefill's Fill/FillDecl.
package p4err

import "fmt"

// Kind classifies why the interpreter gave up.
type Kind int

const (
	// KindUserP4Error marks a semantic issue in the input program itself.
	KindUserP4Error Kind = iota
	// KindUnsupported marks a construct the interpreter does not model.
	KindUnsupported
	// KindInvariantViolation marks a broken internal contract (a bug).
	KindInvariantViolation
	// KindLookupFailure marks a missing variable, type, or declaration.
	KindLookupFailure
	// KindSolverUnknown marks an `unknown` result from the SMT backend.
	KindSolverUnknown
)

func (k Kind) String() string {
	switch k {
	case KindUserP4Error:
		return "user P4 error"
	case KindUnsupported:
		return "unsupported construct"
	case KindInvariantViolation:
		return "invariant violation"
	case KindLookupFailure:
		return "lookup failure"
	case KindSolverUnknown:
		return "solver unknown"
	default:
		return "unknown error kind"
	}
}

// Error is the one error type every package in this module panics with.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Fatalf panics with a formatted *Error of the given kind.
func Fatalf(kind Kind, format string, args ...any) {
	panic(&Error{Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

// Recover invokes onError with the *Error (or a wrapped generic panic) if
// the deferred recover caught anything; a panic value that is not an *Error
// is wrapped as a KindInvariantViolation. If nothing was caught, it does
// nothing. Call via `defer p4err.Recover(func(err *p4err.Error) { ... })`.
func Recover(onError func(err *Error)) {
	r := recover()
	if r == nil {
		return
	}
	if err, ok := r.(*Error); ok {
		onError(err)
		return
	}
	onError(&Error{Kind: KindInvariantViolation, Msg: fmt.Sprint(r)})
}
