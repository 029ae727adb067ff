// Package fault carries the typed error kinds the core operations return.
// Business outcomes (not found, insufficient funds, replayed reload) are
// values, never panics; panics are reserved for broken invariants.
package fault

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInvalid
	KindInsufficientFunds
	KindInsufficientCredit
	KindConflict
	KindProvider
	KindSignature
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalid:
		return "invalid_request"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindInsufficientCredit:
		return "insufficient_credit"
	case KindConflict:
		return "conflict"
	case KindProvider:
		return "provider_error"
	case KindSignature:
		return "signature_invalid"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Msg  string
	Err  error // wrapped cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func Invalid(format string, args ...any) *Error {
	return New(KindInvalid, format, args...)
}

func InsufficientFunds(format string, args ...any) *Error {
	return New(KindInsufficientFunds, format, args...)
}

func InsufficientCredit(format string, args ...any) *Error {
	return New(KindInsufficientCredit, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return New(KindConflict, format, args...)
}

func Provider(err error, format string, args ...any) *Error {
	return Wrap(KindProvider, err, format, args...)
}

func Signature(err error, format string, args ...any) *Error {
	return Wrap(KindSignature, err, format, args...)
}

// KindOf extracts the kind from anywhere in the chain, KindUnknown otherwise.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }
