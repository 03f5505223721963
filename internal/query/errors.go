package query

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds raised while building a plan. Match them with errors.Is.
var (
	ErrNotImplemented = errors.New("parameter is not implemented")
	ErrInvalid        = errors.New("parameter is invalid")
)

// Error reports a query parameter that cannot be turned into a plan.
type Error struct {
	Kind      error
	Parameter string
	Reason    string
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Parameter)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Parameter, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func notImplemented(name string) *Error {
	return &Error{Kind: ErrNotImplemented, Parameter: name}
}

func invalid(name, format string, args ...any) *Error {
	return &Error{Kind: ErrInvalid, Parameter: name, Reason: fmt.Sprintf(format, args...)}
}
