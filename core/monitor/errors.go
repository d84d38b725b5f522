package monitor

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSup is returned for calls that cannot be served: wrong arity,
	// or a caller that is not a process of the runtime.
	ErrNotSup = errors.New("notsup")

	// ErrBadArg matches every [*BadArgError] with errors.Is.
	ErrBadArg = errors.New("badarg")

	// ErrUndefinedFunction is returned by [Service.Call] for unknown names.
	ErrUndefinedFunction = errors.New("undefined function")
)

// BadArgError reports the argument a call was rejected for.
type BadArgError struct {
	Value any
}

func (e *BadArgError) Error() string { return fmt.Sprintf("badarg: %v", e.Value) }

func (e *BadArgError) Is(target error) bool { return target == ErrBadArg }

func badArg(v any) error { return &BadArgError{Value: v} }
