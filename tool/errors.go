package tool

import (
	"errors"
	"fmt"
)

// ErrInvalidAction is returned when a provider is asked for an operation it does not have.
var ErrInvalidAction = errors.New("invalid action")

// ArityError reports a call with the wrong number of positional inputs.
type ArityError struct {
	Tool     string
	Want     int
	Got      int
	Variadic bool
}

func (e *ArityError) Error() string {
	if e.Got < e.Want {
		missing := e.Want - e.Got
		return fmt.Sprintf("missing %d required %s", missing, plural(missing, "positional argument", "positional arguments"))
	}
	if e.Variadic {
		return fmt.Sprintf("takes at least %d %s but %d %s given",
			e.Want, plural(e.Want, "positional argument", "positional arguments"),
			e.Got, plural(e.Got, "was", "were"))
	}
	return fmt.Sprintf("takes %d %s but %d %s given",
		e.Want, plural(e.Want, "positional argument", "positional arguments"),
		e.Got, plural(e.Got, "was", "were"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// QueryError reports an operation that ran but rejected its input, such as a
// malformed SQL query. Its message is meant to be shown to the model verbatim.
type QueryError struct {
	Message string
	Err     error
}

func (e *QueryError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "query error"
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// IsRecoverable reports whether err should be folded back into the
// conversation rather than ending the run.
func IsRecoverable(err error) bool {
	var arity *ArityError
	var query *QueryError
	return errors.Is(err, ErrInvalidAction) || errors.As(err, &arity) || errors.As(err, &query)
}
