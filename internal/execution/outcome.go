// Package execution implements identity-keyed memoization of unit-of-work
// execution: a concurrent store guaranteeing at-most-one computation per work
// identity, and the cache step that routes executions through it.
package execution

// Outcome wraps a unit of work's result: either a successfully produced value
// or the failure that stopped it. Cached lookups replay the outcome as-is;
// raw values or raw errors are never stored.
type Outcome struct {
	value any
	err   error
}

// Success wraps a successfully produced value.
func Success(v any) Outcome {
	return Outcome{value: v}
}

// Failure wraps an execution failure.
func Failure(err error) Outcome {
	return Outcome{err: err}
}

// Value returns the wrapped value, or the failure if the work failed.
func (o Outcome) Value() (any, error) {
	return o.value, o.err
}

// Err returns the wrapped failure, if any.
func (o Outcome) Err() error {
	return o.err
}

// Successful reports whether the work produced a value.
func (o Outcome) Successful() bool {
	return o.err == nil
}

// Map applies fn to a successful value and leaves failures untouched.
func (o Outcome) Map(fn func(v any) any) Outcome {
	if o.err != nil {
		return o
	}
	return Success(fn(o.value))
}
