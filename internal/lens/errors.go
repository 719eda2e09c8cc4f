package lens

import "fmt"

// CallError wraps any failure while calling a lens export.
type CallError struct {
	Export string
	Err    error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("lens export '%s': %v", e.Export, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// ResultCountError occurs when an export does not return exactly one pointer.
type ResultCountError struct {
	Got int
}

func (e *ResultCountError) Error() string {
	return fmt.Sprintf("expected 1 result, got %d", e.Got)
}
