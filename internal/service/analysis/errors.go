package analysis

import "errors"

// ErrInvariant is returned when an internal consistency check fails. The
// run is aborted and no partial result is returned.
var ErrInvariant = errors.New("invariant violation")

// PathError represents an invalid analysis root.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return "invalid path " + e.Path + ": " + e.Err.Error()
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// StageError wraps a fatal failure inside one pipeline stage.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error {
	return e.Err
}
