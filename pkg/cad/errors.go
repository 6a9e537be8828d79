package cad

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned by loaders given no bytes.
var ErrEmptyInput = errors.New("empty input")

// LoadError reports a malformed or unsupported input file. It is fatal for
// a conversion.
type LoadError struct {
	Format string // loader name, e.g. "yaml" or "lisp"
	Line   int    // 1-based, 0 if unknown
	Err    error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("load %s: line %d: %v", e.Format, e.Line, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Format, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
