package loader

import (
	"errors"
	"fmt"
)

// ErrCompilation is the sentinel wrapped by CompilationError. Surfaced
// to the caller of LoadKernel on emitter failure; the cache is never
// populated with a failed entry (spec §4.8).
var ErrCompilation = errors.New("loader: kernel compilation failed")

// CompilationError carries the external code-emitter's diagnostic
// payload alongside the sentinel, so callers can errors.As it to
// recover emitter-specific detail while still matching ErrCompilation
// via errors.Is.
type CompilationError struct {
	Descriptor  string
	Diagnostics string
	Cause       error
}

func (e *CompilationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("loader: compilation failed for %q: %s: %v", e.Descriptor, e.Diagnostics, e.Cause)
	}
	return fmt.Sprintf("loader: compilation failed for %q: %s", e.Descriptor, e.Diagnostics)
}

func (e *CompilationError) Unwrap() error { return ErrCompilation }
