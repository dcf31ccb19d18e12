package mapper

import "errors"

// Sentinel errors for the argument-mapping pipeline. Callers should use
// errors.Is against these; LayoutMismatch and ArgumentMapping additionally
// carry contextual detail via fmt.Errorf("%w: ...") wrapping at the call
// site.
var (
	// ErrUnsupportedParameter is returned when a ParameterKind outside
	// the closed {Primitive, View, Struct} set is encountered.
	ErrUnsupportedParameter = errors.New("mapper: unsupported parameter kind")

	// ErrArgumentMapping is returned when a driver set-kernel-argument
	// call reports failure (OpenCL-style dispatch).
	ErrArgumentMapping = errors.New("mapper: argument mapping failed")

	// ErrLayoutMismatch indicates the computed marshalled size does not
	// equal the entry point's expected size — a fatal code-emitter or
	// mapper divergence, never a recoverable condition.
	ErrLayoutMismatch = errors.New("mapper: layout mismatch between computed and entry-point size")
)
