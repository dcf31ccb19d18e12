package gputypes

// Specialization holds compile-time constants and an optimization level
// that the code-emitter bakes into the emitted source. Two descriptors
// with equal Specialization values are interchangeable for caching
// purposes (see KernelDescriptor's invariant).
type Specialization struct {
	Constants        map[string]string
	OptimizationLevel int
}

// Equal reports whether two specializations are value-equal.
func (s Specialization) Equal(o Specialization) bool {
	if s.OptimizationLevel != o.OptimizationLevel {
		return false
	}
	if len(s.Constants) != len(o.Constants) {
		return false
	}
	for k, v := range s.Constants {
		if o.Constants[k] != v {
			return false
		}
	}
	return true
}

// KernelDescriptor is the caller-supplied identity of a kernel to
// compile: a stable logical identifier, an ordered parameter list, and
// an optional specialization record. Two descriptors with identical
// Identifier, Parameters, and Specialization are interchangeable — the
// loader must treat them as yielding the same cache key.
type KernelDescriptor struct {
	Identifier     string
	Parameters     []ParameterKind
	Specialization Specialization
	// ImplicitlyGrouped marks a kernel whose thread grouping is computed
	// by the runtime rather than supplied explicitly; the loader and
	// mapper inject an extent argument for such kernels.
	ImplicitlyGrouped bool
}
