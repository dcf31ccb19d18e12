// Package layout computes the ABI size and alignment of parameter types
// for each backend. Its contract is the one load-bearing invariant of
// the whole marshalling pipeline: a byte offset TypeLayout computes for
// parameter i must equal the byte offset at which the driver reads that
// parameter (spec §4.1).
package layout

import "github.com/orneryd/gpurt/pkg/gputypes"

// pointerSize is the size in bytes of a device view's fat pointer
// component (pointer + length) as written into a PTX-style argument
// buffer. It is fixed regardless of host architecture: the PTX ABI
// always passes a 64-bit device pointer plus a 64-bit length.
const pointerSize = 16

// Size reports the backend-specific byte size of kind.
func Size(backend gputypes.Backend, kind gputypes.ParameterKind) int {
	l, _ := Layout(backend, kind)
	return l
}

// Alignment reports the backend-specific byte alignment of kind.
func Alignment(backend gputypes.Backend, kind gputypes.ParameterKind) int {
	_, a := Layout(backend, kind)
	return a
}

// Layout returns (size, alignment) for kind under backend's ABI rules.
func Layout(backend gputypes.Backend, kind gputypes.ParameterKind) (size, alignment int) {
	switch k := kind.(type) {
	case gputypes.Primitive:
		return primitiveLayout(backend, k)
	case gputypes.View:
		return viewLayout(backend, k)
	case gputypes.Struct:
		return structLayout(backend, k)
	default:
		return 0, 1
	}
}

func primitiveLayout(backend gputypes.Backend, p gputypes.Primitive) (size, alignment int) {
	bytes := (p.BitWidth + 7) / 8
	if bytes < 1 {
		bytes = 1
	}
	switch backend {
	case gputypes.BackendOpenCL:
		// OpenCL C vector/scalar rule: power-of-two alignment, capped at
		// 16 bytes, per the target language's memory model.
		align := nextPowerOfTwo(bytes)
		if align > 16 {
			align = 16
		}
		return bytes, align
	default:
		// PTX and CPU both use natural alignment equal to the scalar's
		// own size (host ABI rule, and PTX's structure ABI inherits it).
		return bytes, bytes
	}
}

func viewLayout(backend gputypes.Backend, v gputypes.View) (size, alignment int) {
	switch backend {
	case gputypes.BackendPTX:
		// Marshalled as a contiguous struct: pointer + length, each
		// 8 bytes, naturally aligned to 8.
		return pointerSize, 8
	case gputypes.BackendOpenCL:
		// The pointer is extracted and passed as a cl_mem handle in its
		// own slot; TypeLayout reports only the pointer-sized portion
		// since the length (if needed) travels as a separate scalar
		// argument chosen by the caller, not as part of this kind.
		align := v.PointerAlignment
		if align <= 0 {
			align = 8
		}
		return 8, align
	default: // CPU: native pointer + native length, back-to-back.
		return 16, 8
	}
}

func structLayout(backend gputypes.Backend, s gputypes.Struct) (size, alignment int) {
	offset := 0
	maxAlign := 1
	for _, m := range s.Members {
		msize, malign := Layout(backend, m)
		offset = alignUp(offset, malign) + msize
		if malign > maxAlign {
			maxAlign = malign
		}
	}
	return alignUp(offset, maxAlign), maxAlign
}

// alignUp rounds offset up to the next multiple of alignment.
func alignUp(offset, alignment int) int {
	if alignment <= 1 {
		return offset
	}
	rem := offset % alignment
	if rem == 0 {
		return offset
	}
	return offset + (alignment - rem)
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// TotalSize computes the total marshalled byte size of an ordered
// parameter list under backend's struct-packing rule: each parameter is
// placed at the next offset aligned to its own alignment requirement,
// and the final size is rounded up to the alignment of the
// widest-aligned member — mirroring structLayout but operating over a
// bare parameter list rather than a gputypes.Struct wrapper, since
// callers (mapper, tests) work with []ParameterKind directly.
func TotalSize(backend gputypes.Backend, params []gputypes.ParameterKind) int {
	s := gputypes.Struct{Members: params}
	size, _ := Layout(backend, s)
	return size
}

// Offsets returns the byte offset of each parameter in params, computed
// under the same packing rule as TotalSize.
func Offsets(backend gputypes.Backend, params []gputypes.ParameterKind) []int {
	offsets := make([]int, len(params))
	offset := 0
	for i, p := range params {
		size, align := Layout(backend, p)
		offset = alignUp(offset, align)
		offsets[i] = offset
		offset += size
	}
	return offsets
}
