package mapper

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/orneryd/gpurt/pkg/gputypes"
	"github.com/orneryd/gpurt/pkg/kernel"
	"github.com/orneryd/gpurt/pkg/layout"
)

// Value is the runtime value bound to one ParameterKind at launch time:
// an int64 for signed Primitives, a uint64 for unsigned Primitives, a
// float64 for float Primitives (narrowed to float32 when BitWidth==32),
// a gputypes.DeviceView for View parameters, or a []Value for Struct
// members. Any other dynamic type is rejected as unsupported — this is
// the load-time replacement for the source's runtime-reflective
// parameter inspection (see design notes): the kind list is statically
// enumerated, so no reflection is needed once the descriptor is parsed.
type Value interface{}

// SetKernelArgFunc is the OpenCL-style driver call
// `set_kernel_argument(kernel, index, size, &value)`. It returns a
// driver status code; zero means success. The mapper never inspects the
// meaning of a nonzero code beyond "nonzero" — that belongs to the
// backend package wrapping this call.
type SetKernelArgFunc func(index int, size int, value []byte) int

// Mapper produces, for one (backend, parameter list, entry point)
// combination, the marshalling routine described in spec §4.2. It is
// built once at load time and reused for every launch of the same
// kernel — a small interpreter over the parameter-kind list with a
// precomputed offset table, rather than generated code.
type Mapper struct {
	backend    gputypes.Backend
	params     []gputypes.ParameterKind
	entryPoint kernel.EntryPoint
	offsets    []int
	totalSize  int
}

// New builds a Mapper for backend, validating that every parameter kind
// is supported. The entry point's ExpectedBufferSize, when set, is
// checked by MarshalBuffer, not here.
func New(backend gputypes.Backend, params []gputypes.ParameterKind, ep kernel.EntryPoint) (*Mapper, error) {
	for _, p := range params {
		if err := validateKind(p); err != nil {
			return nil, err
		}
	}
	m := &Mapper{
		backend:    backend,
		params:     params,
		entryPoint: ep,
	}
	if backend == gputypes.BackendPTX {
		m.offsets = layout.Offsets(backend, params)
		m.totalSize = layout.TotalSize(backend, params)
	}
	return m, nil
}

func validateKind(k gputypes.ParameterKind) error {
	switch v := k.(type) {
	case gputypes.Primitive, gputypes.View:
		return nil
	case gputypes.Struct:
		for _, m := range v.Members {
			if err := validateKind(m); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedParameter, k)
	}
}


// MarshalBuffer implements the PTX-style (buffer mode) algorithm: it
// packs args into a contiguous byte buffer whose layout matches
// TypeLayout's offsets, optionally prefixed by an injected extent value
// for implicitly-grouped kernels, and returns the buffer together with
// its total size for the driver launch call.
func (m *Mapper) MarshalBuffer(extent uint64, args []Value) ([]byte, error) {
	if m.backend != gputypes.BackendPTX {
		return nil, fmt.Errorf("mapper: MarshalBuffer is only valid for the PTX backend, got %s", m.backend)
	}
	if len(args) != len(m.params) {
		return nil, fmt.Errorf("%w: expected %d arguments, got %d", ErrArgumentMapping, len(m.params), len(args))
	}

	prefix := 0
	if m.entryPoint.ImplicitlyGroupedSlotSize() > 0 {
		prefix = m.entryPoint.ImplicitlyGroupedSlotSize()
	}
	buf := make([]byte, prefix+m.totalSize)

	if prefix > 0 {
		putUnsignedLE(buf[0:prefix], extent)
	}

	for i, p := range m.params {
		off := prefix + m.offsets[i]
		sz := layout.Size(m.backend, p)
		if err := encodeInto(buf[off:off+sz], m.backend, p, args[i]); err != nil {
			return nil, fmt.Errorf("mapper: argument %d (%s): %w", i, p.Name(), err)
		}
	}

	if m.entryPoint.ExpectedBufferSize > 0 && len(buf) != m.entryPoint.ExpectedBufferSize {
		return nil, fmt.Errorf("%w: computed %d bytes, entry point expects %d", ErrLayoutMismatch, len(buf), m.entryPoint.ExpectedBufferSize)
	}

	return buf, nil
}

// MarshalSetArgs implements the OpenCL-style (set-arg mode) algorithm:
// dynamic-shared-memory slots first (when used), then every view
// parameter's device pointer in declared order, then the extent argument
// for implicitly-grouped kernels, then the remaining (non-view) user
// arguments in declared order. It calls setArg for each slot and OR's the
// returned status codes; a nonzero accumulated status yields
// ErrArgumentMapping.
func (m *Mapper) MarshalSetArgs(extent uint64, sharedBuffer []byte, sharedSize uint64, args []Value, setArg SetKernelArgFunc) error {
	if m.backend != gputypes.BackendOpenCL {
		return fmt.Errorf("mapper: MarshalSetArgs is only valid for the OpenCL backend, got %s", m.backend)
	}
	if len(args) != len(m.params) {
		return fmt.Errorf("%w: expected %d arguments, got %d", ErrArgumentMapping, len(m.params), len(args))
	}

	index := 0
	status := 0

	if m.entryPoint.UsesDynamicSharedMemory {
		status |= setArg(index, len(sharedBuffer), sharedBuffer)
		index++
		sizeBuf := make([]byte, 8)
		binary.LittleEndian.PutUint64(sizeBuf, sharedSize)
		status |= setArg(index, 8, sizeBuf)
		index++
	}

	for i, p := range m.params {
		if _, isView := p.(gputypes.View); !isView {
			continue
		}
		buf, err := encodeOpenCLArg(p, args[i])
		if err != nil {
			return fmt.Errorf("mapper: argument %d (%s): %w", i, p.Name(), err)
		}
		status |= setArg(index, len(buf), buf)
		index++
	}

	if slot := m.entryPoint.ImplicitlyGroupedSlotSize(); slot > 0 {
		extentBuf := make([]byte, slot)
		putUnsignedLE(extentBuf, extent)
		status |= setArg(index, slot, extentBuf)
		index++
	}

	for i, p := range m.params {
		if _, isView := p.(gputypes.View); isView {
			continue
		}
		buf, err := encodeOpenCLArg(p, args[i])
		if err != nil {
			return fmt.Errorf("mapper: argument %d (%s): %w", i, p.Name(), err)
		}
		status |= setArg(index, len(buf), buf)
		index++
	}

	if status != 0 {
		return fmt.Errorf("%w: accumulated status 0x%x", ErrArgumentMapping, status)
	}
	return nil
}

// encodeInto writes val's bytes into dst according to kind's PTX-style
// layout. dst is pre-sized to exactly kind's computed size.
func encodeInto(dst []byte, backend gputypes.Backend, kind gputypes.ParameterKind, val Value) error {
	switch k := kind.(type) {
	case gputypes.Primitive:
		return encodePrimitive(dst, k, val)
	case gputypes.View:
		view, ok := val.(gputypes.DeviceView)
		if !ok {
			return fmt.Errorf("%w: expected gputypes.DeviceView, got %T", ErrUnsupportedParameter, val)
		}
		binary.LittleEndian.PutUint64(dst[0:8], uint64(view.Pointer))
		binary.LittleEndian.PutUint64(dst[8:16], view.Length)
		return nil
	case gputypes.Struct:
		members, ok := val.([]Value)
		if !ok {
			return fmt.Errorf("%w: expected []Value for struct, got %T", ErrUnsupportedParameter, val)
		}
		if len(members) != len(k.Members) {
			return fmt.Errorf("%w: struct expects %d members, got %d", ErrArgumentMapping, len(k.Members), len(members))
		}
		offsets := layout.Offsets(backend, k.Members)
		for i, m := range k.Members {
			sz := layout.Size(backend, m)
			if err := encodeInto(dst[offsets[i]:offsets[i]+sz], backend, m, members[i]); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedParameter, kind)
	}
}

func encodePrimitive(dst []byte, p gputypes.Primitive, val Value) error {
	switch {
	case p.Float && p.BitWidth == 32:
		f, ok := val.(float64)
		if !ok {
			return fmt.Errorf("%w: expected float64, got %T", ErrUnsupportedParameter, val)
		}
		binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(f)))
	case p.Float && p.BitWidth == 64:
		f, ok := val.(float64)
		if !ok {
			return fmt.Errorf("%w: expected float64, got %T", ErrUnsupportedParameter, val)
		}
		binary.LittleEndian.PutUint64(dst, math.Float64bits(f))
	case p.Signed:
		i, ok := val.(int64)
		if !ok {
			return fmt.Errorf("%w: expected int64, got %T", ErrUnsupportedParameter, val)
		}
		putSignedLE(dst, i)
	default:
		u, ok := val.(uint64)
		if !ok {
			return fmt.Errorf("%w: expected uint64, got %T", ErrUnsupportedParameter, val)
		}
		putUnsignedLE(dst, u)
	}
	return nil
}

func putUnsignedLE(dst []byte, u uint64) {
	for i := range dst {
		dst[i] = byte(u >> (8 * i))
	}
}

func putSignedLE(dst []byte, i int64) {
	putUnsignedLE(dst, uint64(i))
}

// encodeOpenCLArg marshals one argument into the flat byte form passed
// to SetKernelArgFunc; Views collapse to just their device pointer (the
// "dedicated slot" rule), never their length.
func encodeOpenCLArg(kind gputypes.ParameterKind, val Value) ([]byte, error) {
	switch k := kind.(type) {
	case gputypes.View:
		view, ok := val.(gputypes.DeviceView)
		if !ok {
			return nil, fmt.Errorf("%w: expected gputypes.DeviceView, got %T", ErrUnsupportedParameter, val)
		}
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(view.Pointer))
		return buf, nil
	case gputypes.Primitive:
		size := layout.Size(gputypes.BackendOpenCL, k)
		buf := make([]byte, size)
		if err := encodePrimitive(buf, k, val); err != nil {
			return nil, err
		}
		return buf, nil
	case gputypes.Struct:
		members, ok := val.([]Value)
		if !ok {
			return nil, fmt.Errorf("%w: expected []Value for struct, got %T", ErrUnsupportedParameter, val)
		}
		size := layout.Size(gputypes.BackendOpenCL, k)
		buf := make([]byte, size)
		offsets := layout.Offsets(gputypes.BackendOpenCL, k.Members)
		for i, m := range k.Members {
			msz := layout.Size(gputypes.BackendOpenCL, m)
			if err := encodeInto(buf[offsets[i]:offsets[i]+msz], gputypes.BackendOpenCL, m, members[i]); err != nil {
				return nil, err
			}
		}
		return buf, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedParameter, kind)
	}
}
