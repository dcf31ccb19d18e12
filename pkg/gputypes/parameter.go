package gputypes

import "strconv"

// ParameterKind is the tagged variant describing one kernel parameter in
// a backend-neutral representation. The mapper rejects any kind outside
// this closed set with ErrUnsupportedParameter; there is deliberately no
// escape hatch for reflective or closure-typed parameters (see spec
// design notes on runtime-reflective parameter inspection).
type ParameterKind interface {
	isParameterKind()
	// Name returns a short human-readable label used in error messages
	// and cache fingerprints.
	Name() string
}

// Primitive is a scalar parameter: an integer or floating-point value of
// a fixed bit width.
type Primitive struct {
	BitWidth int
	Signed   bool
	Float    bool
}

func (Primitive) isParameterKind() {}

func (p Primitive) Name() string {
	switch {
	case p.Float:
		return "f" + strconv.Itoa(p.BitWidth)
	case p.Signed:
		return "i" + strconv.Itoa(p.BitWidth)
	default:
		return "u" + strconv.Itoa(p.BitWidth)
	}
}

// View is a fat-pointer parameter: a device buffer described by element
// type and pointer alignment. The element type is itself a Primitive,
// since views over structs are out of scope for the core marshaller.
type View struct {
	ElementType       Primitive
	PointerAlignment int
}

func (View) isParameterKind() {}

func (v View) Name() string { return "view<" + v.ElementType.Name() + ">" }

// Struct is an aggregate parameter whose member layout is supplied by
// the caller (the code-emitter already knows the struct's field order
// and types; the mapper does not re-derive it).
type Struct struct {
	Members []ParameterKind
}

func (Struct) isParameterKind() {}

func (s Struct) Name() string {
	name := "struct{"
	for i, m := range s.Members {
		if i > 0 {
			name += ","
		}
		name += m.Name()
	}
	return name + "}"
}
