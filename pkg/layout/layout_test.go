package layout_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orneryd/gpurt/pkg/gputypes"
	"github.com/orneryd/gpurt/pkg/layout"
)

func TestPrimitiveLayoutPTX(t *testing.T) {
	i32 := gputypes.Primitive{BitWidth: 32, Signed: true}
	size, align := layout.Layout(gputypes.BackendPTX, i32)
	assert.Equal(t, 4, size)
	assert.Equal(t, 4, align)
}

func TestPrimitiveLayoutOpenCLCapsAlignmentAt16(t *testing.T) {
	wide := gputypes.Primitive{BitWidth: 256, Signed: true}
	_, align := layout.Layout(gputypes.BackendOpenCL, wide)
	assert.Equal(t, 16, align)
}

func TestViewLayoutPTXIsFatPointerStruct(t *testing.T) {
	v := gputypes.View{ElementType: gputypes.Primitive{BitWidth: 32, Float: true}}
	size, align := layout.Layout(gputypes.BackendPTX, v)
	assert.Equal(t, 16, size)
	assert.Equal(t, 8, align)
}

func TestOffsetsMatchSpecScenario(t *testing.T) {
	// spec §8 scenario 4: (i32, View<f32>, i64) under PTX.
	params := []gputypes.ParameterKind{
		gputypes.Primitive{BitWidth: 32, Signed: true},
		gputypes.View{ElementType: gputypes.Primitive{BitWidth: 32, Float: true}},
		gputypes.Primitive{BitWidth: 64, Signed: true},
	}
	offsets := layout.Offsets(gputypes.BackendPTX, params)
	assert.Equal(t, 0, offsets[0])
	assert.Equal(t, 8, offsets[1]) // aligned up to 8 for the view
	assert.Equal(t, 24, offsets[2])

	total := layout.TotalSize(gputypes.BackendPTX, params)
	assert.Equal(t, 32, total) // 24 + 8, rounded to 8-byte alignment
}

func TestTotalSizeEmptyParameterList(t *testing.T) {
	assert.Equal(t, 0, layout.TotalSize(gputypes.BackendPTX, nil))
}

func TestStructLayoutNestsRecursively(t *testing.T) {
	s := gputypes.Struct{Members: []gputypes.ParameterKind{
		gputypes.Primitive{BitWidth: 8, Signed: false},
		gputypes.Primitive{BitWidth: 32, Signed: true},
	}}
	size, align := layout.Layout(gputypes.BackendPTX, s)
	assert.Equal(t, 4, align)
	assert.Equal(t, 8, size) // byte at 0, pad to 4, i32 at 4..8
}
