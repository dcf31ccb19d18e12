package mapper_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/gpurt/pkg/gputypes"
	"github.com/orneryd/gpurt/pkg/kernel"
	"github.com/orneryd/gpurt/pkg/mapper"
)

func TestMarshalBufferPTXRoundTrip(t *testing.T) {
	// spec §8 scenario 4: (i32, View<f32>, i64), inputs (7, view, -3).
	params := []gputypes.ParameterKind{
		gputypes.Primitive{BitWidth: 32, Signed: true},
		gputypes.View{ElementType: gputypes.Primitive{BitWidth: 32, Float: true}},
		gputypes.Primitive{BitWidth: 64, Signed: true},
	}
	ep := kernel.EntryPoint{Name: "k", Parameters: params}
	m, err := mapper.New(gputypes.BackendPTX, params, ep)
	require.NoError(t, err)

	view := gputypes.DeviceView{Pointer: 0xDEADBEEF, Length: 1024}
	buf, err := m.MarshalBuffer(0, []mapper.Value{int64(7), view, int64(-3)})
	require.NoError(t, err)
	assert.Equal(t, 32, len(buf))

	assert.Equal(t, int32(7), int32(binary.LittleEndian.Uint32(buf[0:4])))
	assert.Equal(t, uint64(0xDEADBEEF), binary.LittleEndian.Uint64(buf[8:16]))
	assert.Equal(t, uint64(1024), binary.LittleEndian.Uint64(buf[16:24]))
	assert.Equal(t, int64(-3), int64(binary.LittleEndian.Uint64(buf[24:32])))
}

func TestMarshalBufferRejectsWrongArgCount(t *testing.T) {
	params := []gputypes.ParameterKind{gputypes.Primitive{BitWidth: 32, Signed: true}}
	m, err := mapper.New(gputypes.BackendPTX, params, kernel.EntryPoint{Parameters: params})
	require.NoError(t, err)

	_, err = m.MarshalBuffer(0, nil)
	assert.ErrorIs(t, err, mapper.ErrArgumentMapping)
}

func TestMarshalSetArgsImplicitlyGroupedOneView(t *testing.T) {
	// spec §8 scenario 5: no dynamic shared mem, implicitly grouped, one view.
	params := []gputypes.ParameterKind{
		gputypes.View{ElementType: gputypes.Primitive{BitWidth: 32, Float: true}},
	}
	idxType := gputypes.Primitive{BitWidth: 32, Signed: false}
	ep := kernel.EntryPoint{
		Parameters:        params,
		ImplicitlyGrouped: true,
		KernelIndexType:   &idxType,
	}
	m, err := mapper.New(gputypes.BackendOpenCL, params, ep)
	require.NoError(t, err)

	type call struct {
		index int
		size  int
		value []byte
	}
	var calls []call
	setArg := func(index, size int, value []byte) int {
		cp := make([]byte, len(value))
		copy(cp, value)
		calls = append(calls, call{index, size, cp})
		return 0
	}

	view := gputypes.DeviceView{Pointer: 0x1000, Length: 64}
	err = m.MarshalSetArgs(42, nil, 0, []mapper.Value{view}, setArg)
	require.NoError(t, err)

	require.Len(t, calls, 2)
	assert.Equal(t, 0, calls[0].index)
	assert.Equal(t, 8, calls[0].size)
	assert.Equal(t, uint64(0x1000), binary.LittleEndian.Uint64(calls[0].value))

	assert.Equal(t, 1, calls[1].index)
	assert.Equal(t, 4, calls[1].size)
	assert.Equal(t, uint32(42), binary.LittleEndian.Uint32(calls[1].value))
}

func TestMarshalBufferImplicitlyGroupedNarrowIndex(t *testing.T) {
	// A 32-bit KernelIndexType reserves a 4-byte prefix slot; writing the
	// extent must not spill into the first real parameter's bytes.
	params := []gputypes.ParameterKind{
		gputypes.Primitive{BitWidth: 32, Signed: true},
	}
	idxType := gputypes.Primitive{BitWidth: 32, Signed: false}
	ep := kernel.EntryPoint{
		Parameters:        params,
		ImplicitlyGrouped: true,
		KernelIndexType:   &idxType,
	}
	m, err := mapper.New(gputypes.BackendPTX, params, ep)
	require.NoError(t, err)

	buf, err := m.MarshalBuffer(0x11223344, []mapper.Value{int64(7)})
	require.NoError(t, err)
	require.Len(t, buf, 8)

	assert.Equal(t, uint32(0x11223344), binary.LittleEndian.Uint32(buf[0:4]))
	assert.Equal(t, int32(7), int32(binary.LittleEndian.Uint32(buf[4:8])))
}

func TestMarshalSetArgsViewNotFirstParamOrdersViewBeforeExtent(t *testing.T) {
	// spec §4.2: every view parameter is emitted before the extent slot,
	// regardless of the view's position in the declared parameter list.
	params := []gputypes.ParameterKind{
		gputypes.Primitive{BitWidth: 32, Signed: true},
		gputypes.View{ElementType: gputypes.Primitive{BitWidth: 32, Float: true}},
	}
	idxType := gputypes.Primitive{BitWidth: 32, Signed: false}
	ep := kernel.EntryPoint{
		Parameters:        params,
		ImplicitlyGrouped: true,
		KernelIndexType:   &idxType,
	}
	m, err := mapper.New(gputypes.BackendOpenCL, params, ep)
	require.NoError(t, err)

	type call struct {
		index int
		value []byte
	}
	var calls []call
	setArg := func(index, size int, value []byte) int {
		cp := make([]byte, len(value))
		copy(cp, value)
		calls = append(calls, call{index, cp})
		return 0
	}

	view := gputypes.DeviceView{Pointer: 0x2000, Length: 8}
	err = m.MarshalSetArgs(99, nil, 0, []mapper.Value{int64(5), view}, setArg)
	require.NoError(t, err)

	require.Len(t, calls, 3)
	assert.Equal(t, 0, calls[0].index)
	assert.Equal(t, uint64(0x2000), binary.LittleEndian.Uint64(calls[0].value))

	assert.Equal(t, 1, calls[1].index)
	assert.Equal(t, uint32(99), binary.LittleEndian.Uint32(calls[1].value))

	assert.Equal(t, 2, calls[2].index)
	assert.Equal(t, int32(5), int32(binary.LittleEndian.Uint32(calls[2].value)))
}

func TestMarshalSetArgsNonzeroStatusFails(t *testing.T) {
	params := []gputypes.ParameterKind{gputypes.Primitive{BitWidth: 32, Signed: true}}
	m, err := mapper.New(gputypes.BackendOpenCL, params, kernel.EntryPoint{Parameters: params})
	require.NoError(t, err)

	setArg := func(index, size int, value []byte) int { return 1 }
	err = m.MarshalSetArgs(0, nil, 0, []mapper.Value{int64(5)}, setArg)
	assert.ErrorIs(t, err, mapper.ErrArgumentMapping)
}

func TestMarshalSetArgsWithDynamicSharedMemory(t *testing.T) {
	params := []gputypes.ParameterKind{gputypes.Primitive{BitWidth: 32, Signed: true}}
	ep := kernel.EntryPoint{Parameters: params, UsesDynamicSharedMemory: true}
	m, err := mapper.New(gputypes.BackendOpenCL, params, ep)
	require.NoError(t, err)

	var indices []int
	setArg := func(index, size int, value []byte) int {
		indices = append(indices, index)
		return 0
	}
	err = m.MarshalSetArgs(0, make([]byte, 16), 16, []mapper.Value{int64(1)}, setArg)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, indices)
}
