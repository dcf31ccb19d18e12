//go:build !opencl
// +build !opencl

package opencl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/gpurt/pkg/gputypes"
	"github.com/orneryd/gpurt/pkg/kernel"
	"github.com/orneryd/gpurt/pkg/mapper"
)

func TestIsAvailableStub(t *testing.T) {
	assert.False(t, IsAvailable())
}

func TestBuildProgramStub(t *testing.T) {
	prog, err := buildProgram([]byte("__kernel void k() {}"), "")
	assert.Nil(t, prog)
	require.ErrorIs(t, err, ErrOpenCLNotAvailable)
}

func TestDispatcherBackend(t *testing.T) {
	d := New()
	assert.Equal(t, gputypes.BackendOpenCL, d.Backend())
}

func TestNewLauncherSurfacesUnavailability(t *testing.T) {
	d := New()
	ep := kernel.EntryPoint{Name: "scale"}
	compiled := kernel.NewCompiled(gputypes.BackendOpenCL, []byte("__kernel void scale() {}"), ep, "OpenCL C 1.2", nil)
	m, err := mapper.New(gputypes.BackendOpenCL, nil, ep)
	require.NoError(t, err)

	accel := gputypes.NewAccelerator(gputypes.BackendOpenCL, "0", "stub device", gputypes.Capabilities{}, nil)
	_, err = d.NewLauncher(compiled, m, accel)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOpenCLNotAvailable)
}

func TestRejectsNonOpenCLKernel(t *testing.T) {
	d := New()
	ep := kernel.EntryPoint{Name: "k"}
	compiled := kernel.NewCompiled(gputypes.BackendPTX, []byte("dummy"), ep, "ptx64_70", nil)
	m, _ := mapper.New(gputypes.BackendPTX, nil, ep)

	accel := gputypes.NewAccelerator(gputypes.BackendPTX, "0", "stub device", gputypes.Capabilities{}, nil)
	_, err := d.NewLauncher(compiled, m, accel)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "received a ptx kernel")
}
