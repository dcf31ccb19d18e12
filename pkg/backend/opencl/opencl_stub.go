//go:build !opencl
// +build !opencl

package opencl

import "errors"

// ErrOpenCLNotAvailable is returned by every driver entry point on a
// build without the "opencl" tag.
var ErrOpenCLNotAvailable = errors.New("opencl: OpenCL is not available (build without opencl tag)")

// program is an opaque handle to a built cl_program (stub).
type program struct{}

// kernelHandle is an opaque handle to a cl_kernel (stub).
type kernelHandle struct{}

// IsAvailable reports whether a real OpenCL ICD loader is linked into
// this build.
func IsAvailable() bool { return false }

// buildProgram compiles source (OpenCL C text) for the first available
// GPU device, returning a handle usable by createKernel.
func buildProgram(source []byte, buildOptions string) (*program, error) {
	return nil, ErrOpenCLNotAvailable
}

// createKernel resolves name inside prog, returning a handle usable by
// setArg and enqueueNDRange.
func createKernel(prog *program, name string) (*kernelHandle, error) {
	return nil, ErrOpenCLNotAvailable
}

// setArg implements mapper.SetKernelArgFunc against kn.
func setArg(kn *kernelHandle, index int, size int, value []byte) int {
	return -1
}

// enqueueNDRange enqueues kn over the given global/local work size and
// blocks until the device queue reports completion.
func enqueueNDRange(prog *program, kn *kernelHandle, dims int, globalSize, localSize [3]uint64) error {
	return ErrOpenCLNotAvailable
}

// releaseKernel releases a cl_kernel handle.
func releaseKernel(kn *kernelHandle) error { return nil }

// releaseProgram releases a cl_program handle.
func releaseProgram(prog *program) error { return nil }

// platformLanguageVersion reports the first available platform's
// OpenCL C version string (e.g. "OpenCL C 1.2"), or "" when unavailable.
func platformLanguageVersion() string { return "" }
