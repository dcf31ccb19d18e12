// Package opencl implements the OpenCL backend: the code-emitter's
// OpenCL C source text is built into a cl_program, and launches marshal
// arguments via clSetKernelArg (set-arg mode) before enqueuing an
// N-dimensional range. Adapted from the teacher's pkg/gpu/opencl
// package, which builds a fixed, hand-written kernel source for vector
// search; here the build/kernel-create/set-arg/enqueue plumbing is kept
// and generalized to any caller-supplied OpenCL C source and entry
// point name.
//
// As in the teacher's opencl package, the real driver bridge is gated
// behind the "opencl" build tag (opencl_bridge.go); without it,
// opencl_stub.go provides a pure-Go stand-in that reports OpenCL as
// unavailable and never touches cgo.
package opencl
