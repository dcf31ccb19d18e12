// Package ptx implements the PTX (NVIDIA) backend: the code-emitter's
// PTX assembly text is loaded onto a CUDA module, and launches marshal
// arguments into a flat buffer consumed by cuLaunchKernel's extra-args
// mechanism. Adapted from the teacher's pkg/gpu/cuda package, which
// wraps the same CUDA driver surface for a fixed vector-search kernel;
// here the module/function/launch plumbing is kept and generalized to
// any caller-supplied PTX entry point.
//
// Like the teacher's cuda package, the real driver bridge is gated
// behind the "cuda" build tag (ptx_bridge.go); without it, ptx_stub.go
// provides a pure-Go stand-in that reports CUDA as unavailable and
// never touches cgo.
package ptx
