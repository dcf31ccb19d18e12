//go:build !cuda || !(linux || windows)
// +build !cuda !linux,!windows

package ptx

import "errors"

// ErrCUDANotAvailable is returned by every driver entry point on a
// build without the "cuda" tag, or on an unsupported platform.
var ErrCUDANotAvailable = errors.New("ptx: CUDA driver is not available (build without cuda tag or unsupported platform)")

// module is an opaque handle to a loaded PTX module (stub).
type module struct{}

// IsAvailable reports whether a real CUDA driver is linked into this
// build.
func IsAvailable() bool { return false }

// loadModule parses and registers compiled PTX text with the driver,
// returning a handle usable by launch.
func loadModule(ptxText []byte) (*module, error) {
	return nil, ErrCUDANotAvailable
}

// launch runs the named entry point from mod with the given grid and
// block extents, dynamic shared-memory size, and a flat argument buffer
// laid out per pkg/layout's PTX rules.
func launch(mod *module, entry string, grid, block [3]uint32, sharedBytes uint32, argBuffer []byte) error {
	return ErrCUDANotAvailable
}

// unloadModule releases a loaded module's driver-side resources.
func unloadModule(mod *module) error {
	return ErrCUDANotAvailable
}

// driverName reports the linked driver's version string, used as part
// of a kernel's language-version record.
func driverName() string { return "" }
