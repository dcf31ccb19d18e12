// Package gputypes holds the data model shared by every layer of the
// runtime: accelerators, kernel descriptors, parameter kinds, and the
// fat-pointer view type used to describe device buffers. Nothing in this
// package touches a driver; it only describes shapes that the backend,
// mapper, and cache packages agree on.
package gputypes

import "fmt"

// Backend identifies a code-generation/runtime pairing for one device
// family. The set is closed: adding a fourth backend requires touching
// every switch in pkg/layout, pkg/mapper, and pkg/backend.
type Backend int

const (
	// BackendUnknown is the zero value; never a valid accelerator backend.
	BackendUnknown Backend = iota
	BackendPTX
	BackendOpenCL
	BackendCPU
)

func (b Backend) String() string {
	switch b {
	case BackendPTX:
		return "ptx"
	case BackendOpenCL:
		return "opencl"
	case BackendCPU:
		return "cpu"
	default:
		return "unknown"
	}
}

// Valid reports whether b is one of the three supported backends.
func (b Backend) Valid() bool {
	switch b {
	case BackendPTX, BackendOpenCL, BackendCPU:
		return true
	default:
		return false
	}
}

// Capabilities describes the limits of one accelerator, queried once at
// discovery time and treated as immutable thereafter.
type Capabilities struct {
	MaxThreadsPerGroup int
	SharedMemoryBytes  int
	Features           []string
}

// HasFeature reports whether the named feature flag is present.
func (c Capabilities) HasFeature(name string) bool {
	for _, f := range c.Features {
		if f == name {
			return true
		}
	}
	return false
}

// Accelerator is a handle identifying one compute device. It is created
// once at discovery and lives for the duration of the program; its cache
// is owned externally by the AcceleratorKernelCache registry (see
// pkg/cache), so Accelerator itself never references a cache.
type Accelerator struct {
	backend      Backend
	deviceID     string
	deviceName   string
	capabilities Capabilities

	// driverHandle is an opaque handle into the concrete backend package.
	// The runtime core never type-asserts this outside the matching
	// pkg/backend/* package.
	driverHandle interface{}
}

// NewAccelerator constructs an Accelerator handle. Called once by backend
// discovery code; not part of the hot path.
func NewAccelerator(backend Backend, deviceID, deviceName string, caps Capabilities, driverHandle interface{}) *Accelerator {
	return &Accelerator{
		backend:      backend,
		deviceID:     deviceID,
		deviceName:   deviceName,
		capabilities: caps,
		driverHandle: driverHandle,
	}
}

// Backend returns the accelerator's backend tag.
func (a *Accelerator) Backend() Backend { return a.backend }

// DeviceID returns the stable device identifier.
func (a *Accelerator) DeviceID() string { return a.deviceID }

// DeviceName returns the human-readable device name.
func (a *Accelerator) DeviceName() string { return a.deviceName }

// Capabilities returns the accelerator's capability record.
func (a *Accelerator) Capabilities() Capabilities { return a.capabilities }

// DriverHandle returns the backend-specific opaque handle. Only the
// matching pkg/backend/* package should type-assert the result.
func (a *Accelerator) DriverHandle() interface{} { return a.driverHandle }

// Fingerprint returns the stable string used in cache keys: device name,
// backend, max threads per group, shared-memory bytes, and the feature
// flags in the order they are stored. Two Accelerators with identical
// name, backend and capability record produce identical fingerprints,
// matching spec's "fingerprint string (name + backend + capability set)"
// definition.
func (a *Accelerator) Fingerprint() string {
	return fmt.Sprintf("%s:%s:%d:%d:%v", a.deviceName, a.backend, a.capabilities.MaxThreadsPerGroup, a.capabilities.SharedMemoryBytes, a.capabilities.Features)
}
