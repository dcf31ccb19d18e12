//go:build cuda && (linux || windows)
// +build cuda
// +build linux windows

package ptx

/*
#cgo linux CFLAGS: -I/usr/local/cuda/include
#cgo linux LDFLAGS: -L/usr/local/cuda/lib64 -lcuda
#cgo windows LDFLAGS: -lcuda

#include <cuda.h>
#include <stdlib.h>
#include <string.h>

static char ptx_last_error[256] = {0};

static void ptx_set_error(const char* msg) {
    strncpy(ptx_last_error, msg, sizeof(ptx_last_error) - 1);
}

static const char* ptx_get_last_error() {
    return ptx_last_error;
}

static int ptx_driver_init() {
    static int initialized = 0;
    static CUresult init_result = CUDA_SUCCESS;
    if (!initialized) {
        init_result = cuInit(0);
        initialized = 1;
    }
    return init_result == CUDA_SUCCESS;
}

static CUresult ptx_load_module(const char* text, size_t len, CUmodule* out) {
    (void)len;
    return cuModuleLoadData(out, text);
}

static CUresult ptx_get_function(CUmodule mod, const char* name, CUfunction* out) {
    return cuModuleGetFunction(out, mod, name);
}

// ptx_launch mirrors cuLaunchKernel's extra-args calling convention: the
// argument buffer is passed as a single CU_LAUNCH_PARAM_BUFFER_POINTER
// extra, exactly as the argument mapper's PTX encoding expects.
static CUresult ptx_launch(CUfunction fn,
                            unsigned int gx, unsigned int gy, unsigned int gz,
                            unsigned int bx, unsigned int by, unsigned int bz,
                            unsigned int sharedBytes,
                            void* argBuffer, size_t argBufferSize) {
    void* config[5];
    config[0] = (void*)CU_LAUNCH_PARAM_BUFFER_POINTER;
    config[1] = argBuffer;
    config[2] = (void*)CU_LAUNCH_PARAM_BUFFER_SIZE;
    config[3] = &argBufferSize;
    config[4] = (void*)CU_LAUNCH_PARAM_END;

    CUresult err = cuLaunchKernel(fn, gx, gy, gz, bx, by, bz, sharedBytes, NULL, NULL, config);
    if (err == CUDA_SUCCESS) {
        err = cuCtxSynchronize();
    }
    return err;
}

static void ptx_unload_module(CUmodule mod) {
    cuModuleUnload(mod);
}

static const char* ptx_driver_version_string() {
    static char buf[32];
    int version = 0;
    if (cuDriverGetVersion(&version) != CUDA_SUCCESS) {
        return "unknown";
    }
    snprintf(buf, sizeof(buf), "%d.%d", version/1000, (version%100)/10);
    return buf;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"
)

// ErrCUDANotAvailable signals that cuInit failed even though this
// binary was built with driver support linked in.
var ErrCUDANotAvailable = errors.New("ptx: CUDA driver initialization failed")

type module struct {
	handle C.CUmodule
}

func IsAvailable() bool {
	return C.ptx_driver_init() != 0
}

func loadModule(ptxText []byte) (*module, error) {
	if !IsAvailable() {
		return nil, ErrCUDANotAvailable
	}
	cText := C.CString(string(ptxText))
	defer C.free(unsafe.Pointer(cText))

	var handle C.CUmodule
	if res := C.ptx_load_module(cText, C.size_t(len(ptxText)), &handle); res != C.CUDA_SUCCESS {
		return nil, fmt.Errorf("ptx: cuModuleLoadData failed: code %d", int(res))
	}
	return &module{handle: handle}, nil
}

func launch(mod *module, entry string, grid, block [3]uint32, sharedBytes uint32, argBuffer []byte) error {
	cName := C.CString(entry)
	defer C.free(unsafe.Pointer(cName))

	var fn C.CUfunction
	if res := C.ptx_get_function(mod.handle, cName, &fn); res != C.CUDA_SUCCESS {
		return fmt.Errorf("ptx: cuModuleGetFunction(%q) failed: code %d", entry, int(res))
	}

	var argPtr unsafe.Pointer
	if len(argBuffer) > 0 {
		argPtr = unsafe.Pointer(&argBuffer[0])
	}

	res := C.ptx_launch(
		fn,
		C.uint(grid[0]), C.uint(grid[1]), C.uint(grid[2]),
		C.uint(block[0]), C.uint(block[1]), C.uint(block[2]),
		C.uint(sharedBytes),
		argPtr, C.size_t(len(argBuffer)),
	)
	if res != C.CUDA_SUCCESS {
		return fmt.Errorf("ptx: cuLaunchKernel(%q) failed: code %d", entry, int(res))
	}
	return nil
}

func unloadModule(mod *module) error {
	if mod == nil {
		return nil
	}
	C.ptx_unload_module(mod.handle)
	return nil
}

func driverName() string {
	return C.GoString(C.ptx_driver_version_string())
}
