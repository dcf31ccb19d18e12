//go:build opencl && (linux || windows || darwin)
// +build opencl
// +build linux windows darwin

package opencl

/*
#cgo linux CFLAGS: -I/opt/rocm/include -I/usr/include
#cgo linux LDFLAGS: -L/opt/rocm/lib -L/usr/lib/x86_64-linux-gnu -lOpenCL
#cgo darwin CFLAGS: -framework OpenCL
#cgo darwin LDFLAGS: -framework OpenCL
#cgo windows LDFLAGS: -lOpenCL

#ifdef __APPLE__
#include <OpenCL/opencl.h>
#else
#include <CL/cl.h>
#endif

#include <stdlib.h>
#include <string.h>

static char ocl_last_error[512] = {0};

static void ocl_set_error(const char* msg) {
    strncpy(ocl_last_error, msg, sizeof(ocl_last_error) - 1);
}

static const char* ocl_get_last_error() {
    return ocl_last_error;
}

static int ocl_first_gpu(cl_platform_id* out_platform, cl_device_id* out_device) {
    cl_uint num_platforms;
    if (clGetPlatformIDs(0, NULL, &num_platforms) != CL_SUCCESS || num_platforms == 0) {
        return -1;
    }
    cl_platform_id* platforms = (cl_platform_id*)malloc(num_platforms * sizeof(cl_platform_id));
    clGetPlatformIDs(num_platforms, platforms, NULL);

    for (cl_uint i = 0; i < num_platforms; i++) {
        cl_device_id device;
        cl_uint num_devices;
        if (clGetDeviceIDs(platforms[i], CL_DEVICE_TYPE_GPU, 1, &device, &num_devices) == CL_SUCCESS && num_devices > 0) {
            *out_platform = platforms[i];
            *out_device = device;
            free(platforms);
            return 0;
        }
    }
    free(platforms);
    return -1;
}

static int ocl_is_available() {
    cl_platform_id p;
    cl_device_id d;
    return ocl_first_gpu(&p, &d) == 0 ? 1 : 0;
}

// ocl_build_program builds source against the first available GPU
// device and returns both the context/queue/program bundle so the
// caller never has to re-resolve the device per kernel.
typedef struct {
    cl_platform_id platform;
    cl_device_id device;
    cl_context context;
    cl_command_queue queue;
    cl_program program;
} ocl_program;

ocl_program* ocl_build_program(const char* source, size_t source_len, const char* build_options) {
    ocl_program* p = (ocl_program*)calloc(1, sizeof(ocl_program));
    if (!p) {
        ocl_set_error("failed to allocate program struct");
        return NULL;
    }
    if (ocl_first_gpu(&p->platform, &p->device) != 0) {
        ocl_set_error("no GPU device found");
        free(p);
        return NULL;
    }

    cl_int err;
    p->context = clCreateContext(NULL, 1, &p->device, NULL, NULL, &err);
    if (err != CL_SUCCESS) {
        ocl_set_error("clCreateContext failed");
        free(p);
        return NULL;
    }
    p->queue = clCreateCommandQueue(p->context, p->device, 0, &err);
    if (err != CL_SUCCESS) {
        ocl_set_error("clCreateCommandQueue failed");
        clReleaseContext(p->context);
        free(p);
        return NULL;
    }
    p->program = clCreateProgramWithSource(p->context, 1, &source, &source_len, &err);
    if (err != CL_SUCCESS) {
        ocl_set_error("clCreateProgramWithSource failed");
        clReleaseCommandQueue(p->queue);
        clReleaseContext(p->context);
        free(p);
        return NULL;
    }
    err = clBuildProgram(p->program, 1, &p->device, build_options, NULL, NULL);
    if (err != CL_SUCCESS) {
        size_t log_size = 0;
        clGetProgramBuildInfo(p->program, p->device, CL_PROGRAM_BUILD_LOG, 0, NULL, &log_size);
        char* log = (char*)malloc(log_size + 1);
        clGetProgramBuildInfo(p->program, p->device, CL_PROGRAM_BUILD_LOG, log_size, log, NULL);
        log[log_size] = '\0';
        ocl_set_error(log);
        free(log);
        clReleaseProgram(p->program);
        clReleaseCommandQueue(p->queue);
        clReleaseContext(p->context);
        free(p);
        return NULL;
    }
    return p;
}

void ocl_release_program(ocl_program* p) {
    if (p) {
        if (p->program) clReleaseProgram(p->program);
        if (p->queue) clReleaseCommandQueue(p->queue);
        if (p->context) clReleaseContext(p->context);
        free(p);
    }
}

cl_kernel ocl_create_kernel(ocl_program* p, const char* name, cl_int* out_err) {
    return clCreateKernel(p->program, name, out_err);
}

void ocl_release_kernel(cl_kernel k) {
    if (k) clReleaseKernel(k);
}

int ocl_set_arg(cl_kernel k, cl_uint index, size_t size, const void* value) {
    return clSetKernelArg(k, index, size, value) == CL_SUCCESS ? 0 : -1;
}

int ocl_enqueue_ndrange(ocl_program* p, cl_kernel k, cl_uint dims, const size_t* global, const size_t* local) {
    cl_int err = clEnqueueNDRangeKernel(p->queue, k, dims, NULL, global, local, 0, NULL, NULL);
    if (err != CL_SUCCESS) {
        ocl_set_error("clEnqueueNDRangeKernel failed");
        return -1;
    }
    if (clFinish(p->queue) != CL_SUCCESS) {
        ocl_set_error("clFinish failed");
        return -1;
    }
    return 0;
}

const char* ocl_platform_language_version(cl_platform_id platform) {
    static char buf[128];
    if (clGetPlatformInfo(platform, CL_PLATFORM_VERSION, sizeof(buf), buf, NULL) != CL_SUCCESS) {
        return "";
    }
    return buf;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"
)

// ErrOpenCLNotAvailable signals no GPU device was found even though
// this binary was built with the OpenCL ICD loader linked in.
var ErrOpenCLNotAvailable = errors.New("opencl: no OpenCL GPU device available")

type program struct {
	ptr *C.ocl_program
}

type kernelHandle struct {
	ptr C.cl_kernel
}

func IsAvailable() bool {
	return C.ocl_is_available() != 0
}

func buildProgram(source []byte, buildOptions string) (*program, error) {
	if !IsAvailable() {
		return nil, ErrOpenCLNotAvailable
	}
	cSource := C.CString(string(source))
	defer C.free(unsafe.Pointer(cSource))
	cOpts := C.CString(buildOptions)
	defer C.free(unsafe.Pointer(cOpts))

	ptr := C.ocl_build_program(cSource, C.size_t(len(source)), cOpts)
	if ptr == nil {
		msg := C.GoString(C.ocl_get_last_error())
		return nil, fmt.Errorf("opencl: building program: %s", msg)
	}
	return &program{ptr: ptr}, nil
}

func createKernel(prog *program, name string) (*kernelHandle, error) {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	var errCode C.cl_int
	k := C.ocl_create_kernel(prog.ptr, cName, &errCode)
	if errCode != C.CL_SUCCESS {
		return nil, fmt.Errorf("opencl: clCreateKernel(%q) failed: code %d", name, int(errCode))
	}
	return &kernelHandle{ptr: k}, nil
}

func setArg(kn *kernelHandle, index int, size int, value []byte) int {
	var ptr unsafe.Pointer
	if len(value) > 0 {
		ptr = unsafe.Pointer(&value[0])
	}
	return int(C.ocl_set_arg(kn.ptr, C.cl_uint(index), C.size_t(size), ptr))
}

func enqueueNDRange(prog *program, kn *kernelHandle, dims int, globalSize, localSize [3]uint64) error {
	global := [3]C.size_t{C.size_t(globalSize[0]), C.size_t(globalSize[1]), C.size_t(globalSize[2])}
	local := [3]C.size_t{C.size_t(localSize[0]), C.size_t(localSize[1]), C.size_t(localSize[2])}
	if C.ocl_enqueue_ndrange(prog.ptr, kn.ptr, C.cl_uint(dims), &global[0], &local[0]) != 0 {
		msg := C.GoString(C.ocl_get_last_error())
		return fmt.Errorf("opencl: %s", msg)
	}
	return nil
}

func releaseKernel(kn *kernelHandle) error {
	if kn != nil {
		C.ocl_release_kernel(kn.ptr)
	}
	return nil
}

func releaseProgram(prog *program) error {
	if prog != nil {
		C.ocl_release_program(prog.ptr)
	}
	return nil
}

func platformLanguageVersion() string {
	var platform C.cl_platform_id
	var device C.cl_device_id
	if C.ocl_first_gpu(&platform, &device) != 0 {
		return ""
	}
	return C.GoString(C.ocl_platform_language_version(platform))
}
