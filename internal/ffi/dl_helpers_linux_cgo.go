//go:build linux && cgo

package ffi

/*
#cgo LDFLAGS: -ldl

#include <dlfcn.h>
#include <stdlib.h>
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"
)

// lastDLError returns and clears the pending dl* error message.
func lastDLError() error {
	msg := C.dlerror()
	if msg == nil {
		return errors.New("unknown dl error")
	}
	return errors.New(C.GoString(msg))
}

func openLibrary(path string) (uintptr, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	handle := C.dlopen(cpath, C.RTLD_NOW|C.RTLD_GLOBAL)
	if handle == nil {
		return 0, fmt.Errorf("dlopen %s: %w", path, lastDLError())
	}
	return uintptr(handle), nil
}

func lookupSymbol(handle uintptr, name string) (uintptr, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	C.dlerror()
	symbol := C.dlsym(unsafe.Pointer(handle), cname)
	if symbol == nil {
		return 0, lastDLError()
	}
	return uintptr(symbol), nil
}

func closeLibrary(handle uintptr) error {
	if handle == 0 {
		return nil
	}
	if C.dlclose(unsafe.Pointer(handle)) != 0 {
		return fmt.Errorf("dlclose: %w", lastDLError())
	}
	return nil
}
