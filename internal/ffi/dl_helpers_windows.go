//go:build windows

package ffi

import (
	"fmt"
	"syscall"
)

// openLibrary loads the engine DLL.
func openLibrary(path string) (uintptr, error) {
	handle, err := syscall.LoadLibrary(path)
	if err != nil {
		return 0, fmt.Errorf("LoadLibrary %s: %w", path, err)
	}
	return uintptr(handle), nil
}

func lookupSymbol(handle uintptr, name string) (uintptr, error) {
	return syscall.GetProcAddress(syscall.Handle(handle), name)
}

func closeLibrary(handle uintptr) error {
	if handle == 0 {
		return nil
	}
	if err := syscall.FreeLibrary(syscall.Handle(handle)); err != nil {
		return fmt.Errorf("FreeLibrary: %w", err)
	}
	return nil
}
