//go:build (!linux || !cgo) && !windows

package ffi

import (
	"fmt"

	"github.com/ebitengine/purego"
)

// openFlags resolves every engine symbol at load time and exports them to
// libraries the engine itself pulls in.
const openFlags = purego.RTLD_NOW | purego.RTLD_GLOBAL

func openLibrary(path string) (uintptr, error) {
	handle, err := purego.Dlopen(path, openFlags)
	if err != nil {
		return 0, fmt.Errorf("dlopen %s: %w", path, err)
	}
	return handle, nil
}

func lookupSymbol(handle uintptr, name string) (uintptr, error) {
	return purego.Dlsym(handle, name)
}

func closeLibrary(handle uintptr) error {
	if handle == 0 {
		return nil
	}
	if err := purego.Dlclose(handle); err != nil {
		return fmt.Errorf("dlclose: %w", err)
	}
	return nil
}
