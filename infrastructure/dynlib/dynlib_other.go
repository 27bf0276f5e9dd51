//go:build !darwin && !freebsd && !linux && !windows

package dynlib

import (
	"fmt"
	"runtime"
)

func openLibrary(file string) (library, error) {
	return nil, fmt.Errorf("dynamic loading is not supported on %s/%s", runtime.GOOS, runtime.GOARCH)
}

func callFunc(uintptr, []uintptr) uintptr {
	panic("dynlib: dynamic loading is not supported on " + runtime.GOOS)
}
