//go:build darwin || freebsd || linux

package dynlib

import (
	"github.com/ebitengine/purego"
)

type dlLibrary struct {
	handle uintptr
}

func openLibrary(file string) (library, error) {
	h, err := purego.Dlopen(file, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, err
	}
	return &dlLibrary{handle: h}, nil
}

func (l *dlLibrary) symbol(name string) (uintptr, error) {
	return purego.Dlsym(l.handle, name)
}

func callFunc(addr uintptr, args []uintptr) uintptr {
	r1, _, _ := purego.SyscallN(addr, args...)
	return r1
}
