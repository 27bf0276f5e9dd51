//go:build windows

package dynlib

import (
	"syscall"

	"golang.org/x/sys/windows"
)

type dllLibrary struct {
	dll *windows.DLL
}

func openLibrary(file string) (library, error) {
	dll, err := windows.LoadDLL(file)
	if err != nil {
		return nil, err
	}
	return &dllLibrary{dll: dll}, nil
}

func (l *dllLibrary) symbol(name string) (uintptr, error) {
	proc, err := l.dll.FindProc(name)
	if err != nil {
		return 0, err
	}
	return proc.Addr(), nil
}

func callFunc(addr uintptr, args []uintptr) uintptr {
	r1, _, _ := syscall.SyscallN(addr, args...)
	return r1
}
