package testutil

// Handle is returned by the constructor of every class built by LibraryWasm.
const Handle = 0x1000

// LibraryWasm builds a module that exports NAME_version and imports
// DEP_version from each dependency, so it links only after all of them.
// NAME_version returns the number of modules in the library (deps + 1).
//
// Each class gets CLASS_new (returns Handle), CLASS_delete and
// CLASS_version, which takes the object handle and returns the version of
// the first dependency, or of the library itself when it has none.
func LibraryWasm(name string, deps []string, classes ...string) []byte {
	m := NewWasmModule()
	for _, dep := range deps {
		m.Import(dep, dep+"_version", nil, []ValType{I32})
	}

	self := m.Func(name+"_version", nil, []ValType{I32}, I32Const(int32(len(deps)+1))) //nolint:gosec // small
	for _, class := range classes {
		m.Func(class+"_new", nil, []ValType{I64}, I64Const(Handle))
		m.Func(class+"_delete", []ValType{I64}, nil)
		target := self
		if len(deps) > 0 {
			target = 0
		}
		m.Func(class+"_version", []ValType{I64}, []ValType{I32}, Call(target))
	}
	return m.Bytes()
}

// LoggingWasm builds a module that exports
// emit, which passes msg (a JSON log message) to hostModule.log_message.
func LoggingWasm(hostModule string, msg []byte) []byte {
	const offset = 16

	m := NewWasmModule()
	logFn := m.Import(hostModule, "log_message", []ValType{I64}, nil)
	m.Memory(1, "memory")
	m.Data(offset, msg)
	m.Func("emit", nil, nil, I64Const(PackPtrLen(offset, uint32(len(msg)))), Call(logFn)) //nolint:gosec // small
	return m.Bytes()
}
