package testutil

import "encoding/binary"

// ValType is a WebAssembly value type.
type ValType byte

// Value types used by test modules.
const (
	I32 ValType = 0x7F
	I64 ValType = 0x7E
)

// Instruction opcodes used by test modules.
const (
	opCall     = 0x10
	opLocalGet = 0x20
	opI32Const = 0x41
	opI64Const = 0x42
	opEnd      = 0x0B
)

type wasmSig struct {
	params, results []ValType
}

type wasmImport struct {
	module, name string
	sig          wasmSig
}

type wasmFunc struct {
	export string
	sig    wasmSig
	body   []byte
}

type wasmData struct {
	offset uint32
	bytes  []byte
}

// WasmModule assembles a minimal binary WebAssembly module: imported and
// exported functions, one optional memory and its data segments. Imports
// must be added before functions so function indices stay stable.
type WasmModule struct {
	imports      []wasmImport
	funcs        []wasmFunc
	memoryPages  uint32
	memoryExport string
	data         []wasmData
}

// NewWasmModule returns an empty module.
func NewWasmModule() *WasmModule {
	return &WasmModule{}
}

// Import adds a function import and returns its function index.
func (m *WasmModule) Import(module, name string, params, results []ValType) uint32 {
	if len(m.funcs) > 0 {
		panic("testutil: imports must precede functions")
	}
	m.imports = append(m.imports, wasmImport{module: module, name: name, sig: wasmSig{params, results}})
	return uint32(len(m.imports) - 1) //nolint:gosec // test modules are tiny
}

// Func adds a function with the given instructions (without the trailing
// end opcode) and returns its index. An empty export name keeps it private.
func (m *WasmModule) Func(export string, params, results []ValType, code ...[]byte) uint32 {
	var body []byte
	for _, c := range code {
		body = append(body, c...)
	}
	m.funcs = append(m.funcs, wasmFunc{export: export, sig: wasmSig{params, results}, body: body})
	return uint32(len(m.imports) + len(m.funcs) - 1) //nolint:gosec // test modules are tiny
}

// Memory declares a memory of pages 64KiB pages, exported as export when
// non-empty.
func (m *WasmModule) Memory(pages uint32, export string) {
	m.memoryPages = pages
	m.memoryExport = export
}

// Data places b at offset in memory.
func (m *WasmModule) Data(offset uint32, b []byte) {
	m.data = append(m.data, wasmData{offset: offset, bytes: b})
}

// Bytes encodes the module.
func (m *WasmModule) Bytes() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}

	// Types: one per import, then one per function.
	var types [][]byte
	for _, imp := range m.imports {
		types = append(types, encodeSig(imp.sig))
	}
	for _, f := range m.funcs {
		types = append(types, encodeSig(f.sig))
	}
	if len(types) > 0 {
		out = appendSection(out, 1, encodeVec(types))
	}

	if len(m.imports) > 0 {
		var entries [][]byte
		for i, imp := range m.imports {
			e := appendName(nil, imp.module)
			e = appendName(e, imp.name)
			e = append(e, 0x00)
			e = appendU32(e, uint32(i)) //nolint:gosec // test modules are tiny
			entries = append(entries, e)
		}
		out = appendSection(out, 2, encodeVec(entries))
	}

	if len(m.funcs) > 0 {
		var entries [][]byte
		for i := range m.funcs {
			entries = append(entries, appendU32(nil, uint32(len(m.imports)+i))) //nolint:gosec // test modules are tiny
		}
		out = appendSection(out, 3, encodeVec(entries))
	}

	if m.memoryPages > 0 {
		mem := appendU32(nil, m.memoryPages)
		out = appendSection(out, 5, encodeVec([][]byte{append([]byte{0x00}, mem...)}))
	}

	var exports [][]byte
	for i, f := range m.funcs {
		if f.export == "" {
			continue
		}
		e := appendName(nil, f.export)
		e = append(e, 0x00)
		e = appendU32(e, uint32(len(m.imports)+i)) //nolint:gosec // test modules are tiny
		exports = append(exports, e)
	}
	if m.memoryPages > 0 && m.memoryExport != "" {
		e := appendName(nil, m.memoryExport)
		e = append(e, 0x02, 0x00)
		exports = append(exports, e)
	}
	if len(exports) > 0 {
		out = appendSection(out, 7, encodeVec(exports))
	}

	if len(m.funcs) > 0 {
		var bodies [][]byte
		for _, f := range m.funcs {
			body := append([]byte{0x00}, f.body...)
			body = append(body, opEnd)
			bodies = append(bodies, appendU32(nil, uint32(len(body)), body...)) //nolint:gosec // test modules are tiny
		}
		out = appendSection(out, 10, encodeVec(bodies))
	}

	if len(m.data) > 0 {
		var segs [][]byte
		for _, d := range m.data {
			s := []byte{0x00}
			s = append(s, I32Const(int32(d.offset))...) //nolint:gosec // test offsets are small
			s = append(s, opEnd)
			s = appendU32(s, uint32(len(d.bytes)), d.bytes...) //nolint:gosec // test modules are tiny
			segs = append(segs, s)
		}
		out = appendSection(out, 11, encodeVec(segs))
	}

	return out
}

// I32Const pushes a 32-bit constant.
func I32Const(v int32) []byte {
	return appendS64([]byte{opI32Const}, int64(v))
}

// I64Const pushes a 64-bit constant.
func I64Const(v int64) []byte {
	return appendS64([]byte{opI64Const}, v)
}

// LocalGet pushes parameter i.
func LocalGet(i uint32) []byte {
	return appendU32([]byte{opLocalGet}, i)
}

// Call calls function index fn.
func Call(fn uint32) []byte {
	return appendU32([]byte{opCall}, fn)
}

// PackPtrLen packs a memory offset and length into one i64 argument.
func PackPtrLen(ptr, length uint32) int64 {
	return int64(uint64(ptr)<<32 | uint64(length)) //nolint:gosec // bit pattern is what the callee expects
}

func encodeSig(s wasmSig) []byte {
	b := []byte{0x60}
	b = appendU32(b, uint32(len(s.params))) //nolint:gosec // test modules are tiny
	for _, p := range s.params {
		b = append(b, byte(p))
	}
	b = appendU32(b, uint32(len(s.results))) //nolint:gosec // test modules are tiny
	for _, r := range s.results {
		b = append(b, byte(r))
	}
	return b
}

func encodeVec(items [][]byte) []byte {
	b := appendU32(nil, uint32(len(items))) //nolint:gosec // test modules are tiny
	for _, it := range items {
		b = append(b, it...)
	}
	return b
}

func appendSection(out []byte, id byte, content []byte) []byte {
	out = append(out, id)
	return appendU32(out, uint32(len(content)), content...) //nolint:gosec // test modules are tiny
}

func appendName(b []byte, s string) []byte {
	return appendU32(b, uint32(len(s)), []byte(s)...) //nolint:gosec // test modules are tiny
}

// appendU32 appends v as unsigned LEB128 followed by rest.
func appendU32(b []byte, v uint32, rest ...byte) []byte {
	b = binary.AppendUvarint(b, uint64(v))
	return append(b, rest...)
}

// appendS64 appends v as signed LEB128.
func appendS64(b []byte, v int64) []byte {
	for {
		c := byte(v & 0x7F)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}
