package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWasmModule_Encoding(t *testing.T) {
	m := NewWasmModule()
	m.Func("answer", nil, []ValType{I32}, I32Const(42))
	m.Func("sink", []ValType{I32}, nil)
	m.Func("id", []ValType{I32}, []ValType{I32}, LocalGet(0))

	want := []byte{
		0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00,
		// type
		0x01, 0x0E, 0x03, 0x60, 0x00, 0x01, 0x7F, 0x60, 0x01, 0x7F, 0x00, 0x60, 0x01, 0x7F, 0x01, 0x7F,
		// function
		0x03, 0x04, 0x03, 0x00, 0x01, 0x02,
		// export
		0x07, 0x16, 0x03,
		0x06, 'a', 'n', 's', 'w', 'e', 'r', 0x00, 0x00,
		0x04, 's', 'i', 'n', 'k', 0x00, 0x01,
		0x02, 'i', 'd', 0x00, 0x02,
		// code
		0x0A, 0x0E, 0x03, 0x04, 0x00, 0x41, 0x2A, 0x0B, 0x02, 0x00, 0x0B, 0x04, 0x00, 0x20, 0x00, 0x0B,
	}
	assert.Equal(t, want, m.Bytes())
}

func TestSignedLEB(t *testing.T) {
	assert.Equal(t, []byte{0x41, 0x00}, I32Const(0))
	assert.Equal(t, []byte{0x41, 0x7F}, I32Const(-1))
	assert.Equal(t, []byte{0x41, 0xC0, 0x00}, I32Const(64))
	assert.Equal(t, []byte{0x42, 0xE5, 0x8E, 0x26}, I64Const(624485))
}

func TestImportsMustPrecedeFuncs(t *testing.T) {
	m := NewWasmModule()
	m.Func("", nil, nil)
	assert.Panics(t, func() { m.Import("Core", "f", nil, nil) })
}
