// Package entities provides the core domain types of the binding layer.
// These are plain values shared by the linker, the manifest pipeline and the
// module loaders; they carry no loading behavior of their own.
package entities
