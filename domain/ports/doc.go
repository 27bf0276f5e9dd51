// Package ports defines interfaces for infrastructure operations.
// The linker depends on these abstractions; module loaders, manifest parsers
// and validators are adapters implementing them.
package ports
