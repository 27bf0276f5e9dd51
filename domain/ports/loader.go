package ports

import "context"

// ModuleLoader resolves a logical module name into a loaded module.
// Implementations wrap a platform loader (dlopen, LoadLibrary, a wasm
// runtime). They need not be idempotent: the linker guarantees Load is
// called at most once per successfully loaded name.
type ModuleLoader interface {
	// Load locates and loads the module. Errors should wrap one of the
	// load causes in domain/errors (ErrNotFound, ErrUnresolvedDependency,
	// ErrInvalidModule) when the cause is known.
	Load(ctx context.Context, name string) (Module, error)
}

// Module is a module resolved into the process.
type Module interface {
	// Name returns the logical name the module was loaded under.
	Name() string

	// Lookup returns the exported symbol or an error wrapping
	// errors.ErrNotFound.
	Lookup(symbol string) (Symbol, error)
}

// Symbol is a callable entry point exported by a module. Arguments and
// results are passed as raw 64-bit words; their interpretation is fixed by
// the ABI of the exported function.
type Symbol interface {
	Call(ctx context.Context, args ...uint64) ([]uint64, error)
}

// SearchPathConfigurer is implemented by loaders whose search path can be
// extended after construction.
type SearchPathConfigurer interface {
	AddSearchPath(dirs ...string)
}
