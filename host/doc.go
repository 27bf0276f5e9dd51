// Package host provides the linker that turns binding descriptors into
// loaded native modules and usable proxy objects.
//
// A Linker owns the set of modules already resolved into the process. Each
// module name moves from unloaded through loading to loaded exactly once;
// concurrent first use of the same name is coalesced so the platform loader
// runs at most once per successful load. Failed loads are not remembered,
// so a caller may fix the environment (for example a search path) and try
// again.
//
// Proxies created by Linker.New compose the ports.NativeObject capability
// set: an opaque handle, member invocation through exported symbols, and a
// destructor that runs at most once.
//
// Loading is delegated to a ports.ModuleLoader. The default loader opens
// shared libraries with the platform dynamic loader (see
// infrastructure/dynlib); infrastructure/wazero loads WebAssembly modules
// instead.
package host
