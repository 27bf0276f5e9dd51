// Package wazero loads WebAssembly modules as native libraries.
//
// Each module is instantiated under its own name, so a module importing
// functions from "Core" only links once a module named Core is loaded.
// That makes WebAssembly a faithful stand-in for shared libraries whose
// undefined symbols are satisfied by libraries loaded before them.
//
// # Basic Usage
//
//	loader, err := wazero.NewLoader(ctx,
//	    wazero.WithSearchPaths("/opt/root/wasm"),
//	)
//	if err != nil {
//	    return err
//	}
//	defer loader.Close(ctx)
//
//	linker := host.NewLinker(host.WithLoader(loader))
//
// # Logging
//
// Modules may import log_message from the host module (default
// "scaroot_host"). It takes one i64 packing a pointer (upper 32 bits) and a
// length (lower 32 bits) of a JSON log.LogMessageWire in the module's
// memory; the record is replayed on the loader's logger.
package wazero
