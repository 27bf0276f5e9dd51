// Package scaroot binds Go proxy types to classes in native libraries that
// must be loaded in a fixed order.
//
// A library is described by a primary module and the modules it links
// against. Dependencies are loaded first, in the order they are declared,
// then the primary module; every module is loaded at most once per process
// no matter how many bound types or goroutines need it.
//
//	d, err := scaroot.Declare("Cling", scaroot.ClingDependencies()...)
//	if err != nil {
//	    return err
//	}
//	bt, err := scaroot.Bind(ctx, "TClingClassInfo", "TClingClassInfo", d)
//	if err != nil {
//	    return err
//	}
//	info, err := scaroot.New(ctx, bt.LocalIdentity)
//	if err != nil {
//	    return err
//	}
//	defer info.Destroy(ctx)
//
// The package-level functions use a default host.Linker created on first
// use. Configure changes its options before that; programs that need
// several independent linkers use package host directly.
package scaroot
