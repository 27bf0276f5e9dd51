package ports

import "context"

// NativeObject is the capability set of a proxy for a native class
// instance: an opaque handle, member invocation, and destruction.
type NativeObject interface {
	// Handle returns the opaque native pointer or instance id.
	Handle() uint64

	// Invoke calls a member function of the native class with the handle
	// as implicit first argument.
	Invoke(ctx context.Context, member string, args ...uint64) ([]uint64, error)

	// Destroy releases the native object. It runs the native destructor at
	// most once.
	Destroy(ctx context.Context) error
}
