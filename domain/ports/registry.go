package ports

import "github.com/vkhristenko/scaroot/domain/entities"

// BindingRegistry records bound types by local identity.
type BindingRegistry interface {
	// Register adds a binding. Registering an identical binding twice is
	// not an error; a conflicting one is.
	Register(b *entities.BoundType) (*entities.BoundType, error)

	// Lookup returns the binding for a local identity.
	Lookup(local string) (*entities.BoundType, bool)

	// List returns all registered local identities in sorted order.
	List() []string
}
