package entities

import (
	"slices"
	"strings"
)

// LibraryDescriptor names a native module and the modules that must be
// resolved into the process before it.
type LibraryDescriptor struct {
	// PrimaryName is the logical name of the module, without platform
	// prefix or suffix (Cling, not libCling.so).
	PrimaryName string `json:"primary" yaml:"primary" validate:"required,modname"`

	// Dependencies are loaded in listed order before PrimaryName.
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty" validate:"unique,dive,required,modname"`
}

// Modules returns the load sequence of d: dependencies first, primary last.
func (d *LibraryDescriptor) Modules() []string {
	out := make([]string, 0, len(d.Dependencies)+1)
	out = append(out, d.Dependencies...)
	return append(out, d.PrimaryName)
}

// Equal reports whether two descriptors declare the same module and the
// same dependency order.
func (d *LibraryDescriptor) Equal(o *LibraryDescriptor) bool {
	if d == nil || o == nil {
		return d == o
	}
	return d.PrimaryName == o.PrimaryName && slices.Equal(d.Dependencies, o.Dependencies)
}

func (d *LibraryDescriptor) String() string {
	if len(d.Dependencies) == 0 {
		return d.PrimaryName
	}
	return d.PrimaryName + " [" + strings.Join(d.Dependencies, " ") + "]"
}

// BoundType associates a local proxy identity with a native class living in
// the module named by Descriptor.
type BoundType struct {
	// LocalIdentity is the name calling code uses for the proxy type.
	LocalIdentity string `json:"local" validate:"required"`

	// NativeClassName is the fully qualified native class, e.g. TClingClassInfo
	// or ROOT::Experimental::RFile.
	NativeClassName string `json:"native" validate:"required"`

	// Descriptor is not owned by the binding; it is shared by every bound
	// type of the same library and outlives them.
	Descriptor *LibraryDescriptor `json:"-" validate:"required"`
}

func (b *BoundType) String() string {
	return b.LocalIdentity + " -> " + b.NativeClassName + " (" + b.Descriptor.PrimaryName + ")"
}
