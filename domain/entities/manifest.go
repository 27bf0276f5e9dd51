package entities

// BindingManifest is the declarative form of a set of binding descriptors,
// as read from a YAML or HCL file.
type BindingManifest struct {
	// SearchPaths are handed to the module loader before anything is loaded.
	SearchPaths []string `json:"search_paths,omitempty" yaml:"search_paths,omitempty" validate:"dive,required"`

	// Eager loads every library while the manifest is being applied instead
	// of on first proxy construction.
	Eager bool `json:"eager,omitempty" yaml:"eager,omitempty"`

	Libraries []LibrarySpec `json:"libraries" yaml:"libraries" validate:"required,min=1,dive"`
}

// LibrarySpec declares one library and the classes bound from it.
type LibrarySpec struct {
	Name         string      `json:"name" yaml:"name" validate:"required,modname"`
	Dependencies []string    `json:"dependencies,omitempty" yaml:"dependencies,omitempty" validate:"unique,dive,required,modname"`
	Classes      []ClassSpec `json:"classes,omitempty" yaml:"classes,omitempty" validate:"dive"`
}

// ClassSpec binds a local proxy name to a native class. Native defaults to
// Name when empty.
type ClassSpec struct {
	Name   string `json:"name" yaml:"name" validate:"required"`
	Native string `json:"native,omitempty" yaml:"native,omitempty"`
}

// NativeName returns the native class name c binds to.
func (c ClassSpec) NativeName() string {
	if c.Native != "" {
		return c.Native
	}
	return c.Name
}

// Descriptor returns the library descriptor declared by s.
func (s LibrarySpec) Descriptor() *LibraryDescriptor {
	return &LibraryDescriptor{
		PrimaryName:  s.Name,
		Dependencies: append([]string(nil), s.Dependencies...),
	}
}
