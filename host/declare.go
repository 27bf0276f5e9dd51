package host

import (
	"github.com/vkhristenko/scaroot/application/validation"
	"github.com/vkhristenko/scaroot/domain/entities"
)

// Declare builds a descriptor for primary and its ordered dependencies.
// It has no side effects; an empty primary name, an empty or repeated
// dependency, or a self dependency yields a *errors.ConfigError.
func Declare(primary string, dependencies ...string) (*entities.LibraryDescriptor, error) {
	d := &entities.LibraryDescriptor{
		PrimaryName:  primary,
		Dependencies: append([]string(nil), dependencies...),
	}
	if err := validation.ValidateDescriptor(d); err != nil {
		return nil, err
	}
	return d, nil
}
