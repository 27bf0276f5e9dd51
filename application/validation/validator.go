// Package validation checks descriptors, bindings and manifests with
// go-playground/validator before they reach the linker.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/vkhristenko/scaroot/domain/entities"
	domainerrors "github.com/vkhristenko/scaroot/domain/errors"
	"github.com/vkhristenko/scaroot/domain/ports"
)

// validate is a package-level singleton; validator caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	if err := v.RegisterValidation("modname", validModuleName); err != nil {
		panic(err)
	}
	return v
}

// validModuleName accepts logical library names such as "Core" or
// "stdc++": no whitespace, control characters or path separators.
func validModuleName(fl validator.FieldLevel) bool {
	return ModuleName(fl.Field().String()) == nil
}

// ModuleName reports why name cannot be used as a logical module name.
func ModuleName(name string) error {
	if name == "" {
		return errors.New("must not be empty")
	}
	for _, r := range name {
		switch {
		case r == '/' || r == '\\':
			return fmt.Errorf("%q must be a logical name, not a path", name)
		case unicode.IsSpace(r) || unicode.IsControl(r):
			return fmt.Errorf("%q contains whitespace or control characters", name)
		}
	}
	return nil
}

// ValidateDescriptor checks d and returns a *errors.ConfigError describing
// the first violated constraint.
func ValidateDescriptor(d *entities.LibraryDescriptor) error {
	if d == nil {
		return domainerrors.NewConfigError("descriptor", "must not be nil")
	}
	if err := validate.Struct(d); err != nil {
		return toConfigError(err)
	}
	for i, dep := range d.Dependencies {
		if dep == d.PrimaryName {
			return domainerrors.NewConfigError(fmt.Sprintf("dependencies[%d]", i),
				"%q cannot depend on itself", d.PrimaryName)
		}
	}
	return nil
}

// ValidateBinding checks a bound type and its descriptor.
func ValidateBinding(b *entities.BoundType) error {
	if b == nil {
		return domainerrors.NewConfigError("binding", "must not be nil")
	}
	if err := validate.Struct(b); err != nil {
		return toConfigError(err)
	}
	return ValidateDescriptor(b.Descriptor)
}

func toConfigError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &domainerrors.ConfigError{Field: fieldPath(fe), Err: errors.New(describe(fe))}
	}
	return &domainerrors.ConfigError{Err: err}
}

// ManifestValidator implements ports.ManifestValidator.
type ManifestValidator struct{}

// NewManifestValidator creates a new validator.
func NewManifestValidator() ports.ManifestValidator {
	return &ManifestValidator{}
}

// Validate checks the manifest structure. Constraint violations are reported
// in the result; the error return is reserved for validator misuse.
func (v *ManifestValidator) Validate(manifest *entities.BindingManifest) (*entities.ValidationResult, error) {
	result := &entities.ValidationResult{Valid: true}
	if manifest == nil {
		return nil, errors.New("nil manifest")
	}

	if err := validate.Struct(manifest); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, err
		}
		for _, fe := range verrs {
			result.Errors = append(result.Errors, entities.ValidationError{
				Field:   fieldPath(fe),
				Message: describe(fe),
				Tag:     fe.Tag(),
			})
		}
	}

	seenLib := make(map[string]int, len(manifest.Libraries))
	seenClass := make(map[string]string)
	for i, lib := range manifest.Libraries {
		if j, dup := seenLib[lib.Name]; dup && lib.Name != "" {
			result.Errors = append(result.Errors, entities.ValidationError{
				Field:   fmt.Sprintf("libraries[%d].name", i),
				Message: fmt.Sprintf("library %q already declared at libraries[%d]", lib.Name, j),
				Tag:     "unique",
			})
		}
		seenLib[lib.Name] = i
		for k, dep := range lib.Dependencies {
			if dep == lib.Name && dep != "" {
				result.Errors = append(result.Errors, entities.ValidationError{
					Field:   fmt.Sprintf("libraries[%d].dependencies[%d]", i, k),
					Message: fmt.Sprintf("library %q cannot depend on itself", lib.Name),
					Tag:     "self",
				})
			}
		}
		for k, cls := range lib.Classes {
			if prev, dup := seenClass[cls.Name]; dup && cls.Name != "" {
				result.Errors = append(result.Errors, entities.ValidationError{
					Field:   fmt.Sprintf("libraries[%d].classes[%d].name", i, k),
					Message: fmt.Sprintf("class %q already bound in library %q", cls.Name, prev),
					Tag:     "unique",
				})
				continue
			}
			seenClass[cls.Name] = lib.Name
		}
	}

	if len(result.Errors) > 0 {
		result.Valid = false
	}
	return result, nil
}

// fieldPath drops the root struct name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must contain at least %s entries", fe.Param())
	case "unique":
		return "must not contain duplicates"
	case "modname":
		if err := ModuleName(fmt.Sprint(fe.Value())); err != nil {
			return err.Error()
		}
		return "is not a valid module name"
	default:
		return fmt.Sprintf("failed %q constraint", fe.Tag())
	}
}
