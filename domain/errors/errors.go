// Package errors provides the error taxonomy of the binding layer.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/vkhristenko/scaroot/domain/entities"
)

// Load causes. Loaders wrap one of these so callers can classify a
// LoadError without parsing platform messages.
var (
	// ErrNotFound means no file for the module exists on the search path.
	ErrNotFound = stdErrors.New("module not found")

	// ErrUnresolvedDependency means the module was found but references a
	// module or symbol that is not loaded.
	ErrUnresolvedDependency = stdErrors.New("unresolved dependency")

	// ErrInvalidModule means the file is not a loadable module for this
	// platform (wrong format, wrong architecture, ABI mismatch).
	ErrInvalidModule = stdErrors.New("invalid module")

	// ErrObjectDestroyed is returned when a proxy is used after Destroy.
	ErrObjectDestroyed = stdErrors.New("native object already destroyed")
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// DetailedError is implemented by errors that can describe themselves as a
// structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to a structured ErrorDetail.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	if stdErrors.Is(err, ErrObjectDestroyed) {
		return entities.NewErrorDetail("object", err.Error()).WithCode("destroyed")
	}

	return entities.NewErrorDetail("internal", err.Error())
}

// ConfigError represents a malformed descriptor, binding or manifest.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid binding configuration for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid binding configuration: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return entities.NewErrorDetail("config", e.Error()).WithCode(e.Field)
}

// NewConfigError returns a ConfigError for field with a formatted cause.
func NewConfigError(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Err: fmt.Errorf(format, args...)}
}

// LoadError reports that a named module could not be loaded.
type LoadError struct {
	Cause  error
	Module string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load module %s: %v", e.Module, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// NotFound reports whether the module file could not be located.
func (e *LoadError) NotFound() bool {
	return stdErrors.Is(e.Cause, ErrNotFound)
}

// ToErrorDetail implements DetailedError.
func (e *LoadError) ToErrorDetail() *entities.ErrorDetail {
	detail := entities.NewErrorDetail("load", e.Error()).WithCode(loadCode(e.Cause))
	detail.IsNotFound = e.NotFound()
	return detail.WithDetails(map[string]any{"module": e.Module})
}

func loadCode(cause error) string {
	switch {
	case stdErrors.Is(cause, ErrNotFound):
		return "not_found"
	case stdErrors.Is(cause, ErrUnresolvedDependency):
		return "unresolved_dependency"
	case stdErrors.Is(cause, ErrInvalidModule):
		return "invalid_module"
	default:
		return "load_failed"
	}
}

// SymbolResolutionError reports a class member missing from a module that
// otherwise loaded successfully.
type SymbolResolutionError struct {
	Err    error
	Module string
	Class  string
	Symbol string
}

func (e *SymbolResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolve %s for class %s in module %s: %v", e.Symbol, e.Class, e.Module, e.Err)
	}
	return fmt.Sprintf("resolve %s for class %s in module %s", e.Symbol, e.Class, e.Module)
}

func (e *SymbolResolutionError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *SymbolResolutionError) ToErrorDetail() *entities.ErrorDetail {
	detail := entities.NewErrorDetail("symbol", e.Error()).WithCode(e.Symbol)
	detail.IsNotFound = true
	return detail.WithDetails(map[string]any{"module": e.Module, "class": e.Class})
}
