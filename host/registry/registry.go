// Package registry records bound types by their local identity.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/vkhristenko/scaroot/domain/entities"
	"github.com/vkhristenko/scaroot/domain/errors"
	"github.com/vkhristenko/scaroot/domain/ports"
)

// registryConfig holds configuration for the Registry.
type registryConfig struct {
	strictMode bool // Fail on conflicting registrations
}

func defaultRegistryConfig() registryConfig {
	return registryConfig{
		strictMode: true,
	}
}

// RegistryOption configures a Registry instance.
type RegistryOption func(*registryConfig)

// WithStrictMode enables/disables strict mode for conflicting registrations.
// Default is true: rebinding a local identity to another class or library
// fails. With strict mode off the newer binding replaces the older one.
func WithStrictMode(enabled bool) RegistryOption {
	return func(c *registryConfig) {
		c.strictMode = enabled
	}
}

// Registry implements ports.BindingRegistry.
type Registry struct {
	config   registryConfig
	mu       sync.Mutex
	bindings sync.Map // map[string]*entities.BoundType
}

// NewRegistry creates a new Registry with the given options.
func NewRegistry(opts ...RegistryOption) ports.BindingRegistry {
	cfg := defaultRegistryConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Registry{config: cfg}
}

// Register adds a binding and returns the registered value, which is the
// existing one when an identical binding is already present.
func (r *Registry) Register(b *entities.BoundType) (*entities.BoundType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, exists := r.bindings.Load(b.LocalIdentity); exists {
		prev := v.(*entities.BoundType)
		if prev.NativeClassName == b.NativeClassName && prev.Descriptor.Equal(b.Descriptor) {
			return prev, nil
		}
		if r.config.strictMode {
			return nil, &errors.ConfigError{
				Field: "local",
				Err:   fmt.Errorf("type %q already bound as %s", b.LocalIdentity, prev),
			}
		}
	}
	r.bindings.Store(b.LocalIdentity, b)
	return b, nil
}

// Lookup returns the binding for a local identity.
func (r *Registry) Lookup(local string) (*entities.BoundType, bool) {
	v, ok := r.bindings.Load(local)
	if !ok {
		return nil, false
	}
	return v.(*entities.BoundType), true
}

// List returns all registered local identities in sorted order.
func (r *Registry) List() []string {
	var keys []string
	r.bindings.Range(func(k, v interface{}) bool {
		keys = append(keys, k.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}
