package host

import (
	"log/slog"

	"github.com/vkhristenko/scaroot/domain/ports"
	"github.com/vkhristenko/scaroot/host/registry"
	"github.com/vkhristenko/scaroot/infrastructure/dynlib"
)

// linkerConfig holds configuration for the Linker.
type linkerConfig struct {
	loader   ports.ModuleLoader
	logger   *slog.Logger
	namer    SymbolNamer
	bindings ports.BindingRegistry
	eager    bool // Load libraries when a type is bound
}

func defaultLinkerConfig() linkerConfig {
	return linkerConfig{
		namer: CShimNamer{},
	}
}

// Option defines a functional option for configuring the Linker.
type Option func(*linkerConfig)

// WithLoader sets the platform loader used to resolve module names.
// The default opens shared libraries with the system dynamic loader.
func WithLoader(l ports.ModuleLoader) Option {
	return func(c *linkerConfig) {
		c.loader = l
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *linkerConfig) {
		c.logger = logger
	}
}

// WithEagerLoad makes Bind load the bound library immediately instead of
// deferring to the first proxy construction.
func WithEagerLoad(enabled bool) Option {
	return func(c *linkerConfig) {
		c.eager = enabled
	}
}

// WithSymbolNamer sets how native class members map to exported symbols.
func WithSymbolNamer(n SymbolNamer) Option {
	return func(c *linkerConfig) {
		c.namer = n
	}
}

// WithBindingRegistry sets the registry that records bound types.
func WithBindingRegistry(r ports.BindingRegistry) Option {
	return func(c *linkerConfig) {
		c.bindings = r
	}
}

func (c *linkerConfig) complete() {
	if c.loader == nil {
		c.loader = dynlib.New()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.namer == nil {
		c.namer = CShimNamer{}
	}
	if c.bindings == nil {
		c.bindings = registry.NewRegistry()
	}
}
