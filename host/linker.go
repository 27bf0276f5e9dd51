package host

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vkhristenko/scaroot/application/validation"
	"github.com/vkhristenko/scaroot/domain/entities"
	"github.com/vkhristenko/scaroot/domain/errors"
	"github.com/vkhristenko/scaroot/domain/ports"
)

// Linker resolves binding descriptors into loaded modules. It is safe for
// concurrent use. Modules are never unloaded.
type Linker struct {
	config linkerConfig

	mu          sync.Mutex
	state       map[string]entities.ModuleState
	modules     map[string]ports.Module
	order       []string
	descriptors map[string]*entities.LibraryDescriptor

	flights singleflight.Group
	symbols sync.Map // symbolKey -> ports.Symbol
}

type symbolKey struct {
	module string
	symbol string
}

// NewLinker creates a Linker with the given options.
func NewLinker(opts ...Option) *Linker {
	cfg := defaultLinkerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.complete()

	return &Linker{
		config:      cfg,
		state:       make(map[string]entities.ModuleState),
		modules:     make(map[string]ports.Module),
		descriptors: make(map[string]*entities.LibraryDescriptor),
	}
}

// ModuleLoader returns the platform loader in use.
func (l *Linker) ModuleLoader() ports.ModuleLoader {
	return l.config.loader
}

// Declare builds a descriptor like the package-level Declare and records it,
// so that other descriptors naming primary as a dependency load its
// dependencies first. Redeclaring an identical descriptor returns the
// recorded one; a different dependency list for the same primary name is a
// *errors.ConfigError.
func (l *Linker) Declare(primary string, dependencies ...string) (*entities.LibraryDescriptor, error) {
	d, err := Declare(primary, dependencies...)
	if err != nil {
		return nil, err
	}
	return l.register(d)
}

func (l *Linker) register(d *entities.LibraryDescriptor) (*entities.LibraryDescriptor, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if prev, ok := l.descriptors[d.PrimaryName]; ok {
		if !prev.Equal(d) {
			return nil, errors.NewConfigError("dependencies",
				"module %s already declared as %s, redeclared as %s", d.PrimaryName, prev, d)
		}
		return prev, nil
	}
	l.descriptors[d.PrimaryName] = d
	return d, nil
}

// Descriptor returns the recorded descriptor for a primary module name.
func (l *Linker) Descriptor(primary string) (*entities.LibraryDescriptor, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.descriptors[primary]
	return d, ok
}

// EnsureLoaded loads the dependencies of d in listed order and then its
// primary module. Modules already loaded by this linker are skipped. The
// first module that fails stops the sequence with a *errors.LoadError;
// modules loaded before it stay loaded, and a later call retries from the
// failed module.
//
// Concurrent callers block until the attempt they joined completes and all
// observe its outcome. The context is checked before each module; a load in
// progress is not interrupted by any caller's cancellation. A canceled
// context is reported as a *errors.LoadError wrapping ctx.Err().
func (l *Linker) EnsureLoaded(ctx context.Context, d *entities.LibraryDescriptor) error {
	if err := validation.ValidateDescriptor(d); err != nil {
		return err
	}
	d, err := l.register(d)
	if err != nil {
		return err
	}

	plan, err := l.plan(d)
	if err != nil {
		return err
	}
	for _, name := range plan {
		if err := l.ensureModule(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// plan returns the load sequence for d. Dependencies that have their own
// recorded descriptor expand depth first in place.
func (l *Linker) plan(d *entities.LibraryDescriptor) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.planLocked(d)
}

func (l *Linker) planLocked(d *entities.LibraryDescriptor) ([]string, error) {
	var (
		out      []string
		seen     = make(map[string]bool)
		visiting []string
	)
	dependencies := func(name string) ([]string, bool) {
		if name == d.PrimaryName {
			return d.Dependencies, true
		}
		if rec, ok := l.descriptors[name]; ok {
			return rec.Dependencies, true
		}
		return nil, false
	}
	var visit func(name string) error
	visit = func(name string) error {
		if seen[name] {
			return nil
		}
		if i := slices.Index(visiting, name); i >= 0 {
			cycle := append(slices.Clone(visiting[i:]), name)
			return errors.NewConfigError("dependencies", "dependency cycle %s", strings.Join(cycle, " -> "))
		}
		if deps, ok := dependencies(name); ok {
			visiting = append(visiting, name)
			for _, dep := range deps {
				if err := visit(dep); err != nil {
					return err
				}
			}
			visiting = visiting[:len(visiting)-1]
		}
		seen[name] = true
		out = append(out, name)
		return nil
	}

	if err := visit(d.PrimaryName); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *Linker) ensureModule(ctx context.Context, name string) error {
	if l.State(name) == entities.ModuleLoaded {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return &errors.LoadError{Module: name, Cause: err}
	}

	// The attempt is shared by every caller that joins it, so it must not
	// end with the first caller's context.
	loadCtx := context.WithoutCancel(ctx)
	_, err, shared := l.flights.Do(name, func() (any, error) {
		l.mu.Lock()
		if l.state[name] == entities.ModuleLoaded {
			l.mu.Unlock()
			return nil, nil
		}
		l.state[name] = entities.ModuleLoading
		l.mu.Unlock()

		start := time.Now()
		mod, err := l.load(loadCtx, name)

		l.mu.Lock()
		defer l.mu.Unlock()
		if err != nil {
			delete(l.state, name)
			l.config.logger.WarnContext(loadCtx, "Module load failed", "module", name, "error", err)
			return nil, &errors.LoadError{Module: name, Cause: err}
		}
		l.state[name] = entities.ModuleLoaded
		l.modules[name] = mod
		l.order = append(l.order, name)
		l.config.logger.DebugContext(loadCtx, "Module loaded", "module", name, "duration", time.Since(start))
		return nil, nil
	})
	if shared && err != nil {
		l.config.logger.DebugContext(ctx, "Joined failed module load", "module", name)
	}
	return err
}

// load calls the platform loader, turning a panic into an error so the
// module does not stay in the loading state.
func (l *Linker) load(ctx context.Context, name string) (mod ports.Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("loader panic: %v", r)
		}
	}()
	mod, err = l.config.loader.Load(ctx, name)
	if err == nil && mod == nil {
		err = fmt.Errorf("loader returned no module: %w", errors.ErrInvalidModule)
	}
	return mod, err
}

// State returns the lifecycle state of a module name.
func (l *Linker) State(name string) entities.ModuleState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state[name]
}

// IsLoaded reports whether every module EnsureLoaded(d) would load is
// loaded, including dependencies of recorded dependency descriptors.
func (l *Linker) IsLoaded(d *entities.LibraryDescriptor) bool {
	if d == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	names, err := l.planLocked(d)
	if err != nil {
		return false
	}
	for _, name := range names {
		if l.state[name] != entities.ModuleLoaded {
			return false
		}
	}
	return true
}

// Loaded returns the loaded module names in load order.
func (l *Linker) Loaded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.order)
}

// Module returns a loaded module by name.
func (l *Linker) Module(name string) (ports.Module, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.modules[name]
	return m, ok
}

// Bind associates a local proxy identity with a native class living in the
// primary module of d. Nothing is loaded unless the linker was created with
// WithEagerLoad(true), in which case the library is loaded before Bind
// returns and a load failure is returned.
//
// Binding the same identity twice with the same class and library returns
// the existing binding.
func (l *Linker) Bind(ctx context.Context, local, native string, d *entities.LibraryDescriptor) (*entities.BoundType, error) {
	bt := &entities.BoundType{LocalIdentity: local, NativeClassName: native, Descriptor: d}
	if err := validation.ValidateBinding(bt); err != nil {
		return nil, err
	}
	canonical, err := l.register(d)
	if err != nil {
		return nil, err
	}
	bt.Descriptor = canonical

	bt, err = l.config.bindings.Register(bt)
	if err != nil {
		return nil, err
	}
	l.config.logger.DebugContext(ctx, "Type bound", "local", local, "native", native, "library", canonical.PrimaryName)

	if l.config.eager {
		if err := l.EnsureLoaded(ctx, canonical); err != nil {
			return bt, err
		}
	}
	return bt, nil
}

// Binding returns the bound type registered under a local identity.
func (l *Linker) Binding(local string) (*entities.BoundType, bool) {
	return l.config.bindings.Lookup(local)
}

// Bindings returns all bound types ordered by local identity.
func (l *Linker) Bindings() []*entities.BoundType {
	names := l.config.bindings.List()
	out := make([]*entities.BoundType, 0, len(names))
	for _, n := range names {
		if bt, ok := l.config.bindings.Lookup(n); ok {
			out = append(out, bt)
		}
	}
	return out
}

// resolve looks up a symbol in the primary module of bt. The module must
// already be loaded.
func (l *Linker) resolve(bt *entities.BoundType, symbol string) (ports.Symbol, error) {
	module := bt.Descriptor.PrimaryName
	key := symbolKey{module: module, symbol: symbol}
	if s, ok := l.symbols.Load(key); ok {
		return s.(ports.Symbol), nil
	}

	mod, ok := l.Module(module)
	if !ok {
		return nil, &errors.LoadError{Module: module, Cause: fmt.Errorf("not loaded")}
	}
	s, err := mod.Lookup(symbol)
	if err != nil {
		return nil, &errors.SymbolResolutionError{
			Module: module,
			Class:  bt.NativeClassName,
			Symbol: symbol,
			Err:    err,
		}
	}
	actual, _ := l.symbols.LoadOrStore(key, s)
	return actual.(ports.Symbol), nil
}
