// Package loadertest provides an in-memory module loader for testing code
// that binds native classes. Modules can require other modules, in which
// case loading them fails like an unresolved shared library until the
// required modules have been loaded.
package loadertest

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/vkhristenko/scaroot/domain/errors"
	"github.com/vkhristenko/scaroot/domain/ports"
)

// Loader is a recording ports.ModuleLoader. It is safe for concurrent use.
type Loader struct {
	mu       sync.Mutex
	modules  map[string]*Module
	failures map[string]error
	loaded   map[string]bool
	calls    map[string]int
	order    []string
	paths    []string
	delay    time.Duration
	total    int
}

var (
	_ ports.ModuleLoader         = (*Loader)(nil)
	_ ports.SearchPathConfigurer = (*Loader)(nil)
)

// New returns a Loader that can load the named modules.
func New(names ...string) *Loader {
	l := &Loader{
		modules:  make(map[string]*Module),
		failures: make(map[string]error),
		loaded:   make(map[string]bool),
		calls:    make(map[string]int),
	}
	for _, n := range names {
		l.Add(n)
	}
	return l
}

// Add makes a module loadable and returns it for symbol definitions.
// Adding an existing name returns the existing module.
func (l *Loader) Add(name string) *Module {
	l.mu.Lock()
	defer l.mu.Unlock()
	if m, ok := l.modules[name]; ok {
		return m
	}
	m := &Module{name: name, symbols: make(map[string]ports.Symbol), calls: make(map[string]int)}
	l.modules[name] = m
	return m
}

// Remove makes a module unavailable, as if its file were deleted.
func (l *Loader) Remove(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.modules, name)
}

// Fail makes every load of name return err. A nil err clears the failure.
func (l *Loader) Fail(name string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(l.failures, name)
		return
	}
	l.failures[name] = err
}

// SetDelay makes every load take at least d, which widens race windows in
// concurrency tests.
func (l *Loader) SetDelay(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.delay = d
}

// AddSearchPath records search paths; they do not affect lookups.
func (l *Loader) AddSearchPath(dirs ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths = append(l.paths, dirs...)
}

// SearchPaths returns the recorded search paths.
func (l *Loader) SearchPaths() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.paths)
}

// Load implements ports.ModuleLoader.
func (l *Loader) Load(ctx context.Context, name string) (ports.Module, error) {
	l.mu.Lock()
	l.total++
	l.calls[name]++
	delay := l.delay
	l.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.failures[name]; err != nil {
		return nil, err
	}
	m, ok := l.modules[name]
	if !ok {
		return nil, fmt.Errorf("lib%s.so: %w", name, errors.ErrNotFound)
	}
	m.mu.Lock()
	requires := slices.Clone(m.requires)
	m.mu.Unlock()
	for _, dep := range requires {
		if !l.loaded[dep] {
			return nil, fmt.Errorf("lib%s.so: needs lib%s.so: %w", name, dep, errors.ErrUnresolvedDependency)
		}
	}
	l.loaded[name] = true
	l.order = append(l.order, name)
	return m, nil
}

// Calls returns how many times name was requested, successful or not.
func (l *Loader) Calls(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[name]
}

// TotalCalls returns the number of Load calls.
func (l *Loader) TotalCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// Order returns the names of successful loads in the order they happened.
func (l *Loader) Order() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.order)
}

// Module is an in-memory module with user-defined symbols.
type Module struct {
	mu       sync.Mutex
	symbols  map[string]ports.Symbol
	calls    map[string]int
	name     string
	requires []string
}

// Name implements ports.Module.
func (m *Module) Name() string {
	return m.name
}

// Requires makes loading m fail with errors.ErrUnresolvedDependency until
// all names have been loaded.
func (m *Module) Requires(names ...string) *Module {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requires = append(m.requires, names...)
	return m
}

// Define exports fn as symbol.
func (m *Module) Define(symbol string, fn Func) *Module {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.symbols[symbol] = countingSymbol{m: m, name: symbol, fn: fn}
	return m
}

// Lookup implements ports.Module.
func (m *Module) Lookup(symbol string) (ports.Symbol, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.symbols[symbol]
	if !ok {
		return nil, fmt.Errorf("%s: undefined symbol %s: %w", m.name, symbol, errors.ErrNotFound)
	}
	return s, nil
}

// Calls returns how many times symbol was called.
func (m *Module) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

// Func is a symbol implemented in Go.
type Func func(ctx context.Context, args ...uint64) ([]uint64, error)

// Call implements ports.Symbol.
func (f Func) Call(ctx context.Context, args ...uint64) ([]uint64, error) {
	return f(ctx, args...)
}

type countingSymbol struct {
	m    *Module
	fn   Func
	name string
}

func (s countingSymbol) Call(ctx context.Context, args ...uint64) ([]uint64, error) {
	s.m.mu.Lock()
	s.m.calls[s.name]++
	s.m.mu.Unlock()
	return s.fn(ctx, args...)
}

// Class tracks the objects of a class defined with DefineClass.
type Class struct {
	mu        sync.Mutex
	live      map[uint64]bool
	module    *Module
	name      string
	next      uint64
	destroyed int
}

// DefineClass exports NAME_new and NAME_delete. Constructors hand out
// increasing non-zero handles; destructors fail for unknown handles.
func (m *Module) DefineClass(name string) *Class {
	c := &Class{module: m, name: name, live: make(map[uint64]bool), next: 0x100}

	m.Define(name+"_new", func(context.Context, ...uint64) ([]uint64, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		h := c.next
		c.next += 0x10
		c.live[h] = true
		return []uint64{h}, nil
	})
	m.Define(name+"_delete", func(_ context.Context, args ...uint64) ([]uint64, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if len(args) == 0 || !c.live[args[0]] {
			return nil, fmt.Errorf("%s_delete: unknown handle", name)
		}
		delete(c.live, args[0])
		c.destroyed++
		return nil, nil
	})
	return c
}

// Method exports NAME_member. fn receives the object handle separately
// and fails like a crash would for handles that are not live.
func (c *Class) Method(member string, fn func(handle uint64, args ...uint64) ([]uint64, error)) *Class {
	c.module.Define(c.name+"_"+member, func(_ context.Context, args ...uint64) ([]uint64, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("%s.%s: missing object handle", c.name, member)
		}
		c.mu.Lock()
		live := c.live[args[0]]
		c.mu.Unlock()
		if !live {
			return nil, fmt.Errorf("%s.%s: handle %#x is not live", c.name, member, args[0])
		}
		return fn(args[0], args[1:]...)
	})
	return c
}

// Live returns the number of constructed objects not yet destroyed.
func (c *Class) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.live)
}

// Destroyed returns the number of successful destructor calls.
func (c *Class) Destroyed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

// AssertLoadOrder asserts the successful loads of l happened in want order.
func AssertLoadOrder(t *testing.T, l *Loader, want ...string) {
	t.Helper()
	if got := l.Order(); !slices.Equal(got, want) {
		t.Errorf("load order = %v, want %v", got, want)
	}
}

// AssertLoadedOnce asserts that each name was requested from l exactly once.
func AssertLoadedOnce(t *testing.T, l *Loader, names ...string) {
	t.Helper()
	for _, n := range names {
		if c := l.Calls(n); c != 1 {
			t.Errorf("module %s loaded %d times, want 1", n, c)
		}
	}
}
