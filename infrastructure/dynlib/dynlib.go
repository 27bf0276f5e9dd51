// Package dynlib loads native shared libraries with the platform dynamic
// loader: dlopen on Linux, macOS and FreeBSD, LoadLibrary on Windows.
//
// Library names are platform independent ("Cling", "stdc++", "z") and are
// expanded to file names such as libCling.so, libCling.dylib or Cling.dll.
// Libraries are opened with global symbol visibility, so a library loaded
// later can link against symbols of the libraries loaded before it.
package dynlib

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/vkhristenko/scaroot/domain/errors"
	"github.com/vkhristenko/scaroot/domain/ports"
)

// maxArgs is the largest argument count a symbol can be called with.
const maxArgs = 15

// loaderConfig holds configuration for the Loader.
type loaderConfig struct {
	logger       *slog.Logger
	goos         string
	searchPaths  []string
	systemDirs   []string
	systemSearch bool
}

func defaultLoaderConfig() loaderConfig {
	return loaderConfig{
		goos:         runtime.GOOS,
		systemDirs:   systemDirs(runtime.GOOS, runtime.GOARCH),
		systemSearch: true,
	}
}

// Option configures the Loader.
type Option func(*loaderConfig)

// WithSearchPaths sets directories searched before the system locations.
func WithSearchPaths(dirs ...string) Option {
	return func(c *loaderConfig) {
		c.searchPaths = append(c.searchPaths, dirs...)
	}
}

// WithSystemSearch enables/disables the fallback to the platform loader's
// own lookup (LD_LIBRARY_PATH, the linker cache, PATH on Windows) and to
// the standard library directories. Enabled by default.
func WithSystemSearch(enabled bool) Option {
	return func(c *loaderConfig) {
		c.systemSearch = enabled
	}
}

// WithSystemDirs replaces the standard library directories searched last.
func WithSystemDirs(dirs ...string) Option {
	return func(c *loaderConfig) {
		c.systemDirs = dirs
	}
}

// WithLogger sets the logger used for load attempts.
func WithLogger(logger *slog.Logger) Option {
	return func(c *loaderConfig) {
		c.logger = logger
	}
}

// Loader implements ports.ModuleLoader with the platform dynamic loader.
// A library opened once stays open for the life of the process.
type Loader struct {
	config loaderConfig

	mu      sync.Mutex
	modules map[string]*module
}

var (
	_ ports.ModuleLoader         = (*Loader)(nil)
	_ ports.SearchPathConfigurer = (*Loader)(nil)
)

// New creates a Loader.
func New(opts ...Option) *Loader {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return &Loader{config: cfg, modules: make(map[string]*module)}
}

// AddSearchPath appends directories to the search path. Directories
// already in it are skipped.
func (l *Loader) AddSearchPath(dirs ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, dir := range dirs {
		if !slices.Contains(l.config.searchPaths, dir) {
			l.config.searchPaths = append(l.config.searchPaths, dir)
		}
	}
}

// Load opens the library called name. Candidates are tried in order:
// files in the search paths, the bare file names through the platform
// loader, then files in the system directories. When every candidate
// fails, the most specific failure is returned: a library that exists but
// cannot be linked wins over one that was not found.
func (l *Loader) Load(ctx context.Context, name string) (ports.Module, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if m, ok := l.modules[name]; ok {
		return m, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		failure error
		tried   int
	)
	attempt := func(file string, exists bool) *module {
		tried++
		lib, err := openLibrary(file)
		if err == nil {
			l.config.logger.DebugContext(ctx, "dynlib: library opened", "module", name, "file", file)
			return &module{name: name, file: file, lib: lib}
		}
		err = fmt.Errorf("open %s: %w", file, classify(file, err, exists))
		l.config.logger.DebugContext(ctx, "dynlib: candidate rejected", "module", name, "error", err)
		if failure == nil || stdErrors.Is(failure, errors.ErrNotFound) && !stdErrors.Is(err, errors.ErrNotFound) {
			failure = err
		}
		return nil
	}

	dirs := l.config.searchPaths
	if l.config.systemSearch {
		if m := l.searchDirs(dirs, name, attempt); m != nil {
			return l.keep(m), nil
		}
		for _, file := range fileNames(l.config.goos, name) {
			if m := attempt(file, false); m != nil {
				return l.keep(m), nil
			}
		}
		dirs = l.config.systemDirs
	}
	if m := l.searchDirs(dirs, name, attempt); m != nil {
		return l.keep(m), nil
	}

	if failure != nil && !stdErrors.Is(failure, errors.ErrNotFound) {
		return nil, failure
	}
	return nil, fmt.Errorf("no %s in %v after %d candidates: %w",
		strings.Join(fileNames(l.config.goos, name), " or "), l.config.searchPaths, tried, errors.ErrNotFound)
}

func (l *Loader) searchDirs(dirs []string, name string, attempt func(string, bool) *module) *module {
	for _, dir := range dirs {
		for _, file := range candidates(l.config.goos, dir, name) {
			if m := attempt(file, true); m != nil {
				return m
			}
		}
	}
	return nil
}

func (l *Loader) keep(m *module) *module {
	l.modules[m.name] = m
	return m
}

// candidates returns the existing files in dir that may hold name,
// exact names first, then versioned names in lexical order.
func candidates(goos, dir, name string) []string {
	var out []string
	for _, file := range fileNames(goos, name) {
		p := filepath.Join(dir, file)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			out = append(out, p)
		}
	}
	if pattern := versionedPattern(goos, name); pattern != "" {
		matches, _ := filepath.Glob(filepath.Join(dir, pattern))
		out = append(out, matches...)
	}
	return out
}

// fileNames returns the exact file names a library may have on goos.
func fileNames(goos, name string) []string {
	switch goos {
	case "windows":
		return []string{name + ".dll", "lib" + name + ".dll"}
	case "darwin", "ios":
		return []string{"lib" + name + ".dylib", name + ".dylib", "lib" + name + ".so"}
	default:
		return []string{"lib" + name + ".so", name + ".so"}
	}
}

// versionedPattern returns a glob matching versioned file names, such as
// libz.so.1 or libz.1.dylib.
func versionedPattern(goos, name string) string {
	switch goos {
	case "windows":
		return ""
	case "darwin", "ios":
		return "lib" + name + ".*.dylib"
	default:
		return "lib" + name + ".so.*"
	}
}

// systemDirs returns the standard library directories of a platform.
func systemDirs(goos, goarch string) []string {
	switch goos {
	case "linux":
		dirs := []string{}
		if triple := multiarch(goarch); triple != "" {
			dirs = append(dirs, "/lib/"+triple, "/usr/lib/"+triple)
		}
		return append(dirs, "/lib64", "/usr/lib64", "/lib", "/usr/lib", "/usr/local/lib")
	case "darwin":
		return []string{"/usr/local/lib", "/opt/homebrew/lib", "/usr/lib"}
	case "freebsd":
		return []string{"/lib", "/usr/lib", "/usr/local/lib"}
	default:
		return nil
	}
}

func multiarch(goarch string) string {
	switch goarch {
	case "amd64":
		return "x86_64-linux-gnu"
	case "arm64":
		return "aarch64-linux-gnu"
	case "386":
		return "i386-linux-gnu"
	case "arm":
		return "arm-linux-gnueabihf"
	case "riscv64":
		return "riscv64-linux-gnu"
	case "ppc64le":
		return "powerpc64le-linux-gnu"
	case "s390x":
		return "s390x-linux-gnu"
	default:
		return ""
	}
}

// classify maps a platform loader message to a load cause. exists tells
// whether file was found on disk before opening it.
func classify(file string, err error, exists bool) error {
	msg := strings.ToLower(err.Error())
	own := strings.ToLower(filepath.Base(file)) + ": cannot open shared object"

	switch {
	case strings.Contains(msg, "invalid elf header"),
		strings.Contains(msg, "file too short"),
		strings.Contains(msg, "wrong elf class"),
		strings.Contains(msg, "not a mach-o file"),
		strings.Contains(msg, "incompatible architecture"),
		strings.Contains(msg, "not a valid win32 application"):
		return fmt.Errorf("%v: %w", err, errors.ErrInvalidModule)

	case strings.Contains(msg, "undefined symbol"),
		strings.Contains(msg, "symbol not found"),
		strings.Contains(msg, "library not loaded"):
		return fmt.Errorf("%v: %w", err, errors.ErrUnresolvedDependency)

	case strings.Contains(msg, "cannot open shared object"):
		if strings.HasPrefix(msg, own) || strings.Contains(msg, "/"+own) && !exists {
			return fmt.Errorf("%v: %w", err, errors.ErrNotFound)
		}
		return fmt.Errorf("%v: %w", err, errors.ErrUnresolvedDependency)

	case strings.Contains(msg, "could not be found"),
		strings.Contains(msg, "no such file"),
		strings.Contains(msg, "image not found"):
		if exists {
			return fmt.Errorf("%v: %w", err, errors.ErrUnresolvedDependency)
		}
		return fmt.Errorf("%v: %w", err, errors.ErrNotFound)

	default:
		return err
	}
}

// library is an opened platform library.
type library interface {
	symbol(name string) (uintptr, error)
}

// module adapts an opened library to ports.Module.
type module struct {
	lib  library
	name string
	file string
}

func (m *module) Name() string {
	return m.name
}

// Path returns the file the library was opened from, or the bare file name
// when the platform loader located it.
func (m *module) Path() string {
	return m.file
}

func (m *module) Lookup(name string) (ports.Symbol, error) {
	addr, err := m.lib.symbol(name)
	if err != nil {
		return nil, fmt.Errorf("symbol %s: %v: %w", name, err, errors.ErrNotFound)
	}
	if addr == 0 {
		return nil, fmt.Errorf("symbol %s: null address: %w", name, errors.ErrNotFound)
	}
	return &symbol{name: name, addr: addr}, nil
}

// symbol is a C function taking and returning integer-class values. Void
// functions return an unspecified value.
type symbol struct {
	name string
	addr uintptr
}

func (s *symbol) Call(ctx context.Context, args ...uint64) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(args) > maxArgs {
		return nil, fmt.Errorf("call %s: %d arguments exceed the maximum of %d", s.name, len(args), maxArgs)
	}
	a := make([]uintptr, len(args))
	for i, v := range args {
		a[i] = uintptr(v)
	}
	return []uint64{uint64(callFunc(s.addr, a))}, nil
}
