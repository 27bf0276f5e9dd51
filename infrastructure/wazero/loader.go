package wazero

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/vkhristenko/scaroot/domain/errors"
	"github.com/vkhristenko/scaroot/domain/ports"
	scarootlog "github.com/vkhristenko/scaroot/log"
)

// DefaultMaxMessageSize bounds a single log message read from guest memory.
const DefaultMaxMessageSize = 64 * 1024

// loaderConfig holds configuration for the Loader.
type loaderConfig struct {
	fsys           fs.FS
	sources        map[string][]byte
	logger         *slog.Logger
	runtimeConfig  wazero.RuntimeConfig
	hostModule     string
	searchPaths    []string
	maxMessageSize uint32
	wasi           bool
}

func defaultLoaderConfig() loaderConfig {
	return loaderConfig{
		sources:        make(map[string][]byte),
		hostModule:     "scaroot_host",
		maxMessageSize: DefaultMaxMessageSize,
	}
}

// Option configures the Loader.
type Option func(*loaderConfig)

// WithFS reads modules from fsys instead of the host filesystem. Search
// paths are then slash-separated paths within fsys.
func WithFS(fsys fs.FS) Option {
	return func(c *loaderConfig) {
		c.fsys = fsys
	}
}

// WithSearchPaths sets the directories searched for NAME.wasm and
// libNAME.wasm, in order.
func WithSearchPaths(dirs ...string) Option {
	return func(c *loaderConfig) {
		c.searchPaths = append(c.searchPaths, dirs...)
	}
}

// WithModuleSource registers the binary of a module directly. Sources take
// precedence over search paths.
func WithModuleSource(name string, wasm []byte) Option {
	return func(c *loaderConfig) {
		c.sources[name] = wasm
	}
}

// WithWASI instantiates wasi_snapshot_preview1 so modules built for WASI
// can be loaded.
func WithWASI(enabled bool) Option {
	return func(c *loaderConfig) {
		c.wasi = enabled
	}
}

// WithHostModuleName sets the name modules import host functions from
// (default: "scaroot_host").
func WithHostModuleName(name string) Option {
	return func(c *loaderConfig) {
		c.hostModule = name
	}
}

// WithLogger sets the logger receiving module log messages.
func WithLogger(logger *slog.Logger) Option {
	return func(c *loaderConfig) {
		c.logger = logger
	}
}

// WithRuntimeConfig sets the wazero runtime configuration.
func WithRuntimeConfig(rc wazero.RuntimeConfig) Option {
	return func(c *loaderConfig) {
		c.runtimeConfig = rc
	}
}

// WithMaxMessageSize limits the size of a log message read from a module.
func WithMaxMessageSize(size uint32) Option {
	return func(c *loaderConfig) {
		c.maxMessageSize = size
	}
}

// Loader implements ports.ModuleLoader on a wazero runtime.
type Loader struct {
	runtime wazero.Runtime
	config  loaderConfig

	mu sync.Mutex // serializes instantiation and guards config.searchPaths
}

var (
	_ ports.ModuleLoader         = (*Loader)(nil)
	_ ports.SearchPathConfigurer = (*Loader)(nil)
)

// NewLoader creates a runtime with the host module (and WASI, if enabled)
// instantiated. Close releases it.
func NewLoader(ctx context.Context, opts ...Option) (*Loader, error) {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.runtimeConfig == nil {
		cfg.runtimeConfig = wazero.NewRuntimeConfig()
	}

	l := &Loader{
		runtime: wazero.NewRuntimeWithConfig(ctx, cfg.runtimeConfig),
		config:  cfg,
	}

	if cfg.wasi {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, l.runtime); err != nil {
			_ = l.runtime.Close(ctx)
			return nil, fmt.Errorf("instantiate wasi: %w", err)
		}
	}
	if err := l.registerHostModule(ctx); err != nil {
		_ = l.runtime.Close(ctx)
		return nil, fmt.Errorf("instantiate host module %s: %w", cfg.hostModule, err)
	}
	return l, nil
}

// Close closes the runtime and every module loaded by it.
func (l *Loader) Close(ctx context.Context) error {
	return l.runtime.Close(ctx)
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

// Load compiles and instantiates the module called name. Loading a name
// that is already instantiated returns the existing instance.
func (l *Loader) Load(ctx context.Context, name string) (ports.Module, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if mod := l.runtime.Module(name); mod != nil {
		return &module{mod: mod}, nil
	}

	bin, err := l.find(name)
	if err != nil {
		return nil, err
	}

	compiled, err := l.runtime.CompileModule(ctx, bin)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %v: %w", name, err, errors.ErrInvalidModule)
	}
	defer compiled.Close(ctx) //nolint:errcheck // instances keep what they need

	if err := l.checkImports(compiled); err != nil {
		return nil, fmt.Errorf("link %s: %w", name, err)
	}

	mod, err := l.runtime.InstantiateModule(ctx, compiled,
		wazero.NewModuleConfig().WithName(name).WithStartFunctions("_initialize"))
	if err != nil {
		return nil, fmt.Errorf("instantiate %s: %w", name, err)
	}
	l.config.logger.DebugContext(ctx, "wazero: module instantiated", "module", name, "size", len(bin))
	return &module{mod: mod}, nil
}

// checkImports reports the first imported function whose module is not
// instantiated or does not export it.
func (l *Loader) checkImports(compiled wazero.CompiledModule) error {
	for _, def := range compiled.ImportedFunctions() {
		modName, fnName, _ := def.Import()
		dep := l.runtime.Module(modName)
		if dep == nil {
			return fmt.Errorf("import %s.%s: module %s not loaded: %w", modName, fnName, modName, errors.ErrUnresolvedDependency)
		}
		if dep.ExportedFunction(fnName) == nil {
			return fmt.Errorf("import %s.%s: not exported: %w", modName, fnName, errors.ErrUnresolvedDependency)
		}
	}
	return nil
}

// find returns the binary for name from registered sources or the search path.
func (l *Loader) find(name string) ([]byte, error) {
	if bin, ok := l.config.sources[name]; ok {
		return bin, nil
	}

	files := []string{name + ".wasm", "lib" + name + ".wasm"}
	for _, dir := range l.config.searchPaths {
		for _, file := range files {
			bin, err := l.readFile(dir, file)
			if err == nil {
				return bin, nil
			}
			if !stdErrors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read %s: %w", file, err)
			}
		}
	}
	return nil, fmt.Errorf("no %s or %s in search path %v: %w", files[0], files[1], l.config.searchPaths, errors.ErrNotFound)
}

func (l *Loader) readFile(dir, file string) ([]byte, error) {
	if l.config.fsys != nil {
		return fs.ReadFile(l.config.fsys, path.Join(dir, file))
	}
	return os.ReadFile(filepath.Join(dir, file))
}

// module adapts an instantiated wazero module to ports.Module.
type module struct {
	mod api.Module
}

func (m *module) Name() string {
	return m.mod.Name()
}

func (m *module) Lookup(symbol string) (ports.Symbol, error) {
	fn := m.mod.ExportedFunction(symbol)
	if fn == nil {
		return nil, fmt.Errorf("export %s: %w", symbol, errors.ErrNotFound)
	}
	return &function{name: symbol, fn: fn}, nil
}

// function adapts an exported wazero function to ports.Symbol.
type function struct {
	fn   api.Function
	name string
}

func (f *function) Call(ctx context.Context, args ...uint64) ([]uint64, error) {
	if want := len(f.fn.Definition().ParamTypes()); want != len(args) {
		return nil, fmt.Errorf("call %s: expected %d arguments, got %d", f.name, want, len(args))
	}
	return f.fn.Call(ctx, args...)
}

// registerHostModule exports the functions modules may import from the host.
func (l *Loader) registerHostModule(ctx context.Context) error {
	_, err := l.runtime.NewHostModuleBuilder(l.config.hostModule).
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(l.logMessage), []api.ValueType{api.ValueTypeI64}, []api.ValueType{}).
		Export("log_message").
		Instantiate(ctx)
	return err
}

// logMessage reads a LogMessageWire from guest memory and replays it.
func (l *Loader) logMessage(ctx context.Context, mod api.Module, stack []uint64) {
	ptr, length := unpackPtrLen(stack[0])

	if length > l.config.maxMessageSize {
		l.config.logger.ErrorContext(ctx, "wazero: log message exceeds maximum size",
			"module", mod.Name(), "size", length, "max", l.config.maxMessageSize)
		return
	}
	mem := mod.Memory()
	if mem == nil {
		l.config.logger.ErrorContext(ctx, "wazero: module without memory called log_message", "module", mod.Name())
		return
	}
	data, ok := mem.Read(ptr, length)
	if !ok {
		l.config.logger.ErrorContext(ctx, "wazero: log message out of memory bounds", "module", mod.Name())
		return
	}
	if err := scarootlog.Replay(ctx, l.config.logger, mod.Name(), data); err != nil {
		l.config.logger.ErrorContext(ctx, "wazero: failed to replay log message", "error", err)
	}
}

// packPtrLen packs a pointer and length into a single i64.
// Upper 32 bits: pointer, lower 32 bits: length.
func packPtrLen(ptr, length uint32) uint64 {
	return (uint64(ptr) << 32) | uint64(length)
}

// unpackPtrLen unpacks a pointer and length from a packed i64.
func unpackPtrLen(packed uint64) (ptr, length uint32) {
	ptr = uint32(packed >> 32)           //nolint:gosec // G115: Packed format stores 32-bit values
	length = uint32(packed & 0xFFFFFFFF) //nolint:gosec // G115: Packed format stores 32-bit values
	return ptr, length
}
