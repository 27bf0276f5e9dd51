package scaroot

import (
	"context"
	stdErrors "errors"
	"fmt"
	"sync"

	"github.com/vkhristenko/scaroot/domain/entities"
	"github.com/vkhristenko/scaroot/domain/errors"
	"github.com/vkhristenko/scaroot/host"
)

// ErrInitialized is returned by Configure once the default linker exists.
var ErrInitialized = stdErrors.New("scaroot: default linker already initialized")

type defaultState struct {
	once   sync.Once
	mu     sync.Mutex
	opts   []host.Option
	linker *host.Linker
	frozen bool
}

var std = &defaultState{}

// Default returns the process-wide linker, creating it on first call.
func Default() *host.Linker {
	std.once.Do(func() {
		std.mu.Lock()
		defer std.mu.Unlock()
		std.frozen = true
		std.linker = host.NewLinker(std.opts...)
	})
	return std.linker
}

// Configure appends options for the default linker. It fails with
// ErrInitialized after the default linker has been created.
func Configure(opts ...host.Option) error {
	std.mu.Lock()
	defer std.mu.Unlock()
	if std.frozen {
		return ErrInitialized
	}
	std.opts = append(std.opts, opts...)
	return nil
}

// Declare records a library on the default linker.
func Declare(primary string, dependencies ...string) (*entities.LibraryDescriptor, error) {
	return Default().Declare(primary, dependencies...)
}

// EnsureLoaded loads the modules of d on the default linker.
func EnsureLoaded(ctx context.Context, d *entities.LibraryDescriptor) error {
	return Default().EnsureLoaded(ctx, d)
}

// Bind associates a local proxy identity with a native class on the
// default linker.
func Bind(ctx context.Context, local, native string, d *entities.LibraryDescriptor) (*entities.BoundType, error) {
	return Default().Bind(ctx, local, native, d)
}

// New constructs a native object of the type bound under local.
func New(ctx context.Context, local string, args ...uint64) (*host.Proxy, error) {
	linker := Default()
	bt, ok := linker.Binding(local)
	if !ok {
		return nil, errors.NewConfigError("local", "type %q is not bound", local)
	}
	return linker.New(ctx, bt, args...)
}

// Declaration is a statically constructed binding: a local proxy identity,
// the native class it stands for, and the library providing that class.
type Declaration struct {
	Local        string
	Native       string
	Primary      string
	Dependencies []string
}

// Descriptor builds the library descriptor of the declaration.
func (d Declaration) Descriptor() (*entities.LibraryDescriptor, error) {
	return host.Declare(d.Primary, d.Dependencies...)
}

// Register declares and binds each declaration on the default linker, in
// order, stopping at the first failure. Registering the same declarations
// again is a no-op.
func Register(ctx context.Context, decls ...Declaration) ([]*entities.BoundType, error) {
	return RegisterWith(ctx, Default(), decls...)
}

// RegisterWith is Register for an explicit linker.
func RegisterWith(ctx context.Context, linker *host.Linker, decls ...Declaration) ([]*entities.BoundType, error) {
	bound := make([]*entities.BoundType, 0, len(decls))
	for _, decl := range decls {
		d, err := linker.Declare(decl.Primary, decl.Dependencies...)
		if err != nil {
			return bound, fmt.Errorf("register %s: %w", decl.Local, err)
		}
		bt, err := linker.Bind(ctx, decl.Local, decl.Native, d)
		if err != nil {
			return bound, fmt.Errorf("register %s: %w", decl.Local, err)
		}
		bound = append(bound, bt)
	}
	return bound, nil
}

// ClingDependencies returns the modules libCling links against, in the
// order they must be loaded.
func ClingDependencies() []string {
	return []string{"RIO", "tinfo", "z", "Core", "stdc++", "gcc_s", "Thread"}
}

// TClingClassInfo binds the interpreter's class reflection type.
var TClingClassInfo = Declaration{
	Local:        "TClingClassInfo",
	Native:       "TClingClassInfo",
	Primary:      "Cling",
	Dependencies: ClingDependencies(),
}
