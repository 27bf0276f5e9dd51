package host_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkhristenko/scaroot/domain/entities"
	"github.com/vkhristenko/scaroot/domain/errors"
	"github.com/vkhristenko/scaroot/host"
	"github.com/vkhristenko/scaroot/infrastructure/wazero"
	"github.com/vkhristenko/scaroot/internal/testutil"
)

// newWasmLinker builds a linker over WebAssembly modules in which Cling
// imports a function from each of its dependencies.
func newWasmLinker(t *testing.T, opts ...host.Option) *host.Linker {
	t.Helper()
	ctx := context.Background()

	loaderOpts := []wazero.Option{
		wazero.WithModuleSource("Cling", testutil.LibraryWasm("Cling", clingDeps, "TClingClassInfo")),
	}
	for _, dep := range clingDeps {
		loaderOpts = append(loaderOpts, wazero.WithModuleSource(dep, testutil.LibraryWasm(dep, nil)))
	}
	loader, err := wazero.NewLoader(ctx, loaderOpts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = loader.Close(ctx) })

	return host.NewLinker(append([]host.Option{host.WithLoader(loader)}, opts...)...)
}

func TestWasm_ClingScenario(t *testing.T) {
	ctx := context.Background()
	linker := newWasmLinker(t)
	d := clingDescriptor(t)

	bt, err := linker.Bind(ctx, "ClassInfo", "TClingClassInfo", d)
	require.NoError(t, err)
	assert.Empty(t, linker.Loaded())

	p, err := linker.New(ctx, bt)
	require.NoError(t, err)
	assert.Equal(t, uint64(testutil.Handle), p.Handle())
	assert.Equal(t, d.Modules(), linker.Loaded())

	// TClingClassInfo_version calls into RIO, the first dependency.
	res, err := p.Invoke(ctx, "version")
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, res)

	mod, ok := linker.Module("Cling")
	require.True(t, ok)
	sym, err := mod.Lookup("Cling_version")
	require.NoError(t, err)
	res, err = sym.Call(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{8}, res)

	require.NoError(t, p.Destroy(ctx))
}

func TestWasm_MissingDependencyInDescriptor(t *testing.T) {
	linker := newWasmLinker(t)

	d, err := host.Declare("Cling", "RIO", "Core")
	require.NoError(t, err)

	err = linker.EnsureLoaded(context.Background(), d)
	loadErr := testutil.RequireLoadError(t, err, "Cling", errors.ErrUnresolvedDependency)
	assert.Equal(t, "unresolved_dependency", loadErr.ToErrorDetail().Code)
	assert.Equal(t, []string{"RIO", "Core"}, linker.Loaded())
	assert.Equal(t, entities.ModuleUnloaded, linker.State("Cling"))
}
