package wazero

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"

	"github.com/vkhristenko/scaroot/domain/errors"
	"github.com/vkhristenko/scaroot/internal/testutil"
	scarootlog "github.com/vkhristenko/scaroot/log"
)

func newLoader(t *testing.T, opts ...Option) *Loader {
	t.Helper()
	ctx := context.Background()
	l, err := NewLoader(ctx, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close(ctx) })
	return l
}

func TestLoader_DependencyOrder(t *testing.T) {
	ctx := context.Background()
	l := newLoader(t,
		WithModuleSource("Core", testutil.LibraryWasm("Core", nil)),
		WithModuleSource("Cling", testutil.LibraryWasm("Cling", []string{"Core"}, "TClingClassInfo")),
	)

	_, err := l.Load(ctx, "Cling")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnresolvedDependency)
	assert.Contains(t, err.Error(), "Core.Core_version")

	_, err = l.Load(ctx, "Core")
	require.NoError(t, err)

	cling, err := l.Load(ctx, "Cling")
	require.NoError(t, err)
	assert.Equal(t, "Cling", cling.Name())

	sym, err := cling.Lookup("TClingClassInfo_version")
	require.NoError(t, err)
	res, err := sym.Call(ctx, testutil.Handle)
	require.NoError(t, err)
	// Forwarded to Core_version.
	assert.Equal(t, []uint64{1}, res)
}

func TestLoader_RuntimeConfig(t *testing.T) {
	ctx := context.Background()
	l := newLoader(t,
		WithRuntimeConfig(wazero.NewRuntimeConfigInterpreter()),
		WithModuleSource("z", testutil.LibraryWasm("z", nil)),
	)

	z, err := l.Load(ctx, "z")
	require.NoError(t, err)
	sym, err := z.Lookup("z_version")
	require.NoError(t, err)
	res, err := sym.Call(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, res)
}

func TestLoader_LoadTwice(t *testing.T) {
	ctx := context.Background()
	l := newLoader(t, WithModuleSource("Core", testutil.LibraryWasm("Core", nil)))

	first, err := l.Load(ctx, "Core")
	require.NoError(t, err)
	second, err := l.Load(ctx, "Core")
	require.NoError(t, err)
	assert.Equal(t, first.Name(), second.Name())
}

func TestLoader_NotFound(t *testing.T) {
	l := newLoader(t, WithSearchPaths(t.TempDir()))

	_, err := l.Load(context.Background(), "Cling")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotFound)
	assert.Contains(t, err.Error(), "Cling.wasm")
}

func TestLoader_InvalidModule(t *testing.T) {
	l := newLoader(t, WithModuleSource("z", []byte("\x7fELF not wasm")))

	_, err := l.Load(context.Background(), "z")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidModule)
}

func TestLoader_SearchFS(t *testing.T) {
	fsys := fstest.MapFS{
		"root/lib/libz.wasm":   {Data: testutil.LibraryWasm("z", nil)},
		"root/lib/tinfo.wasm":  {Data: testutil.LibraryWasm("tinfo", nil)},
		"root/other/Core.wasm": {Data: []byte("garbage")},
	}
	l := newLoader(t, WithFS(fsys), WithSearchPaths("root/lib"))
	ctx := context.Background()

	_, err := l.Load(ctx, "z")
	require.NoError(t, err)
	_, err = l.Load(ctx, "tinfo")
	require.NoError(t, err)

	_, err = l.Load(ctx, "Core")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestLoader_AddSearchPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Thread.wasm"), testutil.LibraryWasm("Thread", nil), 0o600))

	l := newLoader(t)
	ctx := context.Background()

	_, err := l.Load(ctx, "Thread")
	require.ErrorIs(t, err, errors.ErrNotFound)

	l.AddSearchPath(dir)
	l.AddSearchPath(dir)
	assert.Equal(t, []string{dir}, l.config.searchPaths)

	mod, err := l.Load(ctx, "Thread")
	require.NoError(t, err)
	assert.Equal(t, "Thread", mod.Name())
}

func TestModule_Lookup(t *testing.T) {
	ctx := context.Background()
	l := newLoader(t, WithModuleSource("Core", testutil.LibraryWasm("Core", nil, "TObject")))
	mod, err := l.Load(ctx, "Core")
	require.NoError(t, err)

	_, err = mod.Lookup("TObject_Streamer")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	ctor, err := mod.Lookup("TObject_new")
	require.NoError(t, err)
	res, err := ctor.Call(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{testutil.Handle}, res)

	_, err = ctor.Call(ctx, 1, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 0 arguments, got 2")
}

func TestLoader_LogMessage(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(scarootlog.NewHandler(&buf, scarootlog.WithFormat(scarootlog.FormatJSON)))

	msg, err := json.Marshal(scarootlog.LogMessageWire{
		Timestamp: time.Now(),
		Level:     "WARN",
		Message:   "dictionary not found",
		Attrs:     []scarootlog.LogAttrWire{{Key: "class", Type: "string", Value: "TClingClassInfo"}},
	})
	require.NoError(t, err)

	ctx := context.Background()
	l := newLoader(t,
		WithLogger(logger),
		WithModuleSource("Logger", testutil.LoggingWasm("scaroot_host", msg)),
	)
	mod, err := l.Load(ctx, "Logger")
	require.NoError(t, err)

	emit, err := mod.Lookup("emit")
	require.NoError(t, err)
	_, err = emit.Call(ctx)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "dictionary not found", out["msg"])
	assert.Equal(t, "Logger", out["module"])
	assert.Equal(t, "TClingClassInfo", out["class"])
}

func TestLoader_LogMessageTooLarge(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(scarootlog.NewHandler(&buf))

	ctx := context.Background()
	l := newLoader(t,
		WithLogger(logger),
		WithMaxMessageSize(4),
		WithModuleSource("Logger", testutil.LoggingWasm("scaroot_host", []byte(`{"level":"INFO","message":"hi"}`))),
	)
	mod, err := l.Load(ctx, "Logger")
	require.NoError(t, err)
	emit, err := mod.Lookup("emit")
	require.NoError(t, err)
	_, err = emit.Call(ctx)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "exceeds maximum size")
}

func TestLoader_CustomHostModuleName(t *testing.T) {
	ctx := context.Background()
	l := newLoader(t,
		WithHostModuleName("env"),
		WithModuleSource("Logger", testutil.LoggingWasm("scaroot_host", []byte(`{}`))),
	)
	_, err := l.Load(ctx, "Logger")
	assert.ErrorIs(t, err, errors.ErrUnresolvedDependency)
}

func TestLoader_WASI(t *testing.T) {
	l := newLoader(t, WithWASI(true))
	assert.NotNil(t, l.runtime.Module("wasi_snapshot_preview1"))
}

func TestPackPtrLen(t *testing.T) {
	packed := packPtrLen(16, 42)
	ptr, length := unpackPtrLen(packed)
	assert.Equal(t, uint32(16), ptr)
	assert.Equal(t, uint32(42), length)
	assert.Equal(t, uint64(testutil.PackPtrLen(16, 42)), packed) //nolint:gosec // same bits
}
