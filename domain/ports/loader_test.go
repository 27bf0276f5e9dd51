package ports

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockModuleLoader is a mock implementation of ModuleLoader for testing.
type MockModuleLoader struct {
	LoadFunc func(ctx context.Context, name string) (Module, error)
}

func (m *MockModuleLoader) Load(ctx context.Context, name string) (Module, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, name)
	}
	return &MockModule{ModuleName: name}, nil
}

// MockModule is a mock implementation of Module.
type MockModule struct {
	Symbols    map[string]Symbol
	ModuleName string
}

func (m *MockModule) Name() string { return m.ModuleName }

func (m *MockModule) Lookup(symbol string) (Symbol, error) {
	if s, ok := m.Symbols[symbol]; ok {
		return s, nil
	}
	return nil, errors.New("symbol not found")
}

// SymbolFunc adapts a function to Symbol.
type SymbolFunc func(ctx context.Context, args ...uint64) ([]uint64, error)

func (f SymbolFunc) Call(ctx context.Context, args ...uint64) ([]uint64, error) {
	return f(ctx, args...)
}

// Compile-time interface checks
var (
	_ ModuleLoader = (*MockModuleLoader)(nil)
	_ Module       = (*MockModule)(nil)
	_ Symbol       = SymbolFunc(nil)
)

func TestMockModuleLoader_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("default behavior", func(t *testing.T) {
		mod, err := (&MockModuleLoader{}).Load(ctx, "Core")
		require.NoError(t, err)
		assert.Equal(t, "Core", mod.Name())
	})

	t.Run("custom behavior", func(t *testing.T) {
		loader := &MockModuleLoader{
			LoadFunc: func(ctx context.Context, name string) (Module, error) {
				if name == "missing" {
					return nil, errors.New("not found")
				}
				return &MockModule{ModuleName: name}, nil
			},
		}

		_, err := loader.Load(ctx, "missing")
		assert.Error(t, err)

		mod, err := loader.Load(ctx, "RIO")
		require.NoError(t, err)
		assert.Equal(t, "RIO", mod.Name())
	})
}

func TestMockModule_Lookup(t *testing.T) {
	mod := &MockModule{
		ModuleName: "Cling",
		Symbols: map[string]Symbol{
			"TClingClassInfo_new": SymbolFunc(func(ctx context.Context, args ...uint64) ([]uint64, error) {
				return []uint64{0xbeef}, nil
			}),
		},
	}

	sym, err := mod.Lookup("TClingClassInfo_new")
	require.NoError(t, err)
	res, err := sym.Call(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint64{0xbeef}, res)

	_, err = mod.Lookup("TClingClassInfo_delete")
	assert.Error(t, err)
}
