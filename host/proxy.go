package host

import (
	"context"
	"fmt"
	"sync"

	"github.com/vkhristenko/scaroot/application/validation"
	"github.com/vkhristenko/scaroot/domain/entities"
	"github.com/vkhristenko/scaroot/domain/errors"
	"github.com/vkhristenko/scaroot/domain/ports"
)

// Proxy forwards operations to one native object through the symbols of
// its bound type.
type Proxy struct {
	linker *Linker
	bound  *entities.BoundType
	handle uint64
	dtor   ports.Symbol

	mu        sync.RWMutex
	destroyed bool
}

var _ ports.NativeObject = (*Proxy)(nil)

// New constructs a native object of the bound type. The library is loaded
// first if needed; the constructor and destructor must both resolve before
// the constructor runs, so a missing destructor never leaks an object.
// Constructor arguments are passed through unchanged.
func (l *Linker) New(ctx context.Context, bt *entities.BoundType, args ...uint64) (*Proxy, error) {
	if err := l.prepare(ctx, bt); err != nil {
		return nil, err
	}
	class := bt.NativeClassName

	ctor, err := l.resolve(bt, l.config.namer.Constructor(class))
	if err != nil {
		return nil, err
	}
	dtor, err := l.resolve(bt, l.config.namer.Destructor(class))
	if err != nil {
		return nil, err
	}

	res, err := ctor.Call(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("construct %s: %w", class, err)
	}
	if len(res) == 0 || res[0] == 0 {
		return nil, fmt.Errorf("construct %s: constructor returned a null handle", class)
	}
	return &Proxy{linker: l, bound: bt, handle: res[0], dtor: dtor}, nil
}

// Wrap adopts an existing native object. The proxy takes ownership: its
// Destroy runs the class destructor on handle.
func (l *Linker) Wrap(ctx context.Context, bt *entities.BoundType, handle uint64) (*Proxy, error) {
	if err := validation.ValidateBinding(bt); err != nil {
		return nil, err
	}
	if handle == 0 {
		return nil, fmt.Errorf("wrap %s: null handle", bt.NativeClassName)
	}
	if err := l.EnsureLoaded(ctx, bt.Descriptor); err != nil {
		return nil, err
	}
	dtor, err := l.resolve(bt, l.config.namer.Destructor(bt.NativeClassName))
	if err != nil {
		return nil, err
	}
	return &Proxy{linker: l, bound: bt, handle: handle, dtor: dtor}, nil
}

func (l *Linker) prepare(ctx context.Context, bt *entities.BoundType) error {
	if err := validation.ValidateBinding(bt); err != nil {
		return err
	}
	return l.EnsureLoaded(ctx, bt.Descriptor)
}

// Handle returns the native object handle.
func (p *Proxy) Handle() uint64 {
	return p.handle
}

// Type returns the bound type of the proxy.
func (p *Proxy) Type() *entities.BoundType {
	return p.bound
}

// Invoke calls a member of the native class with the object handle as first
// argument. The member symbol is resolved on first use; a missing symbol is
// a *errors.SymbolResolutionError.
func (p *Proxy) Invoke(ctx context.Context, member string, args ...uint64) ([]uint64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	class := p.bound.NativeClassName
	if p.destroyed {
		return nil, fmt.Errorf("invoke %s.%s: %w", class, member, errors.ErrObjectDestroyed)
	}

	sym, err := p.linker.resolve(p.bound, p.linker.config.namer.Member(class, member))
	if err != nil {
		return nil, err
	}

	callArgs := make([]uint64, 0, len(args)+1)
	callArgs = append(callArgs, p.handle)
	callArgs = append(callArgs, args...)
	res, err := sym.Call(ctx, callArgs...)
	if err != nil {
		return nil, fmt.Errorf("invoke %s.%s: %w", class, member, err)
	}
	return res, nil
}

// Destroy runs the native destructor. The proxy is unusable afterwards,
// even if the destructor reported an error; a second Destroy returns
// errors.ErrObjectDestroyed without calling the destructor again.
func (p *Proxy) Destroy(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return fmt.Errorf("destroy %s: %w", p.bound.NativeClassName, errors.ErrObjectDestroyed)
	}
	p.destroyed = true

	if _, err := p.dtor.Call(ctx, p.handle); err != nil {
		return fmt.Errorf("destroy %s: %w", p.bound.NativeClassName, err)
	}
	return nil
}
