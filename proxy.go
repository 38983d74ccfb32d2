package halclient

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// Proxied is implemented by every adapter that embeds Proxy[T].
type Proxied interface {
	// Unproxy returns the resolved target, loading it if needed.
	Unproxy(ctx context.Context) (any, error)
	// Resolved reports whether the target has been loaded.
	Resolved() bool
}

// Proxy is the state embedded by lazy adapters. An adapter for contract T
// embeds Proxy[T] and forwards each contract member to Target:
//
//	type lazyChild struct{ halclient.Proxy[Child] }
//
//	func (c lazyChild) Name(ctx context.Context) (string, error) {
//		t, err := c.Target(ctx)
//		if err != nil {
//			return "", err
//		}
//		return t.Name(ctx)
//	}
type Proxy[T any] struct {
	ref *Lazy[T]
}

// ProxyFor wraps a lazy reference for embedding in an adapter.
func ProxyFor[T any](ref *Lazy[T]) Proxy[T] { return Proxy[T]{ref: ref} }

// Target returns the resolved value, loading it on first use.
func (p Proxy[T]) Target(ctx context.Context) (T, error) {
	if p.ref == nil {
		var zero T
		return zero, newError(CodeMalformedResource, "", "proxy has no reference")
	}
	return p.ref.Get(ctx)
}

// Unproxy implements Proxied.
func (p Proxy[T]) Unproxy(ctx context.Context) (any, error) {
	v, err := p.Target(ctx)
	if err != nil {
		return nil, err
	}
	return any(v), nil
}

// Resolved implements Proxied.
func (p Proxy[T]) Resolved() bool { return p.ref != nil && p.ref.Resolved() }

// Ref exposes the underlying lazy reference.
func (p Proxy[T]) Ref() *Lazy[T] { return p.ref }

// ProxyFactory manufactures stand-ins for contracts known only by their
// interface type. Adapters are registered once per contract with RegisterProxy.
type ProxyFactory struct {
	mu     sync.RWMutex
	ctors  map[reflect.Type]any // contract type -> func(Proxy[T]) T
	policy FailurePolicy
}

// NewProxyFactory returns an empty factory whose proxies follow policy when a
// loader fails.
func NewProxyFactory(policy FailurePolicy) *ProxyFactory {
	return &ProxyFactory{ctors: map[reflect.Type]any{}, policy: policy}
}

// Policy returns the failure policy applied to new proxies.
func (pf *ProxyFactory) Policy() FailurePolicy { return pf.policy }

// Has reports whether an adapter is registered for the contract type t.
func (pf *ProxyFactory) Has(t reflect.Type) bool {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	_, ok := pf.ctors[t]
	return ok
}

// RegisterProxy installs the adapter constructor for contract T. T must be an
// interface type; registering twice replaces the previous adapter.
func RegisterProxy[T any](pf *ProxyFactory, ctor func(Proxy[T]) T) error {
	t := typeOf[T]()
	if t.Kind() != reflect.Interface {
		return newError(CodeInvalidBinding, "", fmt.Sprintf("proxy contract %s is not an interface", t))
	}
	if ctor == nil {
		return newError(CodeInvalidBinding, "", fmt.Sprintf("nil proxy constructor for %s", t))
	}
	pf.mu.Lock()
	pf.ctors[t] = ctor
	pf.mu.Unlock()
	return nil
}

// NewProxy returns a T that defers to load. The loader is not invoked here; it
// runs on the first access of any contract member.
func NewProxy[T any](pf *ProxyFactory, load Loader[T]) (T, error) {
	var zero T
	t := typeOf[T]()
	pf.mu.RLock()
	c, ok := pf.ctors[t]
	pf.mu.RUnlock()
	if !ok {
		return zero, newError(CodeNoProxy, "", t.String())
	}
	ctor := c.(func(Proxy[T]) T)
	return ctor(ProxyFor(NewLazy(load, pf.policy))), nil
}

// IsProxy reports whether v is a lazy stand-in.
func IsProxy(v any) bool {
	_, ok := v.(Proxied)
	return ok
}

// IsResolved reports whether v can be read without a fetch. Values that are
// not proxies are always resolved.
func IsResolved(v any) bool {
	if p, ok := v.(Proxied); ok {
		return p.Resolved()
	}
	return true
}

// Resolve returns the concrete value behind v, loading it if v is an
// unresolved proxy. Non-proxies are returned unchanged.
func Resolve[T any](ctx context.Context, v T) (T, error) {
	u, err := resolveAny(ctx, any(v))
	if err != nil {
		var zero T
		return zero, err
	}
	t, ok := u.(T)
	if !ok {
		var zero T
		return zero, newError(CodeTypeMismatch, "", fmt.Sprintf("resolved %T is not %s", u, typeOf[T]()))
	}
	return t, nil
}

// ResolveAll resolves every element of vs in order, stopping at the first
// failure.
func ResolveAll[T any](ctx context.Context, vs []T) ([]T, error) {
	out := make([]T, len(vs))
	for i, v := range vs {
		r, err := Resolve(ctx, v)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

// Identifier is implemented by entities that carry their own identity.
type Identifier interface {
	Identity() string
}

// Equal compares two entity values after resolving any proxies. When both
// resolved values implement Identifier with a non-empty identity, identities
// are compared; otherwise the resolved values are compared deeply.
func Equal(ctx context.Context, a, b any) (bool, error) {
	ra, err := resolveAny(ctx, a)
	if err != nil {
		return false, err
	}
	rb, err := resolveAny(ctx, b)
	if err != nil {
		return false, err
	}
	if ia, ok := ra.(Identifier); ok {
		if ib, ok := rb.(Identifier); ok && ia.Identity() != "" && ib.Identity() != "" {
			return ia.Identity() == ib.Identity(), nil
		}
	}
	return reflect.DeepEqual(ra, rb), nil
}

func resolveAny(ctx context.Context, v any) (any, error) {
	for {
		p, ok := v.(Proxied)
		if !ok {
			return v, nil
		}
		u, err := p.Unproxy(ctx)
		if err != nil {
			return nil, err
		}
		v = u
	}
}

func typeOf[T any]() reflect.Type { return reflect.TypeOf((*T)(nil)).Elem() }
