package halclient

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// Registry is the explicit wiring between document fields and lazy
// resolution. It maps contract types to concrete implementations and
// (parent type, field) pairs to resolvers. Build it once at start-up and pass
// it to NewMapper.
type Registry struct {
	mu       sync.RWMutex
	types    map[reflect.Type]func() any
	bindings map[bindingKey]binding
}

type bindingKey struct {
	parent reflect.Type
	field  string // Go field name
}

// binding resolves the elements of one bound field into a value assignable to
// that field.
type binding interface {
	resolve(ctx context.Context, m *Mapper, elems []Element, path string, depth int) (reflect.Value, error)
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		types:    map[reflect.Type]func() any{},
		bindings: map[bindingKey]binding{},
	}
}

// RegisterType installs the concrete implementation used to hydrate embedded
// bodies of contract T. newFn must return a pointer to a struct.
func RegisterType[T any](r *Registry, newFn func() T) error {
	t := typeOf[T]()
	if newFn == nil {
		return newError(CodeInvalidBinding, "", fmt.Sprintf("nil constructor for %s", t))
	}
	sample := reflect.ValueOf(any(newFn()))
	if !sample.IsValid() || sample.Kind() != reflect.Pointer || sample.Elem().Kind() != reflect.Struct {
		return newError(CodeInvalidBinding, "", fmt.Sprintf("constructor for %s must return a pointer to a struct", t))
	}
	r.mu.Lock()
	r.types[t] = func() any { return newFn() }
	r.mu.Unlock()
	return nil
}

// BindLazy marks field of parent struct P for lazy resolution into contract T.
// The field is named by its Go name or document key and must have type []T
// (one-to-many) or T (to-one). T must be an interface so that a proxy can
// stand in for it.
func BindLazy[P any, T any](r *Registry, field string) error {
	pt := typeOf[P]()
	if pt.Kind() == reflect.Pointer {
		pt = pt.Elem()
	}
	if pt.Kind() != reflect.Struct {
		return newError(CodeInvalidBinding, "", fmt.Sprintf("parent %s is not a struct", pt))
	}
	tt := typeOf[T]()
	if tt.Kind() != reflect.Interface {
		return newError(CodeInvalidBinding, "", fmt.Sprintf("target %s is not an interface", tt))
	}
	sf, ok := findField(pt, field)
	if !ok {
		return newError(CodeInvalidBinding, "", fmt.Sprintf("%s has no field %q", pt, field))
	}
	var b binding
	switch sf.Type {
	case reflect.SliceOf(tt):
		b = lazyBinding[T]{toMany: true}
	case tt:
		b = lazyBinding[T]{}
	default:
		return newError(CodeInvalidBinding, "", fmt.Sprintf("%s.%s has type %s, want %s or []%s", pt, sf.Name, sf.Type, tt, tt))
	}
	r.mu.Lock()
	r.bindings[bindingKey{parent: pt, field: sf.Name}] = b
	r.mu.Unlock()
	return nil
}

// Bound reports whether field of parent struct type parent is bound.
func (r *Registry) Bound(parent reflect.Type, field string) bool {
	_, ok := r.binding(parent, field)
	return ok
}

func (r *Registry) binding(parent reflect.Type, field string) (binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[bindingKey{parent: parent, field: field}]
	return b, ok
}

func (r *Registry) newConcrete(t reflect.Type) (any, bool) {
	r.mu.RLock()
	fn, ok := r.types[t]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return fn(), true
}

type lazyBinding[T any] struct {
	toMany bool
}

func (b lazyBinding[T]) resolve(ctx context.Context, m *Mapper, elems []Element, path string, depth int) (reflect.Value, error) {
	r := NewCollectionResolver[T](m)
	if b.toMany {
		vs, err := r.resolveCollection(ctx, elems, path, depth)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(vs), nil
	}
	if len(elems) == 0 {
		return reflect.Zero(typeOf[T]()), nil
	}
	v, err := r.resolveElement(ctx, elems[0], path, depth)
	if err != nil {
		return reflect.Value{}, err
	}
	rv := reflect.New(typeOf[T]()).Elem()
	rv.Set(reflect.ValueOf(&v).Elem())
	return rv, nil
}
