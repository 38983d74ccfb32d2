package halclient

import (
	"context"
	"strconv"
)

// CollectionResolver turns relation elements into contract values. Embedded
// bodies are hydrated directly; link-only elements become proxies whose loader
// fetches the element's locator and hydrates the fetched body.
type CollectionResolver[T any] struct {
	m *Mapper
}

// NewCollectionResolver binds a resolver for contract T to a mapper.
func NewCollectionResolver[T any](m *Mapper) *CollectionResolver[T] {
	return &CollectionResolver[T]{m: m}
}

// ResolveCollection resolves elems in order. The result has one value per
// element; an element with neither a body nor a usable locator fails the whole
// call with ErrMalformedResource.
func (r *CollectionResolver[T]) ResolveCollection(ctx context.Context, elems []Element) ([]T, error) {
	return r.resolveCollection(ctx, elems, "", 0)
}

// ResolveOne resolves a single element (a to-one association).
func (r *CollectionResolver[T]) ResolveOne(ctx context.Context, el Element) (T, error) {
	return r.resolveElement(ctx, el, "", 0)
}

func (r *CollectionResolver[T]) resolveCollection(ctx context.Context, elems []Element, path string, depth int) ([]T, error) {
	out := make([]T, 0, len(elems))
	for i, el := range elems {
		v, err := r.resolveElement(ctx, el, path+"/"+strconv.Itoa(i), depth)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *CollectionResolver[T]) resolveElement(ctx context.Context, el Element, path string, depth int) (T, error) {
	var zero T
	if el.Embedded() {
		return decodeAs[T](ctx, r.m, el.Body, path, depth+1)
	}
	loc, ok := el.usableLocator()
	if !ok {
		return zero, newError(CodeMalformedResource, path, "element has neither an embedded body nor a usable locator")
	}
	m := r.m
	load := func(ctx context.Context) (T, error) {
		if m.fetcher == nil {
			return zero, &Error{Code: CodeTransport, Locator: loc, Message: "no fetcher configured"}
		}
		res, err := m.fetcher.Fetch(ctx, loc)
		if err != nil {
			return zero, err
		}
		if res == nil {
			return zero, &Error{Code: CodeDecode, Locator: loc, Message: "fetcher returned no resource"}
		}
		v, err := decodeAs[T](ctx, m, res, "", 0)
		if err != nil {
			if e, ok := err.(*Error); ok && e.Locator == "" {
				cp := *e
				cp.Locator = loc
				return zero, &cp
			}
			return zero, err
		}
		return v, nil
	}
	p, err := NewProxy[T](m.proxies, load)
	if err != nil {
		return zero, atPath(err, path)
	}
	LoggerFrom(ctx, m.logger).Debug("deferred relation element", "path", path, "locator", loc)
	return p, nil
}
