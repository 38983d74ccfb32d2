package halclient

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
)

// MapperConfig is the conversion configuration. It is built once and passed
// by reference into every conversion call.
type MapperConfig struct {
	Registry *Registry
	Proxies  *ProxyFactory
	// Fetcher resolves link-only elements. It may be nil when every bound
	// relation is known to be embedded; proxies then fail on first access.
	Fetcher  Fetcher
	JSON     JSONDriver
	Unknown  UnknownPolicy
	MaxDepth int
	Logger   *slog.Logger
}

// Mapper converts resources into Go values. Fields bound in the Registry go
// through a CollectionResolver; other fields are decoded from the resource
// state, and unbound fields naming an embedded relation are converted
// recursively.
type Mapper struct {
	reg      *Registry
	proxies  *ProxyFactory
	fetcher  Fetcher
	json     JSONDriver
	unknown  UnknownPolicy
	maxDepth int
	logger   *slog.Logger

	fields sync.Map // reflect.Type -> []fieldInfo
}

// NewMapper returns a mapper for cfg. A nil Registry or ProxyFactory is
// replaced by an empty one.
func NewMapper(cfg MapperConfig) (*Mapper, error) {
	m := &Mapper{
		reg:      cfg.Registry,
		proxies:  cfg.Proxies,
		fetcher:  cfg.Fetcher,
		json:     driverOrDefault(cfg.JSON),
		unknown:  cfg.Unknown,
		maxDepth: cfg.MaxDepth,
		logger:   cfg.Logger,
	}
	if m.reg == nil {
		m.reg = NewRegistry()
	}
	if m.proxies == nil {
		m.proxies = NewProxyFactory(RetryOnFailure)
	}
	if m.maxDepth < 0 {
		return nil, fmt.Errorf("max depth must not be negative, got %d", m.maxDepth)
	}
	if m.maxDepth == 0 {
		m.maxDepth = DefaultMaxDepth
	}
	return m, nil
}

// Fetcher returns the configured fetcher.
func (m *Mapper) Fetcher() Fetcher { return m.fetcher }

// JSON returns the configured driver.
func (m *Mapper) JSON() JSONDriver { return m.json }

// Decode converts res into T. T may be a struct, a pointer to a struct, a
// contract registered with RegisterType, or *Resource.
func Decode[T any](ctx context.Context, m *Mapper, res *Resource) (T, error) {
	return decodeAs[T](ctx, m, res, "", 0)
}

// Unmarshal decodes a HAL document and converts it into T.
func Unmarshal[T any](ctx context.Context, m *Mapper, data []byte) (T, error) {
	var zero T
	res := &Resource{}
	if err := m.json.Unmarshal(data, res); err != nil {
		if e, ok := err.(*Error); ok {
			return zero, e
		}
		return zero, &Error{Code: CodeDecode, Message: "decode document", Cause: err}
	}
	return Decode[T](ctx, m, res)
}

// Get fetches locator with the mapper's fetcher and converts the result into T.
func Get[T any](ctx context.Context, m *Mapper, locator string) (T, error) {
	var zero T
	if m.fetcher == nil {
		return zero, &Error{Code: CodeTransport, Locator: locator, Message: "no fetcher configured"}
	}
	res, err := m.fetcher.Fetch(ctx, locator)
	if err != nil {
		return zero, err
	}
	return Decode[T](ctx, m, res)
}

// DecodeInto converts res into the struct pointed to by dst.
func (m *Mapper) DecodeInto(ctx context.Context, res *Resource, dst any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return newError(CodeTypeMismatch, "", fmt.Sprintf("DecodeInto requires a non-nil pointer to a struct, got %T", dst))
	}
	return m.decodeStruct(ctx, res, rv.Elem(), "", 0)
}

func decodeAs[T any](ctx context.Context, m *Mapper, res *Resource, path string, depth int) (T, error) {
	var zero T
	v, err := m.hydrate(ctx, res, typeOf[T](), path, depth)
	if err != nil {
		return zero, err
	}
	out, ok := v.Interface().(T)
	if !ok {
		return zero, newError(CodeTypeMismatch, path, fmt.Sprintf("%s does not implement %s", v.Type(), typeOf[T]()))
	}
	return out, nil
}

var resourceType = reflect.TypeOf((*Resource)(nil))

// hydrate builds a value of type t from res.
func (m *Mapper) hydrate(ctx context.Context, res *Resource, t reflect.Type, path string, depth int) (reflect.Value, error) {
	if res == nil {
		return reflect.Value{}, newError(CodeMalformedResource, path, "missing resource")
	}
	if depth > m.maxDepth {
		return reflect.Value{}, newError(CodeTooDeep, path, fmt.Sprintf("depth %d exceeds %d", depth, m.maxDepth))
	}
	switch {
	case t == resourceType:
		return reflect.ValueOf(res), nil
	case t.Kind() == reflect.Struct:
		v := reflect.New(t).Elem()
		return v, m.decodeStruct(ctx, res, v, path, depth)
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct:
		p := reflect.New(t.Elem())
		return p, m.decodeStruct(ctx, res, p.Elem(), path, depth)
	case t.Kind() == reflect.Interface:
		obj, ok := m.reg.newConcrete(t)
		if !ok {
			return reflect.Value{}, newError(CodeUnboundType, path, t.String())
		}
		p := reflect.ValueOf(obj)
		if err := m.decodeStruct(ctx, res, p.Elem(), path, depth); err != nil {
			return reflect.Value{}, err
		}
		return p, nil
	}
	return reflect.Value{}, newError(CodeTypeMismatch, path, fmt.Sprintf("cannot hydrate %s from a resource", t))
}

func (m *Mapper) fieldsOf(t reflect.Type) []fieldInfo {
	if v, ok := m.fields.Load(t); ok {
		return v.([]fieldInfo)
	}
	fs := structFields(t)
	m.fields.Store(t, fs)
	return fs
}

// decodeStruct populates dst (an addressable struct) from res.
func (m *Mapper) decodeStruct(ctx context.Context, res *Resource, dst reflect.Value, path string, depth int) error {
	t := dst.Type()
	consumed := make(map[string]bool, len(res.State))
	whole := false
	for _, fi := range m.fieldsOf(t) {
		fv := dst.Field(fi.index)
		fpath := path + "/" + fi.key
		if fi.whole {
			if fv.Type() != resourceType {
				return newError(CodeTypeMismatch, fpath, "resource field must be a *Resource")
			}
			fv.Set(reflect.ValueOf(res))
			whole = true
			continue
		}
		if fi.self {
			if fv.Kind() != reflect.String {
				return newError(CodeTypeMismatch, fpath, "self field must be a string")
			}
			fv.SetString(res.SelfLocator())
			continue
		}
		if b, ok := m.reg.binding(t, fi.name); ok {
			consumed[fi.key] = true
			elems, found, err := res.Elements(fi.key)
			if err != nil {
				return atPath(err, fpath)
			}
			if !found {
				continue
			}
			v, err := b.resolve(ctx, m, elems, fpath, depth)
			if err != nil {
				return err
			}
			fv.Set(v)
			continue
		}
		if raw, ok := res.State[fi.key]; ok {
			consumed[fi.key] = true
			if isNull(raw) {
				continue
			}
			if err := m.json.Unmarshal(raw, fv.Addr().Interface()); err != nil {
				return &Error{Code: CodeTypeMismatch, Path: fpath, Message: fmt.Sprintf("decode into %s", fv.Type()), Cause: err}
			}
			continue
		}
		if docs, ok := res.Embedded[fi.key]; ok {
			if err := m.hydrateEmbedded(ctx, docs, fv, path+"/"+KeyEmbedded+"/"+fi.key, depth+1); err != nil {
				return err
			}
		}
	}
	if m.unknown == UnknownStrict && !whole {
		for _, k := range sortedKeys(res.State) {
			if !consumed[k] {
				return newError(CodeUnknownKey, path+"/"+k, fmt.Sprintf("no field of %s maps %q", t, k))
			}
		}
	}
	return nil
}

// hydrateEmbedded is the ordinary eager conversion of an embedded relation
// into an unbound field.
func (m *Mapper) hydrateEmbedded(ctx context.Context, docs []*Resource, fv reflect.Value, path string, depth int) error {
	ft := fv.Type()
	if ft.Kind() == reflect.Slice {
		out := reflect.MakeSlice(ft, 0, len(docs))
		for i, d := range docs {
			v, err := m.hydrate(ctx, d, ft.Elem(), fmt.Sprintf("%s/%d", path, i), depth)
			if err != nil {
				return err
			}
			out = reflect.Append(out, v)
		}
		fv.Set(out)
		return nil
	}
	if len(docs) == 0 {
		return nil
	}
	v, err := m.hydrate(ctx, docs[0], ft, path, depth)
	if err != nil {
		return err
	}
	fv.Set(v)
	return nil
}

// BoundFields lists the Go field names of t that are bound for lazy
// resolution, in declaration order.
func (m *Mapper) BoundFields(t reflect.Type) []string {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	var out []string
	for _, fi := range m.fieldsOf(t) {
		if m.reg.Bound(t, fi.name) {
			out = append(out, fi.name)
		}
	}
	return out
}
