package halclient

import (
	"reflect"
	"strings"
)

// fieldKey is the resolved external view of one struct field.
type fieldKey struct {
	Name     string // document key; "-" disables the field
	Self     bool   // receives the self locator
	Resource bool   // receives the whole *Resource
}

// ResolveStructKey applies the repository-wide rule to resolve a struct field's
// document key. Priority: hal:"name" > json tag name > field name; "-"
// disables the field. hal:",self" marks a string field that receives the
// resource's self locator; hal:",resource" marks a *Resource field that
// receives the document itself.
func ResolveStructKey(sf reflect.StructField) string { return resolveFieldKey(sf).Name }

func resolveFieldKey(sf reflect.StructField) fieldKey {
	var k fieldKey
	if ht, ok := sf.Tag.Lookup("hal"); ok {
		parts := strings.Split(ht, ",")
		for _, p := range parts[1:] {
			switch strings.TrimSpace(p) {
			case "self":
				k.Self = true
			case "resource":
				k.Resource = true
			}
		}
		if name := strings.TrimSpace(parts[0]); name != "" {
			k.Name = name
			return k
		}
	}
	if jt := sf.Tag.Get("json"); jt != "" {
		if i := strings.IndexByte(jt, ','); i >= 0 {
			jt = jt[:i]
		}
		if jt != "" {
			k.Name = jt
			return k
		}
	}
	k.Name = sf.Name
	return k
}

// fieldInfo is the cached mapping of one settable struct field.
type fieldInfo struct {
	index int
	name  string // Go field name
	key   string
	self  bool
	whole bool
}

func structFields(t reflect.Type) []fieldInfo {
	out := make([]fieldInfo, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		k := resolveFieldKey(sf)
		if k.Name == "-" {
			continue
		}
		out = append(out, fieldInfo{index: i, name: sf.Name, key: k.Name, self: k.Self, whole: k.Resource})
	}
	return out
}

// findField looks a field up by Go name first, then by document key.
func findField(t reflect.Type, name string) (reflect.StructField, bool) {
	if sf, ok := t.FieldByName(name); ok && sf.IsExported() && len(sf.Index) == 1 {
		return sf, true
	}
	for _, fi := range structFields(t) {
		if fi.key == name {
			return t.Field(fi.index), true
		}
	}
	return reflect.StructField{}, false
}
