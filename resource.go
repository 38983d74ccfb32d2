package halclient

import (
	"bytes"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
)

// Reserved HAL keys.
const (
	KeyLinks    = "_links"
	KeyEmbedded = "_embedded"
	RelSelf     = "self"
)

// Link is a HAL link object.
type Link struct {
	Href        string `json:"href"`
	Templated   bool   `json:"templated,omitempty"`
	Type        string `json:"type,omitempty"`
	Name        string `json:"name,omitempty"`
	Title       string `json:"title,omitempty"`
	Profile     string `json:"profile,omitempty"`
	HrefLang    string `json:"hreflang,omitempty"`
	Deprecation string `json:"deprecation,omitempty"`
}

// Locator returns the href with any RFC 6570 expressions removed, so that
// `/things/1{?projection}` is usable as `/things/1`.
func (l Link) Locator() string {
	if !l.Templated && !strings.Contains(l.Href, "{") {
		return strings.TrimSpace(l.Href)
	}
	var b strings.Builder
	depth := 0
	for _, r := range l.Href {
		switch {
		case r == '{':
			depth++
		case r == '}' && depth > 0:
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// Resource is one HAL document: its own state plus link relations and
// embedded sub-documents.
type Resource struct {
	State    map[string]RawMessage
	Links    map[string][]Link
	Embedded map[string][]*Resource

	// relations that were (or should be) written as a single object rather than an array
	singleLinks    map[string]bool
	singleEmbedded map[string]bool
}

// NewResource returns an empty resource.
func NewResource() *Resource {
	return &Resource{State: map[string]RawMessage{}}
}

// FromBody builds a resource whose state is the JSON object form of body.
func FromBody(d JSONDriver, body any) (*Resource, error) {
	d = driverOrDefault(d)
	data, err := d.Marshal(body)
	if err != nil {
		return nil, &Error{Code: CodeDecode, Message: "marshal body", Cause: err}
	}
	r := NewResource()
	if err := r.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return r, nil
}

// HasBody reports whether the resource carries state or embedded documents of
// its own. Links alone do not make a body.
func (r *Resource) HasBody() bool {
	return r != nil && (len(r.State) > 0 || len(r.Embedded) > 0)
}

// Field returns the raw value of a state key.
func (r *Resource) Field(key string) (RawMessage, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.State[key]
	return v, ok
}

// Self returns the self link.
func (r *Resource) Self() (Link, bool) { return r.Link(RelSelf) }

// SelfLocator returns the usable self locator, or "".
func (r *Resource) SelfLocator() string {
	if l, ok := r.Self(); ok {
		return l.Locator()
	}
	return ""
}

// Link returns the first link of rel.
func (r *Resource) Link(rel string) (Link, bool) {
	if r == nil {
		return Link{}, false
	}
	ls := r.Links[rel]
	if len(ls) == 0 {
		return Link{}, false
	}
	return ls[0], true
}

// LinksFor returns every link of rel in document order.
func (r *Resource) LinksFor(rel string) []Link {
	if r == nil {
		return nil
	}
	return r.Links[rel]
}

// EmbeddedFor returns the embedded documents of rel in document order.
func (r *Resource) EmbeddedFor(rel string) []*Resource {
	if r == nil {
		return nil
	}
	return r.Embedded[rel]
}

// LinkRels returns the link relation names in sorted order.
func (r *Resource) LinkRels() []string { return sortedKeys(r.Links) }

// EmbeddedRels returns the embedded relation names in sorted order.
func (r *Resource) EmbeddedRels() []string { return sortedKeys(r.Embedded) }

// WithSelf sets the self link.
func (r *Resource) WithSelf(href string) *Resource { return r.WithLink(RelSelf, href) }

// WithLink sets rel to a single link.
func (r *Resource) WithLink(rel, href string) *Resource {
	r.setLinks(rel, []Link{{Href: href}}, true)
	return r
}

// WithLinks appends hrefs to rel; the relation is written as an array.
func (r *Resource) WithLinks(rel string, hrefs ...string) *Resource {
	ls := append([]Link(nil), r.LinksFor(rel)...)
	for _, h := range hrefs {
		ls = append(ls, Link{Href: h})
	}
	r.setLinks(rel, ls, false)
	return r
}

// Embed appends documents to rel; the relation is written as an array.
func (r *Resource) Embed(rel string, docs ...*Resource) *Resource {
	if r.Embedded == nil {
		r.Embedded = map[string][]*Resource{}
	}
	r.Embedded[rel] = append(r.Embedded[rel], docs...)
	delete(r.singleEmbedded, rel)
	return r
}

// EmbedOne sets rel to a single embedded document.
func (r *Resource) EmbedOne(rel string, doc *Resource) *Resource {
	if r.Embedded == nil {
		r.Embedded = map[string][]*Resource{}
	}
	r.Embedded[rel] = []*Resource{doc}
	if r.singleEmbedded == nil {
		r.singleEmbedded = map[string]bool{}
	}
	r.singleEmbedded[rel] = true
	return r
}

func (r *Resource) setLinks(rel string, ls []Link, single bool) {
	if r.Links == nil {
		r.Links = map[string][]Link{}
	}
	r.Links[rel] = ls
	if single {
		if r.singleLinks == nil {
			r.singleLinks = map[string]bool{}
		}
		r.singleLinks[rel] = true
	} else {
		delete(r.singleLinks, rel)
	}
}

// UnmarshalJSON decodes a HAL document. `_links` and `_embedded` entries may be
// single objects or arrays; both shapes are accepted and remembered.
func (r *Resource) UnmarshalJSON(data []byte) error {
	var raw map[string]RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return &Error{Code: CodeDecode, Message: "resource is not a JSON object", Cause: err}
	}
	// null decodes to an empty resource, which has neither body nor locator
	*r = Resource{State: map[string]RawMessage{}}
	for k, v := range raw {
		switch k {
		case KeyLinks:
			if err := r.decodeLinks(v); err != nil {
				return err
			}
		case KeyEmbedded:
			if err := r.decodeEmbedded(v); err != nil {
				return err
			}
		default:
			r.State[k] = v
		}
	}
	return nil
}

func (r *Resource) decodeLinks(data RawMessage) error {
	if isNull(data) {
		return nil
	}
	var rels map[string]RawMessage
	if err := json.Unmarshal(data, &rels); err != nil {
		return &Error{Code: CodeDecode, Path: "/" + KeyLinks, Message: "expected object", Cause: err}
	}
	for rel, v := range rels {
		if isNull(v) {
			continue
		}
		if isArray(v) {
			var ls []Link
			if err := json.Unmarshal(v, &ls); err != nil {
				return &Error{Code: CodeDecode, Path: "/" + KeyLinks + "/" + rel, Message: "invalid link array", Cause: err}
			}
			r.setLinks(rel, ls, false)
			continue
		}
		var l Link
		if err := json.Unmarshal(v, &l); err != nil {
			return &Error{Code: CodeDecode, Path: "/" + KeyLinks + "/" + rel, Message: "invalid link", Cause: err}
		}
		r.setLinks(rel, []Link{l}, true)
	}
	return nil
}

func (r *Resource) decodeEmbedded(data RawMessage) error {
	if isNull(data) {
		return nil
	}
	var rels map[string]RawMessage
	if err := json.Unmarshal(data, &rels); err != nil {
		return &Error{Code: CodeDecode, Path: "/" + KeyEmbedded, Message: "expected object", Cause: err}
	}
	for rel, v := range rels {
		if isNull(v) {
			continue
		}
		if isArray(v) {
			var docs []*Resource
			if err := json.Unmarshal(v, &docs); err != nil {
				return atPath(err, "/"+KeyEmbedded+"/"+rel)
			}
			r.Embed(rel, docs...)
			continue
		}
		doc := &Resource{}
		if err := doc.UnmarshalJSON(v); err != nil {
			return atPath(err, "/"+KeyEmbedded+"/"+rel)
		}
		r.EmbedOne(rel, doc)
	}
	return nil
}

// MarshalJSON writes state keys next to `_links` and `_embedded`, keeping each
// relation's single-or-array shape.
func (r *Resource) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.State)+2)
	for k, v := range r.State {
		out[k] = v
	}
	if len(r.Links) > 0 {
		links := make(map[string]any, len(r.Links))
		for rel, ls := range r.Links {
			if r.singleLinks[rel] && len(ls) == 1 {
				links[rel] = ls[0]
			} else {
				links[rel] = ls
			}
		}
		out[KeyLinks] = links
	}
	if len(r.Embedded) > 0 {
		emb := make(map[string]any, len(r.Embedded))
		for rel, docs := range r.Embedded {
			if r.singleEmbedded[rel] && len(docs) == 1 {
				emb[rel] = docs[0]
			} else {
				emb[rel] = docs
			}
		}
		out[KeyEmbedded] = emb
	}
	return json.Marshal(out)
}

func isNull(b []byte) bool { return bytes.Equal(bytes.TrimSpace(b), []byte("null")) }

func isArray(b []byte) bool {
	t := bytes.TrimSpace(b)
	return len(t) > 0 && t[0] == '['
}

func isObject(b []byte) bool {
	t := bytes.TrimSpace(b)
	return len(t) > 0 && t[0] == '{'
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
