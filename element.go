package halclient

import (
	"net/url"
	"strconv"

	json "github.com/goccy/go-json"
)

// Element is one entry of a relation: an embedded body, a link-only locator,
// or (when malformed) neither.
type Element struct {
	Body    *Resource
	Locator string
}

// Embedded reports whether the element carries a body to hydrate directly.
func (e Element) Embedded() bool { return e.Body.HasBody() }

// usableLocator returns the element's locator when it can be fetched.
func (e Element) usableLocator() (string, bool) {
	loc := e.Locator
	if loc == "" && e.Body != nil {
		loc = e.Body.SelfLocator()
	}
	if loc == "" {
		return "", false
	}
	if _, err := url.Parse(loc); err != nil {
		return "", false
	}
	return loc, true
}

// elementFromDoc classifies an embedded document: a body when it has state,
// otherwise a link-only reference through its self link.
func elementFromDoc(doc *Resource) Element {
	if doc == nil {
		return Element{}
	}
	if doc.HasBody() {
		return Element{Body: doc}
	}
	return Element{Body: doc, Locator: doc.SelfLocator()}
}

// Relation returns the elements of rel. An embedded relation supersedes a link
// relation of the same name, so no fetch is issued for a body that is present.
func (r *Resource) Relation(rel string) ([]Element, bool) {
	if r == nil {
		return nil, false
	}
	if docs, ok := r.Embedded[rel]; ok {
		out := make([]Element, len(docs))
		for i, d := range docs {
			out[i] = elementFromDoc(d)
		}
		return out, true
	}
	if ls, ok := r.Links[rel]; ok {
		out := make([]Element, len(ls))
		for i, l := range ls {
			out[i] = Element{Locator: l.Locator()}
		}
		return out, true
	}
	return nil, false
}

// Elements gathers the elements of rel: embedded first, then links, then a
// state value holding inline wrapped resources. The boolean is false when the
// document has no such relation.
func (r *Resource) Elements(rel string) ([]Element, bool, error) {
	if elems, ok := r.Relation(rel); ok {
		return elems, true, nil
	}
	raw, ok := r.Field(rel)
	if !ok {
		return nil, false, nil
	}
	elems, err := inlineElements(raw)
	if err != nil {
		return nil, false, err
	}
	return elems, true, nil
}

// inlineElements decodes a state value holding wrapped resources, e.g.
// `"children":[{"name":"x","_links":{"self":{"href":"/children/1"}}}]`. A bare
// `{"href":"..."}` object is a link-only element. A single object yields one
// element.
func inlineElements(raw RawMessage) ([]Element, error) {
	if isNull(raw) {
		return nil, nil
	}
	var items []RawMessage
	if isArray(raw) {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, &Error{Code: CodeDecode, Message: "invalid relation array", Cause: err}
		}
	} else {
		items = []RawMessage{raw}
	}
	out := make([]Element, len(items))
	for i, it := range items {
		if !isObject(it) {
			if isNull(it) {
				continue
			}
			return nil, &Error{Code: CodeMalformedResource, Path: "/" + strconv.Itoa(i), Message: "relation element is not an object"}
		}
		doc := &Resource{}
		if err := doc.UnmarshalJSON(it); err != nil {
			return nil, atPath(err, "/"+strconv.Itoa(i))
		}
		if href, ok := bareHref(doc); ok {
			out[i] = Element{Locator: href}
			continue
		}
		out[i] = elementFromDoc(doc)
	}
	return out, nil
}

func bareHref(doc *Resource) (string, bool) {
	if len(doc.State) != 1 || len(doc.Links) > 0 || len(doc.Embedded) > 0 {
		return "", false
	}
	raw, ok := doc.State["href"]
	if !ok {
		return "", false
	}
	var l Link
	if err := json.Unmarshal(raw, &l.Href); err != nil {
		return "", false
	}
	return l.Locator(), true
}
