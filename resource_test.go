package halclient_test

import (
	"testing"

	json "github.com/goccy/go-json"

	halclient "github.com/reoring/halclient"
)

func TestResource_DecodesSingleAndArrayRelations(t *testing.T) {
	doc := []byte(`{
		"name": "p",
		"_links": {
			"self": {"href": "/parents/1{?projection}", "templated": true},
			"children": [{"href": "/children/1"}, {"href": "/children/2"}]
		},
		"_embedded": {
			"owner": {"name": "o"},
			"pets": [{"name": "a"}, {"name": "b"}]
		}
	}`)
	res := &halclient.Resource{}
	if err := json.Unmarshal(doc, res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !res.HasBody() {
		t.Fatalf("expected state")
	}
	if got := res.SelfLocator(); got != "/parents/1" {
		t.Fatalf("self locator = %q", got)
	}
	if n := len(res.LinksFor("children")); n != 2 {
		t.Fatalf("children links = %d", n)
	}
	if n := len(res.EmbeddedFor("owner")); n != 1 {
		t.Fatalf("owner = %d", n)
	}
	if got := res.EmbeddedRels(); len(got) != 2 || got[0] != "owner" || got[1] != "pets" {
		t.Fatalf("embedded rels = %v", got)
	}
}

func TestResource_MarshalKeepsShape(t *testing.T) {
	in := []byte(`{"name":"p","_links":{"self":{"href":"/p/1"},"children":[{"href":"/c/1"}]},"_embedded":{"owner":{"name":"o"},"pets":[{"name":"a"}]}}`)
	res := &halclient.Resource{}
	if err := json.Unmarshal(in, res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("re-unmarshal: %v", err)
	}
	links := got["_links"].(map[string]any)
	if _, ok := links["self"].(map[string]any); !ok {
		t.Fatalf("self should stay a single object: %s", out)
	}
	if _, ok := links["children"].([]any); !ok {
		t.Fatalf("children should stay an array: %s", out)
	}
	emb := got["_embedded"].(map[string]any)
	if _, ok := emb["owner"].(map[string]any); !ok {
		t.Fatalf("owner should stay a single object: %s", out)
	}
	if _, ok := emb["pets"].([]any); !ok {
		t.Fatalf("pets should stay an array: %s", out)
	}
}

func TestResource_RejectsNonObject(t *testing.T) {
	res := &halclient.Resource{}
	if err := json.Unmarshal([]byte(`[1,2]`), res); err == nil {
		t.Fatalf("expected an error for a non-object document")
	}
}

func TestLink_LocatorStripsTemplate(t *testing.T) {
	cases := []struct {
		link halclient.Link
		want string
	}{
		{halclient.Link{Href: "/a/1"}, "/a/1"},
		{halclient.Link{Href: "/a/1{?projection}", Templated: true}, "/a/1"},
		{halclient.Link{Href: "/search/by{?name,page}"}, "/search/by"},
		{halclient.Link{Href: "{?x}", Templated: true}, ""},
	}
	for _, tc := range cases {
		if got := tc.link.Locator(); got != tc.want {
			t.Fatalf("Locator(%q) = %q, want %q", tc.link.Href, got, tc.want)
		}
	}
}

func TestRelation_EmbeddedSupersedesLinks(t *testing.T) {
	res := halclient.NewResource().
		WithLinks("children", "/children/9").
		Embed("children", mustBody(t, map[string]any{"name": "x"}))

	elems, ok := res.Relation("children")
	if !ok || len(elems) != 1 {
		t.Fatalf("relation = %v, %v", elems, ok)
	}
	if !elems[0].Embedded() || elems[0].Locator != "" {
		t.Fatalf("expected the embedded body to win, got %+v", elems[0])
	}
}

func TestRelation_LinkOnlyEmbeddedDocumentUsesSelf(t *testing.T) {
	res := halclient.NewResource().Embed("children", halclient.NewResource().WithSelf("/children/3"))
	elems, _ := res.Relation("children")
	if elems[0].Embedded() || elems[0].Locator != "/children/3" {
		t.Fatalf("expected a link-only element, got %+v", elems[0])
	}
}

func mustBody(t *testing.T, body any) *halclient.Resource {
	t.Helper()
	r, err := halclient.FromBody(nil, body)
	if err != nil {
		t.Fatalf("FromBody: %v", err)
	}
	return r
}
