package halserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	halclient "github.com/reoring/halclient"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Seed(context.Background()))

	s := New(store, nil)
	hs := httptest.NewServer(s.Handler())
	t.Cleanup(hs.Close)
	return s, hs
}

func getResource(t *testing.T, url string) (*halclient.Resource, int) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, halclient.MediaTypeHAL, resp.Header.Get("Content-Type"))

	res := &halclient.Resource{}
	require.NoError(t, json.Unmarshal(body, res), string(body))
	return res, resp.StatusCode
}

func TestServer_SimpleEntity(t *testing.T) {
	s, hs := newTestServer(t)

	res, status := getResource(t, hs.URL+"/simpleEntities/1")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "/simpleEntities/1", res.SelfLocator())
	rel, ok := res.Link("related")
	require.True(t, ok)
	require.Equal(t, "/simpleEntities/1/related", rel.Href)
	require.Equal(t, 1, s.Hits("/simpleEntities/1"))

	related, status := getResource(t, hs.URL+rel.Href)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "/simpleEntities/2", related.SelfLocator())

	embedded, _ := getResource(t, hs.URL+"/simpleEntities/1?related=embed")
	require.Len(t, embedded.EmbeddedFor("related"), 1)
	require.Equal(t, 2, s.Hits("/simpleEntities/1"))
}

func TestServer_ParentModes(t *testing.T) {
	_, hs := newTestServer(t)

	embed, _ := getResource(t, hs.URL+"/parents/1?children=embed")
	require.Len(t, embed.EmbeddedFor("children"), 3)
	require.Empty(t, embed.LinksFor("children"))
	self, _ := embed.Self()
	require.True(t, self.Templated)
	require.Equal(t, "/parents/1", self.Locator())

	link, _ := getResource(t, hs.URL+"/parents/1?children=link")
	require.Len(t, link.LinksFor("children"), 3)
	require.Equal(t, "/children/1", link.LinksFor("children")[0].Href)

	for _, mode := range []string{ModeInline, ModeMixed} {
		res, _ := getResource(t, hs.URL+"/parents/1?children="+mode)
		raw, ok := res.Field("children")
		require.True(t, ok, mode)
		var items []map[string]any
		require.NoError(t, json.Unmarshal(raw, &items))
		require.Len(t, items, 3)
		_, hasName := items[1]["name"]
		require.Equal(t, mode == ModeInline, hasName, mode)
	}
}

func TestServer_Errors(t *testing.T) {
	_, hs := newTestServer(t)

	cases := []struct {
		path   string
		status int
	}{
		{"/children/99", http.StatusNotFound},
		{"/parents/abc", http.StatusBadRequest},
		{"/parents/1?children=sideways", http.StatusBadRequest},
	}
	for _, tc := range cases {
		res, status := getResource(t, hs.URL+tc.path)
		require.Equal(t, tc.status, status, tc.path)
		_, ok := res.Field("error")
		require.True(t, ok, tc.path)
	}
}

func TestServer_ResetHits(t *testing.T) {
	s, hs := newTestServer(t)
	getResource(t, hs.URL+"/children/1")
	require.Equal(t, 1, s.TotalHits())
	s.ResetHits()
	require.Zero(t, s.TotalHits())
}
