package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	halclient "github.com/reoring/halclient"
	"github.com/reoring/halclient/internal/config"
	"github.com/reoring/halclient/internal/halserver"
)

func TestRender(t *testing.T) {
	res := halclient.NewResource().WithSelf("/children/1")
	res.State["name"] = halclient.RawMessage(`"alpha"`)

	var buf bytes.Buffer
	require.NoError(t, render(&buf, "json", res))
	require.Contains(t, buf.String(), `"name": "alpha"`)

	buf.Reset()
	require.NoError(t, render(&buf, "yaml", res))
	require.Contains(t, buf.String(), "name: alpha")
	require.Contains(t, buf.String(), "href: /children/1")

	buf.Reset()
	require.NoError(t, render(&buf, "dump", res))
	require.Contains(t, buf.String(), `"alpha"`)

	require.Error(t, render(&buf, "xml", res))
}

func TestDocumentMapper_FollowsLinkedChildrenLazily(t *testing.T) {
	ctx := context.Background()
	store, err := halserver.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Seed(ctx))
	srv := halserver.New(store, nil)
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)

	cfg := config.DefaultConfig()
	cfg.BaseURL = hs.URL
	f, err := halclient.NewHTTPFetcher(cfg.HTTPConfig(nil))
	require.NoError(t, err)
	m, err := newDocumentMapper(cfg, f, nil)
	require.NoError(t, err)

	parent, err := f.Fetch(ctx, "/parents/1?children=mixed")
	require.NoError(t, err)
	elems, ok, err := parent.Elements("children")
	require.NoError(t, err)
	require.True(t, ok)

	docs, err := halclient.NewCollectionResolver[document](m).ResolveCollection(ctx, elems)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	require.Zero(t, srv.Hits("/children/2"))

	var selves []string
	for _, d := range docs {
		body, err := d.Resource(ctx)
		require.NoError(t, err)
		selves = append(selves, body.SelfLocator())
	}
	require.Equal(t, []string{"/children/1", "/children/2", "/children/3"}, selves)
	require.Equal(t, 1, srv.Hits("/children/2"))
}
