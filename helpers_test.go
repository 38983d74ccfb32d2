package halclient_test

import (
	"context"
	"sync"
	"testing"
	"time"

	halclient "github.com/reoring/halclient"
)

// Child is the contract used across the black-box tests.
type Child interface {
	Name(ctx context.Context) (string, error)
}

type child struct {
	ChildName string `json:"name"`
}

func (c *child) Name(context.Context) (string, error) { return c.ChildName, nil }

type lazyChild struct{ halclient.Proxy[Child] }

func (c lazyChild) Name(ctx context.Context) (string, error) {
	t, err := c.Target(ctx)
	if err != nil {
		return "", err
	}
	return t.Name(ctx)
}

// Parent binds Children for lazy resolution and Related as a to-one relation.
type Parent struct {
	Title    string  `json:"title"`
	Children []Child `json:"children"`
	Related  Child   `json:"related"`
}

// stubFetcher serves canned documents and counts calls per locator.
type stubFetcher struct {
	mu    sync.Mutex
	docs  map[string]string
	calls map[string]int
	delay time.Duration
}

func newStubFetcher(docs map[string]string) *stubFetcher {
	return &stubFetcher{docs: docs, calls: map[string]int{}}
}

func (f *stubFetcher) Fetch(ctx context.Context, loc string) (*halclient.Resource, error) {
	f.mu.Lock()
	f.calls[loc]++
	body, ok := f.docs[loc]
	delay := f.delay
	f.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, &halclient.Error{Code: halclient.CodeTransport, Locator: loc, Cause: ctx.Err()}
		}
	}
	if !ok {
		return nil, &halclient.Error{Code: halclient.CodeStatus, Locator: loc, Status: 404}
	}
	res := &halclient.Resource{}
	if err := halclient.GoJSON().Unmarshal([]byte(body), res); err != nil {
		return nil, &halclient.Error{Code: halclient.CodeDecode, Locator: loc, Cause: err}
	}
	return res, nil
}

func (f *stubFetcher) set(loc, body string) {
	f.mu.Lock()
	f.docs[loc] = body
	f.mu.Unlock()
}

func (f *stubFetcher) count(loc string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[loc]
}

func (f *stubFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func newTestProxies(t *testing.T, policy halclient.FailurePolicy) *halclient.ProxyFactory {
	t.Helper()
	pf := halclient.NewProxyFactory(policy)
	if err := halclient.RegisterProxy[Child](pf, func(p halclient.Proxy[Child]) Child { return lazyChild{p} }); err != nil {
		t.Fatalf("register proxy: %v", err)
	}
	return pf
}

func newTestMapper(t *testing.T, f halclient.Fetcher) *halclient.Mapper {
	t.Helper()
	reg := halclient.NewRegistry()
	if err := halclient.RegisterType[Child](reg, func() Child { return &child{} }); err != nil {
		t.Fatalf("register type: %v", err)
	}
	if err := halclient.BindLazy[Parent, Child](reg, "Children"); err != nil {
		t.Fatalf("bind children: %v", err)
	}
	if err := halclient.BindLazy[Parent, Child](reg, "related"); err != nil {
		t.Fatalf("bind related: %v", err)
	}
	m, err := halclient.NewMapper(halclient.MapperConfig{
		Registry: reg,
		Proxies:  newTestProxies(t, halclient.RetryOnFailure),
		Fetcher:  f,
	})
	if err != nil {
		t.Fatalf("new mapper: %v", err)
	}
	return m
}

func mustName(t *testing.T, c Child) string {
	t.Helper()
	n, err := c.Name(context.Background())
	if err != nil {
		t.Fatalf("Name: %v", err)
	}
	return n
}
