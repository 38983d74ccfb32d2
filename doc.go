// Package halclient maps HAL JSON resources onto typed Go domain values.
//
// A HAL document carries its own state plus two hypermedia sections:
// `_links` (relation name -> locator) and `_embedded` (relation name -> full
// nested documents). halclient hydrates embedded bodies directly and stands in
// for link-only associations with lazy proxies that fetch the target the first
// time any of its members is accessed.
//
// Building blocks:
//
//   - Resource / Link / Element: the envelope model.
//   - Lazy[T] and ProxyFactory: memoizing, thread-safe deferred references and
//     the registry of per-contract adapters that expose them as T.
//   - CollectionResolver[T]: decides per element between hydration and proxy.
//   - Registry and Mapper: the explicit conversion configuration binding
//     (parent type, field) pairs to lazy resolution.
//   - Fetcher / HTTPFetcher: retrieval of a resource by locator.
//
// Design policy:
//   - Keep public APIs in the root package; fixtures and configuration live under internal/.
//   - Contracts are Go interfaces owned by the application; adapters embed Proxy[T].
//   - No global state: the Registry, ProxyFactory and Mapper are built once and passed around.
//
// Typical usage:
//
//	reg := halclient.NewRegistry()
//	_ = halclient.RegisterType[Child](reg, func() Child { return &child{} })
//	_ = halclient.BindLazy[Parent, Child](reg, "Children")
//
//	pf := halclient.NewProxyFactory(halclient.RetryOnFailure)
//	_ = halclient.RegisterProxy[Child](pf, func(p halclient.Proxy[Child]) Child { return lazyChild{p} })
//
//	f, _ := halclient.NewHTTPFetcher(halclient.HTTPConfig{BaseURL: "http://localhost:8080"})
//	m, _ := halclient.NewMapper(halclient.MapperConfig{Registry: reg, Proxies: pf, Fetcher: f})
//	parent, err := halclient.Get[Parent](ctx, m, "/parents/1")
package halclient
