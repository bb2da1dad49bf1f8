// Package instances is a small capability registry (service locator).
//
// Capabilities are identified by their Go type, usually an interface. A type
// is bound in one of three ways:
//
//   - an exact factory (Register)
//   - a family resolver serving every type assignable to a family
//     (RegisterResolver), consulted in registration order
//   - a configuration key instances.<TypeName> naming an implementation
//     added with Provide
//
// Exact factories always take precedence over resolvers, and resolvers over
// configuration.
//
// # Deferred handles
//
// Lookup returns a handle that can be taken before anything is bound, which
// lets packages wire dependencies on each other in any order at startup. The
// handle resolves on first use and caches its delegate from then on. If
// nothing is bound by then, Get returns a *NoInstanceError; inside a test
// binary the error carries a hint to register a mock or factory.
//
//	repo := instances.Lookup[SomethingRepository](instances.Default())
//	...
//	r, err := repo.Get()
//
// # Thread Safety
//
// Registry methods and handles are safe for concurrent use.
package instances
