// Package host describes host objects and how scripts reach their methods.
//
// A host object enters the bridge as a Handle. Handles never own the
// object: NewWeakHandle follows the Go garbage collector, NewHandle follows
// an explicit Release by the host.
//
// Which methods are visible is decided by a Capability:
//
//	host.All                      // every exported method
//	host.Annotated                // methods listed by ScriptMethods()
//	host.Allow("DoLog", "Greet")  // an explicit allow-list
//
// ReflectInvoker performs the calls. Go method names are exposed in
// lowerCamelCase (GetMessage -> getMessage, HTTPPort -> httpPort).
// Methods may take a leading context.Context and return (), (T), (error)
// or (T, error). Struct results and struct pointers are returned as host
// objects so the bridge can proxy them; other results are converted to
// value.Value.
package host
