// Package bridge makes registered host objects callable from goja.
//
// Each registered object id gets one Proxy per bridge, implemented as a
// goja dynamic object. Reading a property that names an exposed method
// yields a function; calling it converts the arguments with the marshal
// converter, routes the call through the Dispatcher and converts the result
// back. Object results are registered under fresh ids and come back as new
// proxies, so calls chain naturally:
//
//	myobject.getMyHome().printRect(0, 0, 512, 512)
//
// Unknown members read as undefined and are absent from enumeration.
// Calling a bridge method with new, or with a receiver that is not one of
// the bridge's proxies, raises an invocation_disallowed error in the script.
// Host failures surface as script exceptions carrying the structured error
// text.
//
// A Bridge is bound to one runtime and must be used from the goroutine
// that owns it.
package bridge
