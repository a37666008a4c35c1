// Package qjs runs session scripts on QuickJS (modernc.org/quickjs) instead
// of goja.
//
// Host objects reach scripts as frozen plain objects whose methods are
// native callables bound to (object id, method name), the same shape the
// QuickJS embedding API produces with JS_NewCFunctionData. Calls go through
// the shared registry, dispatcher and invoker, so both engines expose the
// same objects with the same rules.
//
// Values cross the engine boundary as JSON. Host objects, binary data and
// non-finite numbers travel as tagged objects:
//
//	{"@jsbridge": "object", "id": 3}
//	{"@jsbridge": "binary", "data": [1, 2, 3]}
//	{"@jsbridge": "number", "value": "NaN"}
//
// Method lists are captured when a proxy is created. A proxy whose host
// object is released keeps its methods, and calling them fails with an
// unknown object error.
package qjs
