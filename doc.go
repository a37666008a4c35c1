// Package jsbridge embeds a JavaScript engine in a Go program and exposes
// selected Go host objects to scripts as callable, enumerable proxies.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	jsbridge/         Root package with ObjectID
//	├── value/        Host-neutral value union exchanged across the bridge
//	├── host/         Host object handles, capability filters, reflection invoker
//	├── registry/     Thread-safe ObjectID -> handle table
//	├── marshal/      Script value <-> host value conversion
//	├── bridge/       Proxy objects and the invocation dispatcher
//	├── builtin/      Native script utilities (log sink, console, crypto)
//	├── source/       Script source loading
//	├── config/       YAML configuration, validation and schema
//	├── session/      Engine session: lifecycle, worker, global injection
//	└── errors/       Structured error types
//
// # Quick Start
//
//	s := session.New(session.WithLogger(logger))
//	if err := s.Init(); err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Shutdown(ctx)
//
//	obj := &MyObject{}
//	if _, err := s.InjectObject("myobject", host.NewHandle(obj, host.All)); err != nil {
//	    log.Fatal(err)
//	}
//
//	task, err := s.Run([]byte(`myobject.getMessage()`), "inline.js")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := task.Wait(ctx)
//	fmt.Println(result) // "This is a Go string"
//
// # Host Objects
//
// A bridged object is addressed by ObjectID; scripts never hold Go pointers.
// Property access on a proxy asks the host invoker whether the name is a
// callable member, and method calls are dispatched by name at call time.
// Objects returned from host methods are registered and wrapped on the fly,
// so scripts can chain calls without any extra host-side injection.
//
// # Thread Safety
//
// Session and the registry are safe for concurrent use. All script execution
// happens on a single worker goroutine per session, in submission order.
//
// # Lifetime
//
// Registry entries live until the session shuts down. Handles never own the
// host object: once the host releases it, lookups report an unknown object.
package jsbridge
