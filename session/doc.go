// Package session runs scripts against injected host objects.
//
// A Session owns one script engine and a single worker goroutine. The
// engine is goja unless session.engine selects quickjs; both expose host
// objects through the same registry, dispatcher and invoker. Every
// script run and every global binding goes through the worker's FIFO
// queue, so a buffer and its log output complete before the next buffer
// starts.
//
//	s := session.New(session.WithLogger(log))
//	if err := s.Init(); err != nil {
//		return err
//	}
//	defer s.Shutdown(ctx)
//
//	s.InjectObject("myobject", host.NewWeakHandle(obj, host.All))
//	task, _ := s.RunBuffer([]byte(`myobject.getMessage()`))
//	v, err := task.Wait(ctx)
//
// Objects may be injected before Init and from host methods running on the
// worker. Uncaught script exceptions are logged with their stack and
// returned from Task.Wait; the session keeps running.
//
// Shutdown is queued behind submitted work. Once it completes the registry
// is closed, handles created for object results are released and further
// calls fail with errors.KindShutdown.
package session
