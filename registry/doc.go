// Package registry maps object ids to host handles.
//
// Every host object visible to scripts has exactly one id per session.
// Ids start at 1, grow strictly and are never reused:
//
//	reg := registry.New()
//	id, err := reg.Register(host.NewHandle(obj, host.All))
//	h, err := reg.Lookup(id)
//
// Lookup fails with errors.KindUnknownObject for ids that were never issued
// and for handles whose host object was released or collected.
//
// # Ownership
//
// Register stores a handle the host owns; the registry only references it.
// Adopt stores a handle created on the bridge's behalf (for example an
// object returned by a host method); such handles are released by Close.
//
// # Observers
//
// Observers receive EventRegistered, EventLookupMissed and EventClosed.
// They are called after the table lock is released.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Id allocation and insertion
// happen under one lock, so concurrent registrations never share an id.
package registry
