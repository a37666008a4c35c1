package registry

import (
	"github.com/wippyai/jsbridge"
	"github.com/wippyai/jsbridge/host"
)

// EventType identifies a registry lifecycle notification.
type EventType uint8

const (
	EventRegistered EventType = iota
	EventLookupMissed
	EventClosed
)

func (t EventType) String() string {
	switch t {
	case EventRegistered:
		return "registered"
	case EventLookupMissed:
		return "lookup_missed"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event describes a registry lifecycle notification. Handle is nil for
// misses and for EventClosed.
type Event struct {
	Handle *host.Handle
	ID     jsbridge.ObjectID
	Type   EventType
	Owned  bool
}

// Observer receives registry events. Observers run outside the table lock
// and may call back into the registry.
type Observer interface {
	OnRegistryEvent(Event)
}
