package jsbridge

// ObjectID identifies one bridged host object within a session.
// IDs are allocated from 1 and never reused while the session lives.
type ObjectID uint64

// InvalidObjectID is reserved and never allocated.
const InvalidObjectID ObjectID = 0

// Valid reports whether id could have been issued by a registry.
func (id ObjectID) Valid() bool {
	return id != InvalidObjectID
}
