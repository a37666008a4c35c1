package host

import (
	"context"

	"github.com/wippyai/jsbridge"
	"github.com/wippyai/jsbridge/value"
)

// Invoker is the reflection collaborator the bridge consults. It resolves
// members by script name and performs the actual host call. Implementations
// must be safe for concurrent use.
type Invoker interface {
	// HasMethod reports whether name is an exposed callable member.
	HasMethod(h *Handle, name string) bool

	// MethodNames returns the exposed member names, deduplicated.
	MethodNames(h *Handle) []string

	// Invoke resolves call.Method against the live object and calls it.
	Invoke(ctx context.Context, h *Handle, call Call) (Result, error)

	// CapabilityFilter returns the filter object results should inherit.
	CapabilityFilter(h *Handle) Capability
}

// Call carries one invocation request.
type Call struct {
	// Resolve maps object arguments back to host objects.
	Resolve func(jsbridge.ObjectID) (any, bool)

	// Bind registers host objects nested inside list or map results.
	Bind func(obj any) (jsbridge.ObjectID, bool)

	Method string
	Args   []value.Value
}

// Result is either a value or a host object that still has to be bridged.
type Result struct {
	Object any
	Value  value.Value
}

// IsObject reports whether the call produced a host object.
func (r Result) IsObject() bool {
	return r.Object != nil
}
