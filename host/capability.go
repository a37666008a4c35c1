package host

import (
	"slices"
	"strings"
)

// Capability decides which Go methods of a host object are exposed.
// Permits receives the live object and the Go method name.
type Capability interface {
	Permits(obj any, goMethod string) bool
	Name() string
}

// ScriptExporter marks a host type whose exposed members are listed
// explicitly. It plays the role of a "callable from script" annotation.
type ScriptExporter interface {
	ScriptMethods() []string
}

var (
	// All exposes every exported method.
	All Capability = allCapability{}

	// Annotated exposes only the methods a ScriptExporter lists. Objects that
	// do not implement ScriptExporter expose nothing.
	Annotated Capability = annotatedCapability{}
)

// Allow exposes the named Go methods only.
func Allow(goMethods ...string) Capability {
	set := make(map[string]struct{}, len(goMethods))
	for _, m := range goMethods {
		set[m] = struct{}{}
	}
	return allowCapability{set: set}
}

type allCapability struct{}

func (allCapability) Permits(any, string) bool { return true }
func (allCapability) Name() string             { return "all" }

type annotatedCapability struct{}

func (annotatedCapability) Permits(obj any, goMethod string) bool {
	e, ok := obj.(ScriptExporter)
	if !ok {
		return false
	}
	return slices.Contains(e.ScriptMethods(), goMethod)
}

func (annotatedCapability) Name() string { return "annotated" }

type allowCapability struct {
	set map[string]struct{}
}

func (c allowCapability) Permits(_ any, goMethod string) bool {
	_, ok := c.set[goMethod]
	return ok
}

func (c allowCapability) Name() string {
	names := make([]string, 0, len(c.set))
	for n := range c.set {
		names = append(names, n)
	}
	slices.Sort(names)
	return "allow(" + strings.Join(names, ",") + ")"
}

func orAll(c Capability) Capability {
	if c == nil {
		return All
	}
	return c
}
