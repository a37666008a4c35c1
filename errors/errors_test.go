package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:      PhaseHost,
				Kind:       KindTypeMismatch,
				Path:       []string{"printRect", "arg 2"},
				GoType:     "int32",
				ScriptType: "string",
				Detail:     "cannot convert",
			},
			contains: []string{"[host]", "type_mismatch", "printRect.arg 2", "int32", "string", "cannot convert"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseRegistry,
				Kind:  KindUnknownObject,
			},
			contains: []string{"[registry]", "unknown_object"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseHost,
				Kind:   KindHostInvocation,
				Detail: "call failed",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[host]", "host_invocation", "call failed", "caused by", "underlying error"},
		},
		{
			name: "script type only",
			err: &Error{
				Phase:      PhaseMarshal,
				Kind:       KindMarshalAmbiguous,
				ScriptType: "Array",
				Detail:     "coerced to none",
			},
			contains: []string{"script type Array - coerced to none"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseHost,
		Kind:  KindHostInvocation,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseDispatch,
		Kind:  KindUnknownObject,
		Path:  []string{"greet"},
	}

	if !err.Is(&Error{Phase: PhaseDispatch, Kind: KindUnknownObject}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseRegistry, Kind: KindUnknownObject}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseDispatch, Kind: KindHostInvocation}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhaseDispatch, Kind: KindUnknownObject}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestIsKind(t *testing.T) {
	inner := UnknownObject(PhaseRegistry, 3)
	outer := Wrap(PhaseDispatch, KindHostInvocation, inner, "dispatch")
	wrapped := fmt.Errorf("call: %w", outer)

	if !IsKind(wrapped, KindHostInvocation) {
		t.Error("IsKind should find outer kind through fmt wrapping")
	}
	if !IsKind(wrapped, KindUnknownObject) {
		t.Error("IsKind should find kind in cause chain")
	}
	if IsKind(wrapped, KindScript) {
		t.Error("IsKind should not match absent kind")
	}
	if IsKind(errors.New("plain"), KindScript) {
		t.Error("IsKind should be false for plain errors")
	}
	if got := KindOf(wrapped); got != KindHostInvocation {
		t.Errorf("KindOf = %q, want %q", got, KindHostInvocation)
	}
	if got := KindOf(nil); got != "" {
		t.Errorf("KindOf(nil) = %q, want empty", got)
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseHost, KindTypeMismatch).
		Path("greet", "arg 0").
		GoType("string").
		ScriptType("number").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "string", "number").
		Build()

	if err.Phase != PhaseHost {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseHost)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if len(err.Path) != 2 || err.Path[0] != "greet" || err.Path[1] != "arg 0" {
		t.Errorf("Path = %v, want [greet arg 0]", err.Path)
	}
	if err.GoType != "string" {
		t.Errorf("GoType = %v, want 'string'", err.GoType)
	}
	if err.ScriptType != "number" {
		t.Errorf("ScriptType = %v, want 'number'", err.ScriptType)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected string, got number" {
		t.Errorf("Detail = %v, want 'expected string, got number'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("UnknownObject", func(t *testing.T) {
		err := UnknownObject(PhaseRegistry, 9)
		if err.Kind != KindUnknownObject {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUnknownObject)
		}
		if !strings.Contains(err.Error(), "unknown object 9") {
			t.Errorf("Error() = %q, should mention the id", err.Error())
		}
	})

	t.Run("InvocationDisallowed", func(t *testing.T) {
		err := InvocationDisallowed("greet", "constructor")
		if err.Kind != KindInvocationDisallowed || err.Phase != PhaseProxy {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
	})

	t.Run("MethodNotFound", func(t *testing.T) {
		err := MethodNotFound("*main.MyObject", "fly")
		if err.Kind != KindMethodNotFound {
			t.Errorf("Kind = %v, want %v", err.Kind, KindMethodNotFound)
		}
		if err.GoType != "*main.MyObject" {
			t.Errorf("GoType = %v", err.GoType)
		}
	})

	t.Run("HostInvocation", func(t *testing.T) {
		cause := errors.New("boom")
		err := HostInvocation("*T", "run", cause)
		if !errors.Is(err, cause) {
			t.Error("HostInvocation should wrap cause")
		}
	})

	t.Run("Overflow", func(t *testing.T) {
		err := Overflow(PhaseHost, []string{"val"}, int64(1)<<40, "int32")
		if err.Kind != KindOverflow {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOverflow)
		}
		if err.Value != int64(1)<<40 {
			t.Errorf("Value = %v", err.Value)
		}
	})

	t.Run("Shutdown", func(t *testing.T) {
		err := Shutdown(PhaseSession, "run")
		if err.Kind != KindShutdown {
			t.Errorf("Kind = %v, want %v", err.Kind, KindShutdown)
		}
	})

	t.Run("Script", func(t *testing.T) {
		err := Script("main.js", errors.New("ReferenceError"))
		if err.Kind != KindScript || err.Path[0] != "main.js" {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseLoad, "script", "a.js")
		if !strings.Contains(err.Detail, `"a.js"`) {
			t.Errorf("Detail = %q", err.Detail)
		}
	})
}
