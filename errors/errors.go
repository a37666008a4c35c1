package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseMarshal  Phase = "marshal"  // script <-> host value conversion
	PhaseRegistry Phase = "registry" // object id allocation and lookup
	PhaseProxy    Phase = "proxy"    // property access on a bridge proxy
	PhaseDispatch Phase = "dispatch" // invocation routing
	PhaseHost     Phase = "host"     // reflection and the host call itself
	PhaseSession  Phase = "session"  // engine session lifecycle
	PhaseScript   Phase = "script"   // compiling or running script text
	PhaseLoad     Phase = "load"     // reading script sources
	PhaseBuiltin  Phase = "builtin"  // native utilities exposed to scripts
	PhaseConfig   Phase = "config"   // configuration parsing and validation
)

// Kind categorizes the error
type Kind string

const (
	KindScript               Kind = "script"
	KindUnknownObject        Kind = "unknown_object"
	KindInvocationDisallowed Kind = "invocation_disallowed"
	KindHostInvocation       Kind = "host_invocation"
	KindMarshalAmbiguous     Kind = "marshal_ambiguous"
	KindMethodNotFound       Kind = "method_not_found"
	KindTypeMismatch         Kind = "type_mismatch"
	KindOverflow             Kind = "overflow"
	KindPermissionDenied     Kind = "permission_denied"
	KindNotInitialized       Kind = "not_initialized"
	KindShutdown             Kind = "shutdown"
	KindInvalidInput         Kind = "invalid_input"
	KindNotFound             Kind = "not_found"
	KindUnsupported          Kind = "unsupported"
	KindRegistration         Kind = "registration"
	KindCrypto               Kind = "crypto"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value      any
	Cause      error
	Phase      Phase
	Kind       Kind
	GoType     string
	ScriptType string
	Detail     string
	Path       []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.ScriptType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.ScriptType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", script type ")
			b.WriteString(e.ScriptType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("script type ")
			b.WriteString(e.ScriptType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.ScriptType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// IsKind reports whether any *Error in err's chain has the given kind,
// regardless of phase.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}

// KindOf returns the kind of the outermost *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the member path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// ScriptType sets the script-side type name
func (b *Builder) ScriptType(t string) *Builder {
	b.err.ScriptType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// UnknownObject creates a registry miss error for an object id
func UnknownObject(phase Phase, id uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnknownObject,
		Detail: fmt.Sprintf("unknown object %d", id),
		Value:  id,
	}
}

// InvocationDisallowed creates an error for a misuse of a bridged member
func InvocationDisallowed(method, detail string) *Error {
	return &Error{
		Phase:  PhaseProxy,
		Kind:   KindInvocationDisallowed,
		Path:   []string{method},
		Detail: detail,
	}
}

// MethodNotFound creates an error for a member the host object does not expose
func MethodNotFound(goType, method string) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindMethodNotFound,
		Path:   []string{method},
		GoType: goType,
		Detail: fmt.Sprintf("no exposed method %q", method),
	}
}

// HostInvocation wraps a failure raised by the host call itself
func HostInvocation(goType, method string, cause error) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindHostInvocation,
		Path:   []string{method},
		GoType: goType,
		Cause:  cause,
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, scriptType string) *Error {
	return &Error{
		Phase:      phase,
		Kind:       KindTypeMismatch,
		Path:       path,
		GoType:     goType,
		ScriptType: scriptType,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		GoType: targetType,
		Detail: fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:  value,
	}
}

// MarshalAmbiguous creates a diagnostic for a value coerced to none
func MarshalAmbiguous(scriptType, detail string) *Error {
	return &Error{
		Phase:      PhaseMarshal,
		Kind:       KindMarshalAmbiguous,
		ScriptType: scriptType,
		Detail:     detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// Shutdown creates an error for operations on a torn-down session
func Shutdown(phase Phase, op string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindShutdown,
		Detail: fmt.Sprintf("%s after shutdown", op),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration creates a registration error
func Registration(phase Phase, name string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s", name),
		Cause:  cause,
	}
}

// Script wraps an exception raised while compiling or running a script
func Script(resource string, cause error) *Error {
	return &Error{
		Phase: PhaseScript,
		Kind:  KindScript,
		Path:  []string{resource},
		Cause: cause,
	}
}

// Load creates a source loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindNotFound,
		Detail: detail,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
