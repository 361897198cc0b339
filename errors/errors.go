package errors

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates which entry point produced the error
type Phase string

const (
	PhaseCreate    Phase = "create"    // object name allocation
	PhaseDelete    Phase = "delete"    // object deletion
	PhaseImport    Phase = "import"    // OS handle import
	PhaseWait      Phase = "wait"      // server-side wait
	PhaseSignal    Phase = "signal"    // server-side signal
	PhaseParameter Phase = "parameter" // object parameter access
	PhaseStorage   Phase = "storage"   // storage allocation from memory objects
	PhaseHost      Phase = "host"      // wasm host bindings
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidCount      Kind = "invalid_count"
	KindInvalidHandleKind Kind = "invalid_handle_kind"
	KindUnknownObject     Kind = "unknown_object"
	KindAllocation        Kind = "allocation"
	KindNotImported       Kind = "not_imported"
	KindAlreadyImported   Kind = "already_imported"
	KindImmutable         Kind = "immutable"
	KindInvalidEnum       Kind = "invalid_enum"
	KindUnsupported       Kind = "unsupported"
	KindMemoryAccess      Kind = "memory_access"
	KindOutOfRange        Kind = "out_of_range"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value      any
	Cause      error
	Phase      Phase
	Kind       Kind
	ObjectType string
	Detail     string
	Object     uint32
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.ObjectType != "" {
		b.WriteString(" on ")
		b.WriteString(e.ObjectType)
		b.WriteByte(' ')
		b.WriteString(strconv.FormatUint(uint64(e.Object), 10))
	}

	if e.Detail != "" {
		b.WriteString(": ")
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

// Is reports whether target matches this error.
// A target with an empty Phase matches any phase.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return (t.Phase == "" || e.Phase == t.Phase) && e.Kind == t.Kind
	}
	return false
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HasKind reports whether err carries the given Kind regardless of phase.
func HasKind(err error, kind Kind) bool {
	return stderrors.Is(err, &Error{Kind: kind})
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

// Object sets the object type and name involved
func (b *Builder) Object(objectType string, name uint32) *Builder {
	b.err.ObjectType = objectType
	b.err.Object = name
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

// InvalidCount creates a negative or mismatched count error
func InvalidCount(phase Phase, n int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidCount,
		Detail: fmt.Sprintf("invalid count %d", n),
		Value:  n,
	}
}

// InvalidHandleKind creates an unsupported OS handle kind error
func InvalidHandleKind(phase Phase, kind fmt.Stringer) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidHandleKind,
		Detail: fmt.Sprintf("handle kind %s is not supported", kind),
		Value:  kind,
	}
}

// UnknownObject creates an error for a name that resolves to nothing
func UnknownObject(phase Phase, objectType string, name uint32) *Error {
	return &Error{
		Phase:      phase,
		Kind:       KindUnknownObject,
		ObjectType: objectType,
		Object:     name,
		Detail:     "name was not created by this device",
	}
}

// AllocationFailed creates a backend allocation failure error
func AllocationFailed(phase Phase, what string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %s", what),
		Cause:  cause,
	}
}

// NotImported creates an error for an object that has no backend binding yet
func NotImported(phase Phase, objectType string, name uint32) *Error {
	return &Error{
		Phase:      phase,
		Kind:       KindNotImported,
		ObjectType: objectType,
		Object:     name,
		Detail:     "no OS handle has been imported",
	}
}

// AlreadyImported creates an error for a second import onto one object
func AlreadyImported(phase Phase, objectType string, name uint32) *Error {
	return &Error{
		Phase:      phase,
		Kind:       KindAlreadyImported,
		ObjectType: objectType,
		Object:     name,
		Detail:     "an OS handle has already been imported",
	}
}

// Immutable creates an error for a parameter change after import
func Immutable(phase Phase, objectType string, name uint32) *Error {
	return &Error{
		Phase:      phase,
		Kind:       KindImmutable,
		ObjectType: objectType,
		Object:     name,
		Detail:     "object is immutable once imported",
	}
}

// InvalidEnum creates an invalid enum value error
func InvalidEnum(phase Phase, value any, enumType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidEnum,
		Detail: fmt.Sprintf("invalid enum value %v for %s", value, enumType),
		Value:  value,
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

// MemoryAccess creates a guest memory access error
func MemoryAccess(phase Phase, offset, length uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMemoryAccess,
		Detail: fmt.Sprintf("guest memory [%d, +%d) out of range", offset, length),
		Value:  offset,
	}
}

// OutOfRange creates an error for a byte range that exceeds an object
func OutOfRange(phase Phase, objectType string, name uint32, end, size uint64) *Error {
	return &Error{
		Phase:      phase,
		Kind:       KindOutOfRange,
		ObjectType: objectType,
		Object:     name,
		Detail:     fmt.Sprintf("range end %d exceeds size %d", end, size),
		Value:      end,
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
