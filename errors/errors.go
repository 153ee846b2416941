package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseDeclaration Phase = "declaration" // descriptor construction
	PhaseLoad        Phase = "load"        // library loading
	PhaseSymbol      Phase = "symbol"      // symbol resolution and signature checks
	PhaseMarshal     Phase = "marshal"     // host <-> native value conversion
	PhaseCall        Phase = "call"        // native call and binder lifecycle
	PhaseParse       Phase = "parse"       // header text parsing
)

// Kind categorizes the error
type Kind string

const (
	KindDuplicateDeclaration Kind = "duplicate_declaration"
	KindInvalidDeclaration   Kind = "invalid_declaration"
	KindUnknownSymbol        Kind = "unknown_symbol"
	KindLibraryNotFound      Kind = "library_not_found"
	KindLibraryLoad          Kind = "library_load"
	KindSymbolNotFound       Kind = "symbol_not_found"
	KindSignatureMismatch    Kind = "signature_mismatch"
	KindNullPointer          Kind = "null_pointer"
	KindDanglingCallback     Kind = "dangling_callback"
	KindOverflow             Kind = "overflow"
	KindTypeMismatch         Kind = "type_mismatch"
	KindLayoutMismatch       Kind = "layout_mismatch"
	KindInvalidEnum          Kind = "invalid_enum"
	KindFieldMissing         Kind = "field_missing"
	KindFieldUnknown         Kind = "field_unknown"
	KindUnsupported          Kind = "unsupported"
	KindCallFault            Kind = "call_fault"
	KindUseAfterClose        Kind = "use_after_close"
	KindInvalidState         Kind = "invalid_state"
	KindInvalidData          Kind = "invalid_data"
)

// Match targets for errors.Is. Matching compares Phase and Kind only.
var (
	ErrDuplicateDeclaration = &Error{Phase: PhaseDeclaration, Kind: KindDuplicateDeclaration}
	ErrInvalidDeclaration   = &Error{Phase: PhaseDeclaration, Kind: KindInvalidDeclaration}
	ErrUnknownSymbol        = &Error{Phase: PhaseDeclaration, Kind: KindUnknownSymbol}
	ErrLibraryNotFound      = &Error{Phase: PhaseLoad, Kind: KindLibraryNotFound}
	ErrLibraryLoad          = &Error{Phase: PhaseLoad, Kind: KindLibraryLoad}
	ErrSymbolNotFound       = &Error{Phase: PhaseSymbol, Kind: KindSymbolNotFound}
	ErrSignatureMismatch    = &Error{Phase: PhaseSymbol, Kind: KindSignatureMismatch}
	ErrNullPointer          = &Error{Phase: PhaseMarshal, Kind: KindNullPointer}
	ErrDanglingCallback     = &Error{Phase: PhaseMarshal, Kind: KindDanglingCallback}
	ErrOverflow             = &Error{Phase: PhaseMarshal, Kind: KindOverflow}
	ErrLayoutMismatch       = &Error{Phase: PhaseMarshal, Kind: KindLayoutMismatch}
	ErrTypeMismatch         = &Error{Phase: PhaseMarshal, Kind: KindTypeMismatch}
	ErrInvalidEnum          = &Error{Phase: PhaseMarshal, Kind: KindInvalidEnum}
	ErrFieldMissing         = &Error{Phase: PhaseMarshal, Kind: KindFieldMissing}
	ErrFieldUnknown         = &Error{Phase: PhaseMarshal, Kind: KindFieldUnknown}
	ErrUnsupported          = &Error{Phase: PhaseMarshal, Kind: KindUnsupported}
	ErrCallFault            = &Error{Phase: PhaseCall, Kind: KindCallFault}
	ErrUseAfterClose        = &Error{Phase: PhaseCall, Kind: KindUseAfterClose}
	ErrInvalidState         = &Error{Phase: PhaseCall, Kind: KindInvalidState}
)

// Error is the structured error type used throughout the library
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	CType  string
	Detail string
	Path   []string
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

	if e.GoType != "" || e.CType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.CType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", C type ")
			b.WriteString(e.CType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("C type ")
			b.WriteString(e.CType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.CType != "" {
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

// Path sets the parameter path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// CType sets the C type spelling
func (b *Builder) CType(t string) *Builder {
	b.err.CType = t
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

// Declaration errors

// DuplicateDeclaration reports a second declaration of name.
func DuplicateDeclaration(name, existing string) *Error {
	return &Error{
		Phase:  PhaseDeclaration,
		Kind:   KindDuplicateDeclaration,
		Path:   []string{name},
		Detail: fmt.Sprintf("%q is already declared as %s", name, existing),
	}
}

// InvalidDeclaration reports a declaration that references an unresolved type
// or is otherwise malformed.
func InvalidDeclaration(path []string, detail string) *Error {
	return &Error{
		Phase:  PhaseDeclaration,
		Kind:   KindInvalidDeclaration,
		Path:   path,
		Detail: detail,
	}
}

// UnknownSymbol reports a lookup of a name the descriptor does not declare.
func UnknownSymbol(name string) *Error {
	return &Error{
		Phase:  PhaseDeclaration,
		Kind:   KindUnknownSymbol,
		Detail: fmt.Sprintf("%q is not declared", name),
	}
}

// Load errors

// LibraryNotFound reports a library path that does not resolve.
func LibraryNotFound(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindLibraryNotFound,
		Detail: fmt.Sprintf("library %q not found", path),
		Cause:  cause,
	}
}

// LibraryLoad reports a library that exists but failed to load.
func LibraryLoad(path string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindLibraryLoad,
		Detail: fmt.Sprintf("load library %q", path),
		Cause:  cause,
	}
}

// Symbol errors

// SymbolNotFound wraps the list of unresolved exports of one bind attempt.
func SymbolNotFound(missing *MissingSymbolsError) *Error {
	return &Error{
		Phase:  PhaseSymbol,
		Kind:   KindSymbolNotFound,
		Detail: fmt.Sprintf("%d declared symbol(s) not exported", len(missing.Symbols)),
		Cause:  missing,
	}
}

// SignatureMismatch reports a declared signature the call layer cannot bind.
func SignatureMismatch(function, detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseSymbol,
		Kind:   KindSignatureMismatch,
		Path:   []string{function},
		Detail: detail,
		Cause:  cause,
	}
}

// Marshal errors

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, cType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		GoType: goType,
		CType:  cType,
	}
}

// NullPointer reports a null value passed where a non-null pointer is required.
func NullPointer(path []string, cType string) *Error {
	return &Error{
		Phase:  PhaseMarshal,
		Kind:   KindNullPointer,
		Path:   path,
		CType:  cType,
		Detail: "null pointer for non-null parameter",
	}
}

// DanglingCallback reports use of a callback wrapper whose host side was released.
func DanglingCallback(path []string, cType string) *Error {
	return &Error{
		Phase:  PhaseMarshal,
		Kind:   KindDanglingCallback,
		Path:   path,
		CType:  cType,
		Detail: "callback host function has been released",
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		CType:  targetType,
		Detail: fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:  value,
	}
}

// LayoutMismatch reports a Go representation whose size, alignment or field
// offsets differ from the declared native layout.
func LayoutMismatch(path []string, cType, detail string) *Error {
	return &Error{
		Phase:  PhaseMarshal,
		Kind:   KindLayoutMismatch,
		Path:   path,
		CType:  cType,
		Detail: detail,
	}
}

// FieldMissing creates a missing field error
func FieldMissing(phase Phase, path []string, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldMissing,
		Path:   path,
		Detail: fmt.Sprintf("required field %q not found", fieldName),
	}
}

// FieldUnknown creates an unknown field error
func FieldUnknown(phase Phase, path []string, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldUnknown,
		Path:   path,
		Detail: fmt.Sprintf("unknown field %q", fieldName),
	}
}

// InvalidEnum creates an invalid enum value error
func InvalidEnum(phase Phase, path []string, value any, enumType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidEnum,
		Path:   path,
		CType:  enumType,
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

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Call errors

// CallFault reports a fault raised while a native call was running. The
// cause is surfaced verbatim.
func CallFault(function string, cause error) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindCallFault,
		Path:   []string{function},
		Detail: "native call faulted",
		Cause:  cause,
	}
}

// UseAfterClose reports an operation on a closed binder or its functions.
func UseAfterClose(what string) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindUseAfterClose,
		Detail: fmt.Sprintf("%s used after close", what),
	}
}

// InvalidState reports an operation attempted in the wrong lifecycle state.
func InvalidState(detail string) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindInvalidState,
		Detail: detail,
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

// ParseFailed creates a header parsing error
func ParseFailed(line int, detail string) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("line %d: %s", line, detail),
		Value:  line,
	}
}

// MissingSymbol represents a single unresolved export
type MissingSymbol struct {
	Name      string // e.g., "ptr_ptr"
	Signature string // e.g., "int64_t** ptr_ptr(int64_t**)"
}

// MissingSymbolsError is returned when binding fails because the library does
// not export declared functions
type MissingSymbolsError struct {
	Library string
	Symbols []MissingSymbol
}

// NewMissingSymbolsError creates an error from "name" or "name|signature" keys
func NewMissingSymbolsError(library string, symbols []string) *MissingSymbolsError {
	result := &MissingSymbolsError{
		Library: library,
		Symbols: make([]MissingSymbol, 0, len(symbols)),
	}
	for _, sym := range symbols {
		name, sig := parseSymbolKey(sym)
		result.Symbols = append(result.Symbols, MissingSymbol{
			Name:      name,
			Signature: sig,
		})
	}
	return result
}

func parseSymbolKey(key string) (name, signature string) {
	name, sig, found := strings.Cut(key, "|")
	if found {
		return name, sig
	}
	return key, ""
}

// demangle extracts a readable path from an Itanium-style mangled symbol
// (C++ and legacy Rust exports)
func demangle(name string) string {
	if !strings.HasPrefix(name, "_ZN") {
		return name
	}

	// Format: _ZN<len><name><len><name>...E
	s := name[3:]
	var parts []string

	for len(s) > 0 && s[0] != 'E' {
		lenEnd := 0
		for lenEnd < len(s) && s[lenEnd] >= '0' && s[lenEnd] <= '9' {
			lenEnd++
		}
		if lenEnd == 0 {
			break
		}

		length := 0
		for i := 0; i < lenEnd; i++ {
			length = length*10 + int(s[i]-'0')
		}
		s = s[lenEnd:]

		if length > len(s) {
			break
		}

		part := s[:length]
		s = s[length:]

		// Rust hash suffix: 'h' followed by 16 hex digits
		if len(part) == 17 && part[0] == 'h' && isHex(part[1:]) {
			continue
		}
		parts = append(parts, part)
	}

	if len(parts) == 0 {
		return name
	}

	return strings.Join(parts, "::")
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func (e *MissingSymbolsError) Error() string {
	if len(e.Symbols) == 0 {
		return "[symbol] symbol_not_found: no symbols specified"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "missing %d exported symbol(s)", len(e.Symbols))
	if e.Library != "" {
		fmt.Fprintf(&b, " in %s", e.Library)
	}
	b.WriteByte(':')

	for _, sym := range e.Symbols {
		b.WriteString("\n  - ")
		b.WriteString(demangle(sym.Name))
		if sym.Signature != "" {
			b.WriteString(" (")
			b.WriteString(sym.Signature)
			b.WriteByte(')')
		}
	}

	return b.String()
}

// Is reports whether target matches this error type
func (e *MissingSymbolsError) Is(target error) bool {
	_, ok := target.(*MissingSymbolsError)
	return ok
}

// Names returns the unresolved symbol names in declaration order.
func (e *MissingSymbolsError) Names() []string {
	names := make([]string, len(e.Symbols))
	for i, s := range e.Symbols {
		names[i] = s.Name
	}
	return names
}
