package descriptor

// Type is a native type. Implementations are Scalar, *OpaqueType,
// *StructType, *EnumType, *FuncPtrType, *PointerType and *RefType.
type Type interface {
	Kind() Kind
	// Name is the C spelling: "uint8_t", "Vec3f32", "int64_t*".
	Name() string
	isType()
}

// Scalar is a bool, fixed-width integer, floating point or void type.
type Scalar struct {
	name string
	kind Kind
}

var (
	Bool = Scalar{kind: KindBool, name: "bool"}
	U8   = Scalar{kind: KindU8, name: "uint8_t"}
	S8   = Scalar{kind: KindS8, name: "int8_t"}
	U16  = Scalar{kind: KindU16, name: "uint16_t"}
	S16  = Scalar{kind: KindS16, name: "int16_t"}
	U32  = Scalar{kind: KindU32, name: "uint32_t"}
	S32  = Scalar{kind: KindS32, name: "int32_t"}
	U64  = Scalar{kind: KindU64, name: "uint64_t"}
	S64  = Scalar{kind: KindS64, name: "int64_t"}
	F32  = Scalar{kind: KindF32, name: "float"}
	F64  = Scalar{kind: KindF64, name: "double"}
	// Void is valid only as a function result or a pointer element.
	Void = Scalar{kind: KindVoid, name: "void"}
)

// Scalars lists every scalar type, void included.
var Scalars = []Scalar{Bool, U8, S8, U16, S16, U32, S32, U64, S64, F32, F64, Void}

// ScalarByName returns the scalar with the given C spelling.
func ScalarByName(name string) (Scalar, bool) {
	for _, s := range Scalars {
		if s.name == name {
			return s, true
		}
	}
	return Scalar{}, false
}

func (s Scalar) Kind() Kind   { return s.kind }
func (s Scalar) Name() string { return s.name }
func (Scalar) isType()        {}

// OpaqueType is a type known only by identity. It may appear only behind a
// pointer.
type OpaqueType struct {
	name string
}

// Opaque creates an opaque type.
func Opaque(name string) *OpaqueType {
	return &OpaqueType{name: name}
}

func (*OpaqueType) Kind() Kind     { return KindOpaque }
func (o *OpaqueType) Name() string { return o.name }
func (*OpaqueType) isType()        {}

// Field is one member of a struct.
type Field struct {
	Type Type
	Name string
}

// StructType is an aggregate with ordered named fields.
type StructType struct {
	name   string
	fields []Field
}

// Struct creates a struct type.
func Struct(name string, fields ...Field) *StructType {
	return &StructType{name: name, fields: append([]Field(nil), fields...)}
}

func (*StructType) Kind() Kind     { return KindStruct }
func (s *StructType) Name() string { return s.name }
func (*StructType) isType()        {}

// Fields returns a copy of the field list.
func (s *StructType) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// NumFields returns the number of fields.
func (s *StructType) NumFields() int { return len(s.fields) }

// Field returns the i'th field.
func (s *StructType) Field(i int) Field { return s.fields[i] }

// FieldIndex returns the index of the named field, or -1.
func (s *StructType) FieldIndex(name string) int {
	for i, f := range s.fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// EnumMember is a named enum value.
type EnumMember struct {
	Name  string
	Value int64
}

// EnumType is a set of named integer values.
type EnumType struct {
	name    string
	members []EnumMember
	repr    Scalar
}

// Enum creates an enum represented as a C int.
func Enum(name string, members ...EnumMember) *EnumType {
	return &EnumType{name: name, members: append([]EnumMember(nil), members...), repr: S32}
}

// WithRepr returns a copy of the enum with another integer representation.
func (e *EnumType) WithRepr(repr Scalar) *EnumType {
	return &EnumType{name: e.name, members: append([]EnumMember(nil), e.members...), repr: repr}
}

func (*EnumType) Kind() Kind     { return KindEnum }
func (e *EnumType) Name() string { return e.name }
func (*EnumType) isType()        {}

// Repr returns the integer representation.
func (e *EnumType) Repr() Scalar { return e.repr }

// Members returns a copy of the member list in declaration order.
func (e *EnumType) Members() []EnumMember {
	return append([]EnumMember(nil), e.members...)
}

// Member looks up a member by name.
func (e *EnumType) Member(name string) (EnumMember, bool) {
	for _, m := range e.members {
		if m.Name == name {
			return m, true
		}
	}
	return EnumMember{}, false
}

// MemberByValue looks up a member by value.
func (e *EnumType) MemberByValue(v int64) (EnumMember, bool) {
	for _, m := range e.members {
		if m.Value == v {
			return m, true
		}
	}
	return EnumMember{}, false
}

// Param is a named function or function pointer parameter.
type Param struct {
	Type Type
	Name string
}

// FuncPtrType is a named callback signature.
type FuncPtrType struct {
	result Type
	name   string
	params []Param
}

// FuncPtr creates a function pointer type. A nil result means void.
func FuncPtr(name string, result Type, params ...Param) *FuncPtrType {
	if result == nil {
		result = Void
	}
	return &FuncPtrType{name: name, result: result, params: append([]Param(nil), params...)}
}

func (*FuncPtrType) Kind() Kind     { return KindFuncPtr }
func (f *FuncPtrType) Name() string { return f.name }
func (*FuncPtrType) isType()        {}

// Params returns a copy of the parameter list.
func (f *FuncPtrType) Params() []Param {
	return append([]Param(nil), f.params...)
}

// Result returns the result type.
func (f *FuncPtrType) Result() Type { return f.result }

// PointerSemantics describes the nullability and indirection of a pointer.
type PointerSemantics uint8

const (
	// Required is a non-null single indirection.
	Required PointerSemantics = iota
	// Optional may be null.
	Optional
	// DoubleIndirection is a pointer to a pointer; the outer pointer is non-null.
	DoubleIndirection
)

func (s PointerSemantics) String() string {
	switch s {
	case Required:
		return "required"
	case Optional:
		return "optional"
	case DoubleIndirection:
		return "double_indirection"
	default:
		return "unknown"
	}
}

// PointerType is an anonymous pointer to Elem.
type PointerType struct {
	elem      Type
	semantics PointerSemantics
}

// PointerTo creates a pointer type.
func PointerTo(elem Type, semantics PointerSemantics) *PointerType {
	return &PointerType{elem: elem, semantics: semantics}
}

func (*PointerType) Kind() Kind     { return KindPointer }
func (p *PointerType) Name() string { return p.elem.Name() + "*" }
func (*PointerType) isType()        {}

// Elem returns the pointee type.
func (p *PointerType) Elem() Type { return p.elem }

// Semantics returns the pointer semantics.
func (p *PointerType) Semantics() PointerSemantics { return p.semantics }

// Nullable reports whether null is an accepted value.
func (p *PointerType) Nullable() bool { return p.semantics == Optional }

// RefType names a type declared elsewhere in the same builder.
type RefType struct {
	name string
}

// Ref refers to a declared type by name.
func Ref(name string) *RefType {
	return &RefType{name: name}
}

func (*RefType) Kind() Kind     { return KindRef }
func (r *RefType) Name() string { return r.name }
func (*RefType) isType()        {}
