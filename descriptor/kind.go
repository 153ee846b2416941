package descriptor

// Kind classifies a Type.
type Kind uint8

const (
	KindBool Kind = iota
	KindU8
	KindS8
	KindU16
	KindS16
	KindU32
	KindS32
	KindU64
	KindS64
	KindF32
	KindF64
	KindVoid
	KindOpaque
	KindStruct
	KindEnum
	KindFuncPtr
	KindPointer
	KindRef
)

var kindNames = [...]string{
	KindBool:    "bool",
	KindU8:      "u8",
	KindS8:      "s8",
	KindU16:     "u16",
	KindS16:     "s16",
	KindU32:     "u32",
	KindS32:     "s32",
	KindU64:     "u64",
	KindS64:     "s64",
	KindF32:     "f32",
	KindF64:     "f64",
	KindVoid:    "void",
	KindOpaque:  "opaque",
	KindStruct:  "struct",
	KindEnum:    "enum",
	KindFuncPtr: "funcptr",
	KindPointer: "pointer",
	KindRef:     "ref",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsScalar reports bool, integer and floating point kinds.
func (k Kind) IsScalar() bool {
	return k <= KindF64
}

// IsInteger reports the fixed-width integer kinds.
func (k Kind) IsInteger() bool {
	return k >= KindU8 && k <= KindS64
}

// IsSigned reports the signed integer kinds.
func (k Kind) IsSigned() bool {
	switch k {
	case KindS8, KindS16, KindS32, KindS64:
		return true
	}
	return false
}

// IsFloat reports f32 and f64.
func (k Kind) IsFloat() bool {
	return k == KindF32 || k == KindF64
}

// IsNamed reports kinds that are declared by name in a descriptor.
func (k Kind) IsNamed() bool {
	switch k {
	case KindOpaque, KindStruct, KindEnum, KindFuncPtr:
		return true
	}
	return false
}

// Bits returns the width of a scalar kind, or 0.
func (k Kind) Bits() int {
	switch k {
	case KindBool, KindU8, KindS8:
		return 8
	case KindU16, KindS16:
		return 16
	case KindU32, KindS32, KindF32:
		return 32
	case KindU64, KindS64, KindF64:
		return 64
	}
	return 0
}
