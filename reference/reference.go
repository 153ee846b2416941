package reference

import (
	"sync"

	"github.com/wippyai/ffi-runtime/descriptor"
	"github.com/wippyai/ffi-runtime/header"
)

// Source is the reference surface as header text.
const Source = `// Automatically generated by ffi-runtime.



#define C1 1
#define C2 1
#define C3 -100

typedef enum FFIError
    {
    Ok = 0,
    Fail = 200,
    } FFIError;

typedef struct Opaque Opaque;

typedef struct Empty
    {
    } Empty;

typedef struct SomeForeignType
    {
    uint32_t x;
    } SomeForeignType;

typedef struct Vec3f32
    {
    float x;
    float y;
    float z;
    } Vec3f32;

typedef uint8_t (*fptr_fn_u8_rval_u8)(uint8_t x0);


uint8_t callback(fptr_fn_u8_rval_u8 callback, uint8_t value);
FFIError complex_1(Vec3f32 _a, Empty* _b);
Opaque* complex_2(SomeForeignType _cmplx);
bool primitive_bool(bool x);
int16_t primitive_i16(int16_t x);
int32_t primitive_i32(int32_t x);
int64_t primitive_i64(int64_t x);
int8_t primitive_i8(int8_t x);
uint16_t primitive_u16(uint16_t x);
uint32_t primitive_u32(uint32_t x);
uint64_t primitive_u64(uint64_t x);
uint8_t primitive_u8(uint8_t x);
void primitive_void();
void primitive_void2();
int64_t* ptr(int64_t* x);
int64_t* ptr_mut(int64_t* x);
int64_t* ptr_option(int64_t* x);
int64_t* ptr_option_mut(int64_t* x);
int64_t** ptr_ptr(int64_t** x);
int64_t* ptr_simple(int64_t* x);
int64_t* ptr_simple_mut(int64_t* x);
`

// Semantics lists the non-default pointer semantics of Source. Unlisted
// single pointers are optional and ptr_ptr is a double indirection.
var Semantics = map[string]descriptor.PointerSemantics{
	"complex_1._b":          descriptor.Required,
	"ptr_mut.x":             descriptor.Required,
	"ptr_mut.return":        descriptor.Required,
	"ptr_simple.x":          descriptor.Required,
	"ptr_simple.return":     descriptor.Required,
	"ptr_simple_mut.x":      descriptor.Required,
	"ptr_simple_mut.return": descriptor.Required,
}

var (
	desc     *descriptor.Descriptor
	descOnce sync.Once
)

// Descriptor returns the reference surface. The descriptor is built once
// and shared.
func Descriptor() *descriptor.Descriptor {
	descOnce.Do(func() {
		d, err := build()
		if err != nil {
			panic("reference: " + err.Error())
		}
		desc = d
	})
	return desc
}

// ParseSource parses Source with Semantics applied.
func ParseSource() (*descriptor.Descriptor, error) {
	return header.Parse(Source, header.Options{Semantics: header.SemanticsMap(Semantics)})
}

func param(name string, t descriptor.Type) descriptor.Param {
	return descriptor.Param{Name: name, Type: t}
}

func build() (*descriptor.Descriptor, error) {
	b := descriptor.NewBuilder()

	for _, c := range []struct {
		name  string
		value int64
	}{{"C1", 1}, {"C2", 1}, {"C3", -100}} {
		if _, err := b.DeclareConstant(c.name, c.value); err != nil {
			return nil, err
		}
	}

	ffiError := descriptor.Enum("FFIError",
		descriptor.EnumMember{Name: "Ok", Value: int64(Ok)},
		descriptor.EnumMember{Name: "Fail", Value: int64(Fail)})
	opaque := descriptor.Opaque("Opaque")
	empty := descriptor.Struct("Empty")
	foreign := descriptor.Struct("SomeForeignType", descriptor.Field{Name: "x", Type: descriptor.U32})
	vec := descriptor.Struct("Vec3f32",
		descriptor.Field{Name: "x", Type: descriptor.F32},
		descriptor.Field{Name: "y", Type: descriptor.F32},
		descriptor.Field{Name: "z", Type: descriptor.F32})
	fptr := descriptor.FuncPtr(CallbackType, descriptor.U8, param("x0", descriptor.U8))

	for _, t := range []descriptor.Type{ffiError, opaque, empty, foreign, vec, fptr} {
		if _, err := b.DeclareType(t); err != nil {
			return nil, err
		}
	}

	i64 := func(sem descriptor.PointerSemantics) descriptor.Type {
		return descriptor.PointerTo(descriptor.S64, sem)
	}
	i64i64 := descriptor.PointerTo(i64(descriptor.Optional), descriptor.DoubleIndirection)

	fns := []struct {
		result descriptor.Type
		name   string
		params []descriptor.Param
	}{
		{descriptor.U8, "callback", []descriptor.Param{param("callback", fptr), param("value", descriptor.U8)}},
		{ffiError, "complex_1", []descriptor.Param{param("_a", vec), param("_b", descriptor.PointerTo(empty, descriptor.Required))}},
		{descriptor.PointerTo(opaque, descriptor.Optional), "complex_2", []descriptor.Param{param("_cmplx", foreign)}},
		{descriptor.Bool, "primitive_bool", []descriptor.Param{param("x", descriptor.Bool)}},
		{descriptor.S16, "primitive_i16", []descriptor.Param{param("x", descriptor.S16)}},
		{descriptor.S32, "primitive_i32", []descriptor.Param{param("x", descriptor.S32)}},
		{descriptor.S64, "primitive_i64", []descriptor.Param{param("x", descriptor.S64)}},
		{descriptor.S8, "primitive_i8", []descriptor.Param{param("x", descriptor.S8)}},
		{descriptor.U16, "primitive_u16", []descriptor.Param{param("x", descriptor.U16)}},
		{descriptor.U32, "primitive_u32", []descriptor.Param{param("x", descriptor.U32)}},
		{descriptor.U64, "primitive_u64", []descriptor.Param{param("x", descriptor.U64)}},
		{descriptor.U8, "primitive_u8", []descriptor.Param{param("x", descriptor.U8)}},
		{descriptor.Void, "primitive_void", nil},
		{descriptor.Void, "primitive_void2", nil},
		{i64(descriptor.Optional), "ptr", []descriptor.Param{param("x", i64(descriptor.Optional))}},
		{i64(descriptor.Required), "ptr_mut", []descriptor.Param{param("x", i64(descriptor.Required))}},
		{i64(descriptor.Optional), "ptr_option", []descriptor.Param{param("x", i64(descriptor.Optional))}},
		{i64(descriptor.Optional), "ptr_option_mut", []descriptor.Param{param("x", i64(descriptor.Optional))}},
		{i64i64, "ptr_ptr", []descriptor.Param{param("x", i64i64)}},
		{i64(descriptor.Required), "ptr_simple", []descriptor.Param{param("x", i64(descriptor.Required))}},
		{i64(descriptor.Required), "ptr_simple_mut", []descriptor.Param{param("x", i64(descriptor.Required))}},
	}
	for _, fn := range fns {
		if _, err := b.DeclareFunction(fn.name, fn.result, fn.params...); err != nil {
			return nil, err
		}
	}

	return b.Build()
}
