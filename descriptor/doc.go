// Package descriptor declares the native surface of a shared library.
//
// A Descriptor is an immutable catalogue of constants, named types (opaque
// handles, structs, enums, function pointer signatures) and exported
// functions. It is pure data: building one never touches a library.
//
//	b := descriptor.NewBuilder()
//	b.DeclareConstant("C3", -100)
//	b.DeclareType(descriptor.Struct("Vec3f32",
//		descriptor.Field{Name: "x", Type: descriptor.F32},
//		descriptor.Field{Name: "y", Type: descriptor.F32},
//		descriptor.Field{Name: "z", Type: descriptor.F32},
//	))
//	b.DeclareFunction("complex_1", descriptor.Ref("FFIError"),
//		descriptor.Param{Name: "_a", Type: descriptor.Ref("Vec3f32")},
//		descriptor.Param{Name: "_b", Type: descriptor.PointerTo(descriptor.Ref("Empty"), descriptor.Required)},
//	)
//	d, err := b.Build()
//
// Constants, types and functions share one namespace. Type references are
// resolved at declaration time, either through Ref(name) or by passing the
// very type object that was declared. A struct may refer to itself behind a
// pointer.
//
// # Layout Rules
//
// Struct layout follows the platform C ABI:
//   - Scalars: natural size and alignment of the matching Go type
//   - Pointers and function pointers: pointer size
//   - Enums: size and alignment of their integer representation
//   - Structs: fields in order, each aligned; size rounded up to the
//     largest field alignment; a struct without fields has size 0 and
//     alignment 1
package descriptor
