// Package header reads and writes the C header text form of a descriptor.
//
// Parse accepts the subset of C used to describe a flat native surface:
//
//	#define NAME <integer>
//	typedef enum Name { A = 0, B = 200, } Name;
//	typedef struct Name Name;                      // opaque
//	typedef struct Name { float x; float y; } Name;
//	typedef uint8_t (*cb)(uint8_t x0);
//	FFIError complex_1(Vec3f32 _a, Empty* _b);
//
// Scalars are the fixed-width stdint types plus bool, float, double and void.
// Other preprocessor directives and comments are skipped.
//
// C has no syntax for pointer nullability beyond the clang qualifiers, so a
// single pointer defaults to Optional, _Nonnull makes it Required and a
// pointer to pointer becomes DoubleIndirection. Options.Semantics overrides
// the outermost pointer of any parameter, field or result.
//
// Render writes a descriptor back in the same dialect. For descriptors made
// of the supported subset, Parse(Render(d)) is equal to d.
package header
