package descriptor

import (
	"hash"
	"hash/fnv"
	"strconv"

	"github.com/wippyai/ffi-runtime/errors"
)

// APIGuard names an exported uint64_t fn(void) that reports which surface
// the library was built from, and the value a binding expects it to return.
type APIGuard struct {
	Func string
	Hash uint64
}

// SetAPIGuard marks the declared function name as the API guard. Build
// fails unless name is declared as uint64_t name(void).
func (b *Builder) SetAPIGuard(name string, hash uint64) {
	b.guard = &APIGuard{Func: name, Hash: hash}
}

func (b *Builder) checkGuard() error {
	if b.guard == nil {
		return nil
	}
	e, ok := b.names[b.guard.Func]
	if !ok {
		return errors.InvalidDeclaration([]string{b.guard.Func}, "API guard function is not declared")
	}
	fn, ok := e.(*Function)
	if !ok {
		return errors.InvalidDeclaration([]string{b.guard.Func}, "API guard is a "+entityKind(e)+", not a function")
	}
	if r, ok := fn.result.(Scalar); !ok || r.kind != KindU64 || len(fn.params) != 0 {
		return errors.InvalidDeclaration([]string{b.guard.Func}, "API guard must be uint64_t "+fn.name+"(void), got "+fn.Signature())
	}
	return nil
}

// APIGuard returns the guard set on the builder, if any.
func (d *Descriptor) APIGuard() (APIGuard, bool) {
	if d.guard == nil {
		return APIGuard{}, false
	}
	return *d.guard, true
}

// Hash digests every declaration except the API guard function with
// FNV-1a. Equal descriptors hash the same, so a library can export the
// hash of the surface it implements.
func (d *Descriptor) Hash() uint64 {
	h := fnv.New64a()
	for _, e := range d.entities {
		if d.guard != nil && e.Name() == d.guard.Func {
			continue
		}
		hashEntity(h, e)
	}
	return h.Sum64()
}

func hashEntity(h hash.Hash64, e Entity) {
	switch x := e.(type) {
	case *Constant:
		write(h, "const", x.name, strconv.FormatInt(x.value, 10))
	case *Function:
		write(h, "func", x.name)
		hashType(h, x.result)
		hashParams(h, x.params)
	case *OpaqueType:
		write(h, "opaque", x.name)
	case *StructType:
		write(h, "struct", x.name)
		for _, f := range x.fields {
			write(h, f.Name)
			hashType(h, f.Type)
		}
	case *EnumType:
		write(h, "enum", x.name, x.repr.name)
		for _, m := range x.members {
			write(h, m.Name, strconv.FormatInt(m.Value, 10))
		}
	case *FuncPtrType:
		write(h, "funcptr", x.name)
		hashType(h, x.result)
		hashParams(h, x.params)
	}
	write(h, ";")
}

func hashParams(h hash.Hash64, params []Param) {
	for _, p := range params {
		write(h, p.Name)
		hashType(h, p.Type)
	}
}

// hashType writes a type reference. Named types contribute their name only.
func hashType(h hash.Hash64, t Type) {
	if p, ok := t.(*PointerType); ok {
		write(h, "*", p.semantics.String())
		hashType(h, p.elem)
		return
	}
	write(h, t.Name())
}

func write(h hash.Hash64, parts ...string) {
	for _, s := range parts {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
}
