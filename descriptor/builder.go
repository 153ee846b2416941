package descriptor

import (
	"fmt"

	"github.com/wippyai/ffi-runtime/errors"
)

type useSite uint8

const (
	useField useSite = iota
	useParam
	useResult
	usePointee
)

// Builder accumulates declarations. It is not safe for concurrent use.
type Builder struct {
	names     map[string]Entity
	origins   map[string]Type
	pending   map[string]bool
	entities  []Entity
	constants []*Constant
	types     []Type
	functions []*Function
	guard     *APIGuard
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		names:   make(map[string]Entity),
		origins: make(map[string]Type),
		pending: make(map[string]bool),
	}
}

// DeclareConstant declares a named integer literal.
func (b *Builder) DeclareConstant(name string, value int64) (*Constant, error) {
	if err := b.claim(name); err != nil {
		return nil, err
	}
	c := &Constant{name: name, value: value}
	b.names[name] = c
	b.entities = append(b.entities, c)
	b.constants = append(b.constants, c)
	return c, nil
}

// DeclareType declares an opaque, struct, enum or function pointer type and
// returns its resolved form.
func (b *Builder) DeclareType(t Type) (Type, error) {
	var (
		resolved Type
		err      error
	)

	switch typ := t.(type) {
	case *OpaqueType:
		if err = b.claim(typ.name); err != nil {
			return nil, err
		}
		resolved = typ
		b.register(typ.name, typ, typ)
	case *StructType:
		resolved, err = b.declareStruct(typ)
	case *EnumType:
		resolved, err = b.declareEnum(typ)
	case *FuncPtrType:
		resolved, err = b.declareFuncPtr(typ)
	case nil:
		return nil, errors.InvalidDeclaration(nil, "nil type")
	default:
		return nil, errors.InvalidDeclaration([]string{t.Name()},
			fmt.Sprintf("%s types cannot be declared by name", t.Kind()))
	}
	if err != nil {
		return nil, err
	}

	b.entities = append(b.entities, resolved)
	b.types = append(b.types, resolved)
	return resolved, nil
}

// DeclareFunction declares an exported function. A nil result means void.
func (b *Builder) DeclareFunction(name string, result Type, params ...Param) (*Function, error) {
	if err := b.claim(name); err != nil {
		return nil, err
	}
	if result == nil {
		result = Void
	}

	res, err := b.resolve(result, []string{name, "return"}, useResult)
	if err != nil {
		return nil, err
	}
	ps, err := b.resolveParams(name, params)
	if err != nil {
		return nil, err
	}

	fn := &Function{
		name:   name,
		result: res,
		params: ps,
		index:  len(b.functions),
	}
	b.names[name] = fn
	b.entities = append(b.entities, fn)
	b.functions = append(b.functions, fn)
	return fn, nil
}

// Build returns an immutable descriptor of everything declared so far and
// computes the layout of every struct.
func (b *Builder) Build() (*Descriptor, error) {
	if err := b.checkGuard(); err != nil {
		return nil, err
	}
	d := &Descriptor{
		entities:  append([]Entity(nil), b.entities...),
		constants: append([]*Constant(nil), b.constants...),
		types:     append([]Type(nil), b.types...),
		functions: append([]*Function(nil), b.functions...),
		byName:    make(map[string]Entity, len(b.names)),
		layouts:   make(map[*StructType]Layout),
	}
	if b.guard != nil {
		g := *b.guard
		d.guard = &g
	}
	for _, e := range d.entities {
		d.byName[e.Name()] = e
	}
	for _, t := range d.types {
		st, ok := t.(*StructType)
		if !ok {
			continue
		}
		if _, err := computeLayout(st, d.layouts); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (b *Builder) claim(name string) error {
	if !isIdent(name) {
		return errors.InvalidDeclaration([]string{name}, fmt.Sprintf("invalid identifier %q", name))
	}
	if e, ok := b.names[name]; ok {
		return errors.DuplicateDeclaration(name, entityKind(e))
	}
	return nil
}

func (b *Builder) register(name string, origin, resolved Type) {
	b.names[name] = resolved
	b.origins[name] = origin
}

func (b *Builder) unregister(name string) {
	delete(b.names, name)
	delete(b.origins, name)
	delete(b.pending, name)
}

func (b *Builder) declareStruct(s *StructType) (Type, error) {
	if err := b.claim(s.name); err != nil {
		return nil, err
	}

	resolved := &StructType{name: s.name}
	b.register(s.name, s, resolved)
	b.pending[s.name] = true

	fields := make([]Field, 0, len(s.fields))
	seen := make(map[string]bool, len(s.fields))
	for _, f := range s.fields {
		path := []string{s.name, f.Name}
		if !isIdent(f.Name) {
			b.unregister(s.name)
			return nil, errors.InvalidDeclaration(path, fmt.Sprintf("invalid field name %q", f.Name))
		}
		if seen[f.Name] {
			b.unregister(s.name)
			return nil, errors.InvalidDeclaration(path, fmt.Sprintf("duplicate field %q", f.Name))
		}
		seen[f.Name] = true

		ft, err := b.resolve(f.Type, path, useField)
		if err != nil {
			b.unregister(s.name)
			return nil, err
		}
		fields = append(fields, Field{Name: f.Name, Type: ft})
	}

	resolved.fields = fields
	delete(b.pending, s.name)
	return resolved, nil
}

func (b *Builder) declareEnum(e *EnumType) (Type, error) {
	if err := b.claim(e.name); err != nil {
		return nil, err
	}
	if !e.repr.kind.IsInteger() {
		return nil, errors.InvalidDeclaration([]string{e.name},
			fmt.Sprintf("enum representation %s is not an integer type", e.repr.name))
	}
	if len(e.members) == 0 {
		return nil, errors.InvalidDeclaration([]string{e.name}, "enum has no members")
	}

	names := make(map[string]bool, len(e.members))
	values := make(map[int64]string, len(e.members))
	for _, m := range e.members {
		path := []string{e.name, m.Name}
		if !isIdent(m.Name) {
			return nil, errors.InvalidDeclaration(path, fmt.Sprintf("invalid member name %q", m.Name))
		}
		if names[m.Name] {
			return nil, errors.InvalidDeclaration(path, fmt.Sprintf("duplicate member %q", m.Name))
		}
		if other, ok := values[m.Value]; ok {
			return nil, errors.InvalidDeclaration(path,
				fmt.Sprintf("value %d already used by member %q", m.Value, other))
		}
		if !reprFits(e.repr, m.Value) {
			return nil, errors.InvalidDeclaration(path,
				fmt.Sprintf("value %d does not fit %s", m.Value, e.repr.name))
		}
		names[m.Name] = true
		values[m.Value] = m.Name
	}

	resolved := &EnumType{name: e.name, members: append([]EnumMember(nil), e.members...), repr: e.repr}
	b.register(e.name, e, resolved)
	return resolved, nil
}

func (b *Builder) declareFuncPtr(f *FuncPtrType) (Type, error) {
	if err := b.claim(f.name); err != nil {
		return nil, err
	}

	resolved := &FuncPtrType{name: f.name}
	b.register(f.name, f, resolved)

	res, err := b.resolve(f.result, []string{f.name, "return"}, useResult)
	if err != nil {
		b.unregister(f.name)
		return nil, err
	}
	ps, err := b.resolveParams(f.name, f.params)
	if err != nil {
		b.unregister(f.name)
		return nil, err
	}

	resolved.result = res
	resolved.params = ps
	return resolved, nil
}

func (b *Builder) resolveParams(owner string, params []Param) ([]Param, error) {
	out := make([]Param, 0, len(params))
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		path := []string{owner, p.Name}
		if !isIdent(p.Name) {
			return nil, errors.InvalidDeclaration(path, fmt.Sprintf("invalid parameter name %q", p.Name))
		}
		if seen[p.Name] {
			return nil, errors.InvalidDeclaration(path, fmt.Sprintf("duplicate parameter %q", p.Name))
		}
		seen[p.Name] = true

		pt, err := b.resolve(p.Type, path, useParam)
		if err != nil {
			return nil, err
		}
		out = append(out, Param{Name: p.Name, Type: pt})
	}
	return out, nil
}

// resolve maps t onto the declared type graph.
func (b *Builder) resolve(t Type, path []string, use useSite) (Type, error) {
	switch typ := t.(type) {
	case nil:
		return nil, errors.InvalidDeclaration(path, "missing type")
	case Scalar:
		if typ.kind == KindVoid && use != useResult && use != usePointee {
			return nil, errors.InvalidDeclaration(path, "void used by value")
		}
		if _, ok := ScalarByName(typ.name); !ok {
			return nil, errors.InvalidDeclaration(path, "unknown scalar")
		}
		return typ, nil
	case *PointerType:
		elem, err := b.resolve(typ.elem, path, usePointee)
		if err != nil {
			return nil, err
		}
		if typ.semantics == DoubleIndirection && elem.Kind() != KindPointer {
			return nil, errors.InvalidDeclaration(path,
				fmt.Sprintf("double indirection requires a pointer element, got %s", elem.Name()))
		}
		if typ.semantics > DoubleIndirection {
			return nil, errors.InvalidDeclaration(path, "unknown pointer semantics")
		}
		return &PointerType{elem: elem, semantics: typ.semantics}, nil
	case *RefType:
		e, ok := b.names[typ.name]
		if !ok {
			return nil, errors.InvalidDeclaration(path, fmt.Sprintf("unresolved type %q", typ.name))
		}
		named, ok := e.(Type)
		if !ok {
			return nil, errors.InvalidDeclaration(path,
				fmt.Sprintf("%q is a %s, not a type", typ.name, entityKind(e)))
		}
		return b.checkUse(named, path, use)
	default:
		name := t.Name()
		e, ok := b.names[name]
		if !ok || (b.origins[name] != t && e != Entity(t)) {
			return nil, errors.InvalidDeclaration(path, fmt.Sprintf("type %q is not declared in this builder", name))
		}
		return b.checkUse(e.(Type), path, use)
	}
}

func (b *Builder) checkUse(t Type, path []string, use useSite) (Type, error) {
	if use == usePointee {
		return t, nil
	}
	switch t.Kind() {
	case KindOpaque:
		return nil, errors.InvalidDeclaration(path, fmt.Sprintf("opaque type %q used by value", t.Name()))
	case KindStruct:
		if b.pending[t.Name()] {
			return nil, errors.InvalidDeclaration(path, fmt.Sprintf("struct %q contains itself by value", t.Name()))
		}
	}
	return t, nil
}

func reprFits(repr Scalar, v int64) bool {
	bits := repr.kind.Bits()
	if repr.kind.IsSigned() {
		if bits == 64 {
			return true
		}
		return v >= -1<<(bits-1) && v <= 1<<(bits-1)-1
	}
	if v < 0 {
		return false
	}
	if bits == 64 {
		return true
	}
	return uint64(v) <= uint64(1)<<bits-1
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
