package descriptor

import "github.com/wippyai/ffi-runtime/errors"

// Descriptor is an immutable catalogue of a native library surface.
// It is safe for concurrent use.
type Descriptor struct {
	byName    map[string]Entity
	layouts   map[*StructType]Layout
	entities  []Entity
	constants []*Constant
	types     []Type
	functions []*Function
	guard     *APIGuard
}

// Entities returns every declaration in order.
func (d *Descriptor) Entities() []Entity {
	return append([]Entity(nil), d.entities...)
}

// Constants returns the constants in declaration order.
func (d *Descriptor) Constants() []*Constant {
	return append([]*Constant(nil), d.constants...)
}

// Types returns the named types in declaration order.
func (d *Descriptor) Types() []Type {
	return append([]Type(nil), d.types...)
}

// Functions returns the functions in declaration order.
func (d *Descriptor) Functions() []*Function {
	return append([]*Function(nil), d.functions...)
}

// NumFunctions returns the number of declared functions.
func (d *Descriptor) NumFunctions() int {
	return len(d.functions)
}

// Resolve looks up any declaration by name.
func (d *Descriptor) Resolve(name string) (Entity, error) {
	if e, ok := d.byName[name]; ok {
		return e, nil
	}
	return nil, errors.UnknownSymbol(name)
}

// Constant looks up a constant by name.
func (d *Descriptor) Constant(name string) (*Constant, error) {
	e, err := d.Resolve(name)
	if err != nil {
		return nil, err
	}
	c, ok := e.(*Constant)
	if !ok {
		return nil, wrongCategory(name, e, "constant")
	}
	return c, nil
}

// Type looks up a named type.
func (d *Descriptor) Type(name string) (Type, error) {
	e, err := d.Resolve(name)
	if err != nil {
		return nil, err
	}
	t, ok := e.(Type)
	if !ok {
		return nil, wrongCategory(name, e, "type")
	}
	return t, nil
}

// Function looks up a function by name.
func (d *Descriptor) Function(name string) (*Function, error) {
	e, err := d.Resolve(name)
	if err != nil {
		return nil, err
	}
	f, ok := e.(*Function)
	if !ok {
		return nil, wrongCategory(name, e, "function")
	}
	return f, nil
}

// LayoutOf returns the native layout of t.
func (d *Descriptor) LayoutOf(t Type) (Layout, error) {
	if st, ok := t.(*StructType); ok {
		if l, ok := d.layouts[st]; ok {
			return l, nil
		}
	}
	return computeLayout(t, make(map[*StructType]Layout))
}

func wrongCategory(name string, e Entity, want string) error {
	return errors.New(errors.PhaseDeclaration, errors.KindUnknownSymbol).
		Path(name).
		Detail("%q is a %s, not a %s", name, entityKind(e), want).
		Build()
}
