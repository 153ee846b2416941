package descriptor

import "strings"

// Entity is anything declared by name: a *Constant, a named Type or a
// *Function.
type Entity interface {
	Name() string
}

// Constant is a named integer literal.
type Constant struct {
	name  string
	value int64
}

func (c *Constant) Name() string { return c.name }

// Value returns the literal value.
func (c *Constant) Value() int64 { return c.value }

// Function is an exported function signature with resolved types.
type Function struct {
	result Type
	name   string
	params []Param
	index  int
}

func (f *Function) Name() string { return f.name }

// Params returns a copy of the parameter list.
func (f *Function) Params() []Param {
	return append([]Param(nil), f.params...)
}

// NumParams returns the parameter count.
func (f *Function) NumParams() int { return len(f.params) }

// Param returns the i'th parameter.
func (f *Function) Param(i int) Param { return f.params[i] }

// Result returns the result type, Void for none.
func (f *Function) Result() Type { return f.result }

// Index returns the declaration position among functions.
func (f *Function) Index() int { return f.index }

// Signature returns the C prototype without the trailing semicolon.
func (f *Function) Signature() string {
	return prototype(f.result, f.name, f.params)
}

// Prototype returns the C typedef body for a function pointer.
func (f *FuncPtrType) Prototype() string {
	var b strings.Builder
	b.WriteString(f.result.Name())
	b.WriteString(" (*")
	b.WriteString(f.name)
	b.WriteString(")(")
	writeParams(&b, f.params)
	b.WriteByte(')')
	return b.String()
}

func prototype(result Type, name string, params []Param) string {
	var b strings.Builder
	b.WriteString(result.Name())
	b.WriteByte(' ')
	b.WriteString(name)
	b.WriteByte('(')
	writeParams(&b, params)
	b.WriteByte(')')
	return b.String()
}

func writeParams(b *strings.Builder, params []Param) {
	for i, p := range params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Type.Name())
		b.WriteByte(' ')
		b.WriteString(p.Name)
	}
}

func entityKind(e Entity) string {
	switch e.(type) {
	case *Constant:
		return "constant"
	case *Function:
		return "function"
	case Type:
		return "type"
	}
	return "entity"
}
