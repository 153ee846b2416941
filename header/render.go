package header

import (
	"strconv"
	"strings"

	"github.com/wippyai/ffi-runtime/descriptor"
)

// DefaultComment is the first line written by Render.
const DefaultComment = "// Automatically generated by ffi-runtime."

const indent = "    "

// RenderOptions configures Render.
type RenderOptions struct {
	// Comment replaces DefaultComment. It is written verbatim.
	Comment string
}

// Render writes a descriptor as C header text: constants, then named types
// in declaration order, then function prototypes.
func Render(d *descriptor.Descriptor, opts RenderOptions) string {
	var b strings.Builder

	comment := opts.Comment
	if comment == "" {
		comment = DefaultComment
	}
	b.WriteString(comment)
	b.WriteString("\n\n\n\n")

	if consts := d.Constants(); len(consts) > 0 {
		for _, c := range consts {
			b.WriteString("#define ")
			b.WriteString(c.Name())
			b.WriteByte(' ')
			b.WriteString(strconv.FormatInt(c.Value(), 10))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	if types := d.Types(); len(types) > 0 {
		for _, t := range types {
			writeType(&b, t)
			b.WriteString("\n\n")
		}
		b.WriteByte('\n')
	}

	for _, fn := range d.Functions() {
		b.WriteString(fn.Signature())
		b.WriteString(";\n")
	}

	return b.String()
}

func writeType(b *strings.Builder, t descriptor.Type) {
	switch typ := t.(type) {
	case *descriptor.EnumType:
		b.WriteString("typedef enum ")
		b.WriteString(typ.Name())
		b.WriteString("\n" + indent + "{\n")
		for _, m := range typ.Members() {
			b.WriteString(indent)
			b.WriteString(m.Name)
			b.WriteString(" = ")
			b.WriteString(strconv.FormatInt(m.Value, 10))
			b.WriteString(",\n")
		}
		b.WriteString(indent + "} ")
		b.WriteString(typ.Name())
		b.WriteByte(';')
	case *descriptor.OpaqueType:
		b.WriteString("typedef struct ")
		b.WriteString(typ.Name())
		b.WriteByte(' ')
		b.WriteString(typ.Name())
		b.WriteByte(';')
	case *descriptor.StructType:
		b.WriteString("typedef struct ")
		b.WriteString(typ.Name())
		b.WriteString("\n" + indent + "{\n")
		for _, f := range typ.Fields() {
			b.WriteString(indent)
			b.WriteString(f.Type.Name())
			b.WriteByte(' ')
			b.WriteString(f.Name)
			b.WriteString(";\n")
		}
		b.WriteString(indent + "} ")
		b.WriteString(typ.Name())
		b.WriteByte(';')
	case *descriptor.FuncPtrType:
		b.WriteString("typedef ")
		b.WriteString(typ.Prototype())
		b.WriteByte(';')
	}
}
