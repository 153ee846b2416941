package marshal

import (
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/wippyai/ffi-runtime/descriptor"
	"github.com/wippyai/ffi-runtime/errors"
	"github.com/wippyai/ffi-runtime/internal/abi"
)

type structCodec struct {
	typ      *descriptor.StructType
	rep      reflect.Type
	compiler *Compiler
	fields   []codec
	// slots maps a descriptor field to its field in rep, or -1 for a
	// zero-size field. C gives those no storage, while reflect.StructOf
	// pads a trailing one.
	slots []int
}

func (c *structCodec) Type() descriptor.Type { return c.typ }
func (c *structCodec) Rep() reflect.Type     { return c.rep }

func (c *Compiler) compileStruct(st *descriptor.StructType) (codec, error) {
	l, err := c.layoutOf(st)
	if err != nil {
		return nil, err
	}

	fields := make([]codec, st.NumFields())
	slots := make([]int, st.NumFields())
	repFields := make([]reflect.StructField, 0, st.NumFields())
	for i, f := range st.Fields() {
		fc, err := c.codecFor(f.Type)
		if err != nil {
			return nil, err
		}
		if fc.Rep() == nil {
			return nil, errors.InvalidDeclaration([]string{st.Name(), f.Name}, "void field")
		}
		fields[i] = fc
		if fc.Rep().Size() == 0 {
			slots[i] = -1
			continue
		}
		slots[i] = len(repFields)
		repFields = append(repFields, reflect.StructField{Name: "F" + strconv.Itoa(i), Type: fc.Rep()})
	}
	rep := reflect.StructOf(repFields)

	if err := checkLayout(st, rep, l, slots); err != nil {
		return nil, err
	}
	return &structCodec{typ: st, rep: rep, compiler: c, fields: fields, slots: slots}, nil
}

// checkLayout verifies that the Go representation occupies memory exactly
// as the C layout computed for the descriptor.
func checkLayout(st *descriptor.StructType, rep reflect.Type, l descriptor.Layout, slots []int) error {
	if rep.Size() != l.Size {
		return errors.LayoutMismatch([]string{st.Name()}, st.Name(),
			"size "+strconv.FormatUint(uint64(rep.Size()), 10)+" != "+strconv.FormatUint(uint64(l.Size), 10))
	}
	if uintptr(rep.Align()) != l.Align {
		return errors.LayoutMismatch([]string{st.Name()}, st.Name(),
			"alignment "+strconv.Itoa(rep.Align())+" != "+strconv.FormatUint(uint64(l.Align), 10))
	}
	for i, slot := range slots {
		if slot < 0 {
			continue
		}
		if off := rep.Field(slot).Offset; off != l.Offsets[i] {
			return errors.LayoutMismatch([]string{st.Name(), st.Field(i).Name}, st.Name(),
				"offset "+strconv.FormatUint(uint64(off), 10)+" != "+strconv.FormatUint(uint64(l.Offsets[i]), 10))
		}
	}
	return nil
}

func (c *structCodec) lower(path []string, v any, f *Frame) (reflect.Value, error) {
	out := reflect.New(c.rep).Elem()

	switch x := v.(type) {
	case Record:
		return out, c.lowerMap(path, x, f, out)
	case map[string]any:
		return out, c.lowerMap(path, x, f, out)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, errors.TypeMismatch(errors.PhaseMarshal, path, abi.TypeName(v), c.typ.Name())
	}

	index, err := c.compiler.goFields(rv.Type(), c.typ, path)
	if err != nil {
		return reflect.Value{}, err
	}
	for i, fc := range c.fields {
		val, err := fc.lower(appendPath(path, c.typ.Field(i).Name), rv.Field(index[i]).Interface(), f)
		if err != nil {
			return reflect.Value{}, err
		}
		c.set(out, i, val)
	}
	return out, nil
}

func (c *structCodec) set(out reflect.Value, i int, val reflect.Value) {
	if slot := c.slots[i]; slot >= 0 {
		out.Field(slot).Set(val)
	}
}

func (c *structCodec) lowerMap(path []string, m map[string]any, f *Frame, out reflect.Value) error {
	for i, fc := range c.fields {
		name := c.typ.Field(i).Name
		fv, ok := m[name]
		if !ok {
			return errors.FieldMissing(errors.PhaseMarshal, path, name)
		}
		val, err := fc.lower(appendPath(path, name), fv, f)
		if err != nil {
			return err
		}
		c.set(out, i, val)
	}
	if len(m) > len(c.fields) {
		keys := make([]string, 0, len(m))
		for k := range m {
			if c.typ.FieldIndex(k) < 0 {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		return errors.FieldUnknown(errors.PhaseMarshal, path, keys[0])
	}
	return nil
}

func (c *structCodec) lift(path []string, v reflect.Value) (any, error) {
	rec := make(Record, len(c.fields))
	for i, fc := range c.fields {
		name := c.typ.Field(i).Name
		fv := reflect.Zero(fc.Rep())
		if slot := c.slots[i]; slot >= 0 {
			fv = v.Field(slot)
		}
		val, err := fc.lift(appendPath(path, name), fv)
		if err != nil {
			return nil, err
		}
		rec[name] = val
	}
	return rec, nil
}

type fieldKey struct {
	goType reflect.Type
	st     *descriptor.StructType
}

// goFields maps each descriptor field to a Go struct field index. Every
// descriptor field must be matched and every exported Go field must match.
func (c *Compiler) goFields(goType reflect.Type, st *descriptor.StructType, path []string) ([]int, error) {
	key := fieldKey{goType, st}
	if cached, ok := c.fields.Load(key); ok {
		return cached.([]int), nil
	}

	index := make([]int, st.NumFields())
	used := make(map[int]bool, st.NumFields())
	for i, f := range st.Fields() {
		gi, found := findGoField(goType, f.Name)
		if !found {
			return nil, errors.FieldMissing(errors.PhaseMarshal, path, f.Name)
		}
		index[i] = gi
		used[gi] = true
	}
	for i := 0; i < goType.NumField(); i++ {
		gf := goType.Field(i)
		if !gf.IsExported() || used[i] || gf.Tag.Get("ffi") == "-" {
			continue
		}
		return nil, errors.FieldUnknown(errors.PhaseMarshal, path, gf.Name)
	}

	c.fields.Store(key, index)
	return index, nil
}

// findGoField matches by: 1) ffi:"name" tag, 2) case-insensitive name.
func findGoField(goType reflect.Type, name string) (int, bool) {
	for i := 0; i < goType.NumField(); i++ {
		field := goType.Field(i)
		if !field.IsExported() {
			continue
		}
		if tag := field.Tag.Get("ffi"); tag != "" {
			if tag == name {
				return i, true
			}
			continue
		}
		if strings.EqualFold(field.Name, name) {
			return i, true
		}
	}
	return -1, false
}
