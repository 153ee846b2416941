package main

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/ffi-runtime/descriptor"
	"github.com/wippyai/ffi-runtime/marshal"
)

// parseArgs decodes a YAML flow sequence such as `[1, {x: 2}, null]`.
func parseArgs(text string) ([]any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if !strings.HasPrefix(text, "[") {
		text = "[" + text + "]"
	}
	var args []any
	if err := yaml.Unmarshal([]byte(text), &args); err != nil {
		return nil, fmt.Errorf("parse args: %w", err)
	}
	return args, nil
}

// parseArg decodes a single YAML scalar or mapping typed into a prompt.
func parseArg(text string, t descriptor.Type) (any, error) {
	var v any
	if err := yaml.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("parse %q: %w", text, err)
	}
	return hostValue(v, t)
}

// hostArgs shapes decoded values for the parameters of fn.
func hostArgs(fn *descriptor.Function, raw []any) ([]any, error) {
	if len(raw) != fn.NumParams() {
		return nil, fmt.Errorf("%s takes %d argument(s), got %d", fn.Name(), fn.NumParams(), len(raw))
	}
	args := make([]any, len(raw))
	for i, v := range raw {
		hv, err := hostValue(v, fn.Param(i).Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", fn.Name(), fn.Param(i).Name, err)
		}
		args[i] = hv
	}
	return args, nil
}

// hostValue converts a decoded YAML value into the form the marshaller
// expects for t. Scalars pass through and are range-checked by the call.
func hostValue(v any, t descriptor.Type) (any, error) {
	switch typ := t.(type) {
	case descriptor.Scalar:
		if typ.Kind() == descriptor.KindF32 {
			if f, ok := v.(float64); ok {
				return float32(f), nil
			}
		}
		return v, nil
	case *descriptor.StructType:
		return hostRecord(v, typ)
	case *descriptor.PointerType:
		return hostPointer(v, typ)
	case *descriptor.FuncPtrType:
		if v == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("callbacks cannot be given on the command line")
	}
	return v, nil
}

func hostRecord(v any, st *descriptor.StructType) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s wants a mapping, got %T", st.Name(), v)
	}
	rec := make(marshal.Record, len(m))
	for name, fv := range m {
		i := st.FieldIndex(name)
		if i < 0 {
			// The marshaller reports unknown fields.
			rec[name] = fv
			continue
		}
		hv, err := hostValue(fv, st.Field(i).Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", st.Name(), name, err)
		}
		rec[name] = hv
	}
	return rec, nil
}

// hostPointer allocates the pointee of a typed pointer and stores v into
// it. Struct pointees are passed as records and copied by the call.
func hostPointer(v any, pt *descriptor.PointerType) (any, error) {
	if v == nil {
		return nil, nil
	}
	elem := pt.Elem()
	rt := marshal.HostType(elem)
	if rt == nil {
		if st, ok := elem.(*descriptor.StructType); ok {
			return hostRecord(v, st)
		}
		return nil, fmt.Errorf("%s values cannot be given on the command line", pt.Name())
	}
	inner, err := hostValue(v, elem)
	if err != nil {
		return nil, err
	}
	slot := reflect.New(rt)
	if err := marshal.NewPointer(elem, slot.UnsafePointer()).Store(inner); err != nil {
		return nil, err
	}
	return slot.Interface(), nil
}

// formatValue renders a lifted result, following typed pointers.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case marshal.Record:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + formatValue(x[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case fmt.Stringer:
		return x.String()
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return "null"
		}
		return fmt.Sprintf("&%s (%#x)", formatValue(rv.Elem().Interface()), rv.Pointer())
	}
	return fmt.Sprintf("%v", v)
}
