package descriptor

// Equal reports whether two descriptors declare the same entities in the
// same order with the same definitions. Named types are compared by
// definition where declared and by name where referenced.
func (d *Descriptor) Equal(o *Descriptor) bool {
	if d == nil || o == nil {
		return d == o
	}
	if len(d.entities) != len(o.entities) {
		return false
	}
	for i := range d.entities {
		if !entityEqual(d.entities[i], o.entities[i]) {
			return false
		}
	}
	return true
}

func entityEqual(a, b Entity) bool {
	if a.Name() != b.Name() {
		return false
	}
	switch x := a.(type) {
	case *Constant:
		y, ok := b.(*Constant)
		return ok && x.value == y.value
	case *Function:
		y, ok := b.(*Function)
		return ok && typeEqual(x.result, y.result) && paramsEqual(x.params, y.params)
	case Type:
		y, ok := b.(Type)
		return ok && definitionEqual(x, y)
	}
	return false
}

func definitionEqual(a, b Type) bool {
	if a.Kind() != b.Kind() || a.Name() != b.Name() {
		return false
	}
	switch x := a.(type) {
	case *OpaqueType:
		return true
	case *StructType:
		y := b.(*StructType)
		if len(x.fields) != len(y.fields) {
			return false
		}
		for i := range x.fields {
			if x.fields[i].Name != y.fields[i].Name || !typeEqual(x.fields[i].Type, y.fields[i].Type) {
				return false
			}
		}
		return true
	case *EnumType:
		y := b.(*EnumType)
		if x.repr != y.repr || len(x.members) != len(y.members) {
			return false
		}
		for i := range x.members {
			if x.members[i] != y.members[i] {
				return false
			}
		}
		return true
	case *FuncPtrType:
		y := b.(*FuncPtrType)
		return typeEqual(x.result, y.result) && paramsEqual(x.params, y.params)
	}
	return typeEqual(a, b)
}

func paramsEqual(a, b []Param) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || !typeEqual(a[i].Type, b[i].Type) {
			return false
		}
	}
	return true
}

// typeEqual compares type uses: scalars by value, pointers structurally,
// named types by kind and name.
func typeEqual(a, b Type) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Scalar:
		return x == b.(Scalar)
	case *PointerType:
		y := b.(*PointerType)
		return x.semantics == y.semantics && typeEqual(x.elem, y.elem)
	}
	return a.Name() == b.Name()
}
