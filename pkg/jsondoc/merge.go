package jsondoc

// Merge combines documents left to right and returns a new value; the inputs
// are not modified.
//
// Objects merge key by key. Arrays whose elements are all objects carrying a
// string "name" merge element by element on that name, so a later fragment
// can extend a memory block or group declared by an earlier one. Any other
// value is replaced by the later document.
func Merge(docs ...any) any {
	var out any
	for i, d := range docs {
		if i == 0 {
			out = Clone(d)
			continue
		}
		out = merge(out, d)
	}
	return out
}

func merge(dst, src any) any {
	switch s := src.(type) {
	case *Object:
		d, ok := dst.(*Object)
		if !ok || d == nil {
			return Clone(s)
		}
		for _, f := range s.Fields() {
			if existing, ok := d.Get(f.Key); ok {
				d.Set(f.Key, merge(existing, f.Value))
			} else {
				d.Set(f.Key, Clone(f.Value))
			}
		}
		return d
	case []any:
		d, ok := dst.([]any)
		if !ok || !namedList(d) || !namedList(s) {
			return Clone(s)
		}
		for _, e := range s {
			obj := e.(*Object)
			name, _ := obj.GetString("name")
			if i := indexByName(d, name); i >= 0 {
				d[i] = merge(d[i], obj)
			} else {
				d = append(d, Clone(obj))
			}
		}
		return d
	default:
		return src
	}
}

// namedList reports whether every element is an object with a string name.
// An empty list qualifies.
func namedList(arr []any) bool {
	for _, e := range arr {
		obj, ok := e.(*Object)
		if !ok {
			return false
		}
		if _, ok := obj.GetString("name"); !ok {
			return false
		}
	}
	return true
}

func indexByName(arr []any, name string) int {
	for i, e := range arr {
		if n, _ := e.(*Object).GetString("name"); n == name {
			return i
		}
	}
	return -1
}
