package types

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Metadata keys understood by the struct compiler
const (
	MetaAlias           = "alias"
	MetaWrapped         = "wrapped"
	MetaCombineName     = "combine_name"
	MetaCombineType     = "combine_type"
	MetaModel           = "model"
	MetaStructNamespace = "struct_namespace"

	// Set by enum and constrained nodes on the types they produce
	MetaEnumValues  = "enum_values"
	MetaConstraints = "constraints"
)

// CombineMany is the combine_type value that makes an association a collection
const CombineMany = "many"

// Meta is the metadata attached to a single node or type.
// Values are treated as immutable; Merge and Clone always copy.
type Meta map[string]any

// Clone returns a shallow copy of m. A nil Meta clones to nil.
func (m Meta) Clone() Meta {
	if m == nil {
		return nil
	}
	out := make(Meta, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Merge returns a new Meta holding m overlaid with other
func (m Meta) Merge(other Meta) Meta {
	if len(other) == 0 {
		return m.Clone()
	}
	out := make(Meta, len(m)+len(other))
	for k, v := range m {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// GetString returns the value under key if it is a non-empty string
func (m Meta) GetString(key string) (string, bool) {
	s, ok := m[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Flag returns the value under key interpreted as a boolean flag
func (m Meta) Flag(key string) bool {
	b, _ := m[key].(bool)
	return b
}

// Has reports whether key is present
func (m Meta) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// Canonical renders m with sorted keys so that equal metadata always renders
// the same way. Used to fingerprint headers for the struct cache.
func (m Meta) Canonical() string {
	if len(m) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(canonicalValue(m[k]))
	}
	b.WriteByte('}')
	return b.String()
}

func canonicalValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "nil"
	case string:
		return fmt.Sprintf("%q", val)
	case Model:
		if rv := reflect.ValueOf(val); rv.Kind() == reflect.Pointer {
			return fmt.Sprintf("model(%s@%x)", val.ModelName(), rv.Pointer())
		}
		return fmt.Sprintf("model(%s)", val.ModelName())
	case fmt.Stringer:
		// namespaces and reflect.Type identify themselves
		return val.String()
	case []string:
		return fmt.Sprintf("%q", val)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return fmt.Sprintf("%T@%x", v, rv.Pointer())
	}
	return fmt.Sprintf("%T(%v)", v, v)
}
