package structs

import (
	"fmt"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
)

// PlainModel builds instances of an ordinary Go struct type from raw
// attributes. Fields are matched by their `mapstructure` tag, falling back to
// a case-insensitive field name match.
type PlainModel struct {
	typ reflect.Type
}

// ModelOf returns a model for the struct type of prototype. prototype may be a
// struct value, a pointer to one, or a reflect.Type of either.
func ModelOf(prototype any) (*PlainModel, error) {
	var t reflect.Type
	switch p := prototype.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil prototype", ErrMalformedModel)
	case reflect.Type:
		t = p
	default:
		t = reflect.TypeOf(p)
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct type", ErrMalformedModel, t)
	}
	return &PlainModel{typ: t}, nil
}

// ModelName implements types.Model
func (m *PlainModel) ModelName() string { return m.typ.String() }

// Type returns the Go type instances are built from
func (m *PlainModel) Type() reflect.Type { return m.typ }

// New decodes raw into a new *T
func (m *PlainModel) New(raw map[string]any) (any, error) {
	out := reflect.New(m.typ)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out.Interface(),
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return out.Interface(), nil
}
