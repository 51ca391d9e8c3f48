package command

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidInput is returned when command input does not match the definition
var ErrInvalidInput = errors.New("invalid command input")

// FilterInput returns the part of input the definition accepts. fields lists
// the relation's fields and is used when the definition does not restrict
// attributes.
func FilterInput(def Definition, fields []string, input map[string]any) (map[string]any, error) {
	allowed := def.Attributes
	if len(allowed) == 0 {
		allowed = fields
	}

	out := make(map[string]any, len(input))
	for _, name := range allowed {
		if v, ok := input[name]; ok {
			out[name] = v
		}
	}

	if def.Type != Delete && len(out) == 0 {
		return nil, fmt.Errorf("%w: no accepted attributes in %v", ErrInvalidInput, keys(input))
	}
	return out, nil
}

// KeyValue extracts the identifying value for update and delete commands
func KeyValue(def Definition, primaryKey string, input map[string]any) (string, any, error) {
	key := def.Key
	if key == "" {
		key = primaryKey
	}
	if key == "" {
		return "", nil, fmt.Errorf("%w: %s command needs a key", ErrInvalidInput, def.Type)
	}
	v, ok := input[key]
	if !ok || v == nil {
		return "", nil, fmt.Errorf("%w: missing key %s", ErrInvalidInput, key)
	}
	return key, v, nil
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
