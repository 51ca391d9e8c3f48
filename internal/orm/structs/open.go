package structs

import (
	"github.com/zclconf/go-cty/cty"
)

// Open is the fallback model for headers without attributes. It keeps every
// key it is given.
type Open struct{}

// OpenStruct is the shared fallback model returned for empty headers
var OpenStruct = &Open{}

// ModelName implements types.Model
func (*Open) ModelName() string { return "OpenStruct" }

// New copies raw into a fresh map
func (*Open) New(raw map[string]any) (any, error) {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	return out, nil
}

// ImpliedType is dynamic; an open struct has no fixed shape
func (*Open) ImpliedType() cty.Type { return cty.DynamicPseudoType }
