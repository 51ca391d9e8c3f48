// Package types is the type algebra relation headers are written in.
// It defines the tagged TypeNode tree a header is made of, the metadata
// attached to those nodes, and the Type values the struct compiler emits.
package types

import (
	"fmt"
	"strings"
)

// PrimitiveType represents the leaf types a header attribute can carry
type PrimitiveType int

const (
	// Text types
	TypeString PrimitiveType = iota
	TypeText

	// Numeric types
	TypeInt
	TypeBigInt
	TypeFloat
	TypeDecimal

	// Boolean
	TypeBool

	// Time types
	TypeTimestamp
	TypeDate
	TypeTime

	// Identifiers
	TypeUUID

	// Structured payloads
	TypeJSON

	// TypeAny accepts any value; used when a datastore cannot tell us more
	TypeAny
)

var primitiveNames = map[PrimitiveType]string{
	TypeString:    "string",
	TypeText:      "text",
	TypeInt:       "int",
	TypeBigInt:    "bigint",
	TypeFloat:     "float",
	TypeDecimal:   "decimal",
	TypeBool:      "bool",
	TypeTimestamp: "timestamp",
	TypeDate:      "date",
	TypeTime:      "time",
	TypeUUID:      "uuid",
	TypeJSON:      "json",
	TypeAny:       "any",
}

// String returns the string representation of the primitive type
func (p PrimitiveType) String() string {
	if name, ok := primitiveNames[p]; ok {
		return name
	}
	return "unknown"
}

// ParsePrimitiveType converts a string to a PrimitiveType
func ParsePrimitiveType(s string) (PrimitiveType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range primitiveNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown primitive type: %s", s)
}

// IsNumeric returns true if the type is a numeric type
func (p PrimitiveType) IsNumeric() bool {
	return p == TypeInt || p == TypeBigInt || p == TypeFloat || p == TypeDecimal
}

// IsText returns true if the type is a text type
func (p PrimitiveType) IsText() bool {
	return p == TypeString || p == TypeText
}

// IsTemporal returns true for timestamp, date and time
func (p PrimitiveType) IsTemporal() bool {
	return p == TypeTimestamp || p == TypeDate || p == TypeTime
}
