package schema

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/relmap/internal/orm/types"
)

// ValidationError represents a schema validation error with context
type ValidationError struct {
	Resource string
	Field    string
	Message  string
	Hint     string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	var b strings.Builder

	if e.Resource != "" {
		b.WriteString(e.Resource)
		if e.Field != "" {
			b.WriteString(".")
			b.WriteString(e.Field)
		}
		b.WriteString(": ")
	}

	b.WriteString(e.Message)

	if e.Hint != "" {
		b.WriteString("\n  hint: ")
		b.WriteString(e.Hint)
	}

	return b.String()
}

// ValidationErrors collects every problem found in one schema
type ValidationErrors []*ValidationError

// Error implements the error interface
func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("schema validation failed with %d errors:\n%s", len(errs), strings.Join(msgs, "\n"))
}

// Validate checks a schema on its own. Association targets are resolved
// when the relation is finalized.
func Validate(schema *ResourceSchema) error {
	var errs ValidationErrors

	primaryKeys := 0
	for _, field := range schema.fields {
		if field.Primary {
			primaryKeys++
			if field.Nullable {
				errs = append(errs, &ValidationError{
					Resource: schema.Name,
					Field:    field.Name,
					Message:  "primary key must be non-nullable",
				})
			}
		}
		if field.Type == types.TypeAny && len(field.EnumValues) > 0 {
			errs = append(errs, &ValidationError{
				Resource: schema.Name,
				Field:    field.Name,
				Message:  "enum values require a concrete base type",
				Hint:     "Use a string field for enums",
			})
		}
	}
	if primaryKeys > 1 {
		errs = append(errs, &ValidationError{
			Resource: schema.Name,
			Message:  fmt.Sprintf("resource has %d primary keys, expected at most 1", primaryKeys),
		})
	}

	for _, rel := range schema.relationships {
		if rel.Target == "" {
			errs = append(errs, &ValidationError{
				Resource: schema.Name,
				Field:    rel.Name,
				Message:  "relationship has no target",
			})
			continue
		}
		if rel.Type == RelationshipBelongsTo && rel.ForeignKey != "" && !schema.HasField(rel.ForeignKey) {
			errs = append(errs, &ValidationError{
				Resource: schema.Name,
				Field:    rel.Name,
				Message:  fmt.Sprintf("foreign key %s is not a field", rel.ForeignKey),
				Hint:     fmt.Sprintf("Add a %s field or change the foreign key", rel.ForeignKey),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
