package structs

import (
	"regexp"

	"github.com/iancoleman/strcase"
	"github.com/jinzhu/inflection"
)

var identifierPattern = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)

// Classify turns a relation name into a struct name: "users" -> "User",
// "task_items" -> "TaskItem".
func Classify(name string) string {
	return strcase.ToCamel(inflection.Singular(name))
}

func validIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}
