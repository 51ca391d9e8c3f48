package sqldb

import (
	"strings"

	"github.com/conduit-lang/relmap/internal/orm/types"
)

// PrimitiveFor maps a column type as reported by the database back to a
// primitive. Unknown types map to types.TypeAny.
func PrimitiveFor(columnType string) types.PrimitiveType {
	t := strings.ToUpper(strings.TrimSpace(columnType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}

	switch {
	case t == "":
		return types.TypeAny

	case strings.HasPrefix(t, "VARCHAR"), strings.HasPrefix(t, "CHARACTER"),
		t == "CHAR", t == "NCHAR", t == "NVARCHAR", t == "CITEXT":
		return types.TypeString

	case t == "TEXT", t == "CLOB":
		return types.TypeText

	case t == "BIGINT", t == "INT8", t == "BIGSERIAL":
		return types.TypeBigInt

	case t == "INTEGER", t == "INT", t == "INT4", t == "SMALLINT", t == "INT2",
		t == "SERIAL", t == "TINYINT", t == "MEDIUMINT":
		return types.TypeInt

	case t == "DOUBLE PRECISION", t == "DOUBLE", t == "REAL", t == "FLOAT",
		t == "FLOAT4", t == "FLOAT8":
		return types.TypeFloat

	case t == "NUMERIC", t == "DECIMAL":
		return types.TypeDecimal

	case t == "BOOLEAN", t == "BOOL":
		return types.TypeBool

	case strings.HasPrefix(t, "TIMESTAMP"), t == "DATETIME":
		return types.TypeTimestamp

	case t == "DATE":
		return types.TypeDate

	case strings.HasPrefix(t, "TIME"):
		return types.TypeTime

	case t == "UUID":
		return types.TypeUUID

	case t == "JSON", t == "JSONB":
		return types.TypeJSON

	default:
		return types.TypeAny
	}
}
