package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/conduit-lang/relmap/internal/orm/schema"
)

// Dialect hides the differences between the supported SQL databases
type Dialect interface {
	// Name is the repository type the dialect registers under
	Name() string

	// DriverName is the database/sql driver used to open connections
	DriverName() string

	// Placeholder returns the bind parameter for the n-th argument (1-based)
	Placeholder(n int) string

	// Tables lists the user tables of the database
	Tables(ctx context.Context, db *sql.DB) ([]string, error)

	// Columns describes the columns of table in declaration order
	Columns(ctx context.Context, db *sql.DB, table string) ([]*schema.Field, error)
}

// Quote quotes an identifier. Both dialects accept ANSI double quotes.
func Quote(ident string) string {
	return pq.QuoteIdentifier(ident)
}

// Postgres talks to PostgreSQL through pgx
type Postgres struct {
	// Schema is the namespace tables are listed from; empty means "public"
	Schema string
}

func (Postgres) Name() string       { return "postgres" }
func (Postgres) DriverName() string { return "pgx" }

func (Postgres) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (d Postgres) schemaName() string {
	if d.Schema == "" {
		return "public"
	}
	return d.Schema
}

const postgresTables = `SELECT table_name FROM information_schema.tables
WHERE table_schema = $1 AND table_type = 'BASE TABLE'
ORDER BY table_name`

const postgresColumns = `SELECT c.column_name, c.data_type, c.is_nullable = 'YES',
  EXISTS (
    SELECT 1 FROM information_schema.table_constraints tc
    JOIN information_schema.key_column_usage k
      ON k.constraint_name = tc.constraint_name AND k.table_schema = tc.table_schema
    WHERE tc.constraint_type = 'PRIMARY KEY'
      AND tc.table_schema = c.table_schema AND tc.table_name = c.table_name
      AND k.column_name = c.column_name
  )
FROM information_schema.columns c
WHERE c.table_schema = $1 AND c.table_name = $2
ORDER BY c.ordinal_position`

func (d Postgres) Tables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, postgresTables, d.schemaName())
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (d Postgres) Columns(ctx context.Context, db *sql.DB, table string) ([]*schema.Field, error) {
	rows, err := db.QueryContext(ctx, postgresColumns, d.schemaName(), table)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	var fields []*schema.Field
	for rows.Next() {
		var (
			name, dataType    string
			nullable, primary bool
		)
		if err := rows.Scan(&name, &dataType, &nullable, &primary); err != nil {
			return nil, err
		}
		fields = append(fields, &schema.Field{
			Name:     name,
			Type:     PrimitiveFor(dataType),
			Nullable: nullable && !primary,
			Primary:  primary,
		})
	}
	return fields, rows.Err()
}

// SQLite talks to SQLite through mattn/go-sqlite3
type SQLite struct{}

func (SQLite) Name() string       { return "sqlite" }
func (SQLite) DriverName() string { return "sqlite3" }

func (SQLite) Placeholder(int) string { return "?" }

const sqliteTables = `SELECT name FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
ORDER BY name`

func (SQLite) Tables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, sqliteTables)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (SQLite) Columns(ctx context.Context, db *sql.DB, table string) ([]*schema.Field, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+Quote(table)+")")
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()

	var fields []*schema.Field
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, declared   string
			dflt             sql.NullString
		)
		if err := rows.Scan(&cid, &name, &declared, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		fields = append(fields, &schema.Field{
			Name:     name,
			Type:     PrimitiveFor(declared),
			Nullable: notNull == 0 && pk == 0,
			Primary:  pk > 0,
		})
	}
	return fields, rows.Err()
}

// DialectFor returns the dialect registered under name
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql":
		return Postgres{}, nil
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	default:
		return nil, fmt.Errorf("unsupported sql dialect: %s", name)
	}
}
