// Package sqldb implements the SQL datastore adapter for PostgreSQL (via pgx)
// and SQLite (via go-sqlite3). Tables are datasets; their columns are
// introspected into relation schemas.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/conduit-lang/relmap/internal/orm/command"
	"github.com/conduit-lang/relmap/internal/orm/relation"
	"github.com/conduit-lang/relmap/internal/orm/repository"
)

func init() {
	repository.Register("postgres", factory(Postgres{}))
	repository.Register("sqlite", factory(SQLite{}))
	repository.Register("sql", factory(nil))
}

// factory opens an adapter for a fixed dialect, or for the one named by the
// "dialect" option when d is nil
func factory(d Dialect) repository.Factory {
	return func(ctx context.Context, cfg repository.Config, logger *zap.Logger) (repository.Adapter, error) {
		dialect := d
		if dialect == nil {
			name, _ := cfg.Options["dialect"].(string)
			var err error
			if dialect, err = DialectFor(name); err != nil {
				return nil, err
			}
		}
		if pg, ok := dialect.(Postgres); ok {
			if s, ok := cfg.Options["schema"].(string); ok {
				pg.Schema = s
				dialect = pg
			}
		}
		return Open(ctx, dialect, cfg.URL, logger)
	}
}

// Adapter exposes the tables of one database as datasets
type Adapter struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger
	owned   bool
}

// New wraps an existing connection pool. Close does not close db.
func New(db *sql.DB, dialect Dialect, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{db: db, dialect: dialect, logger: logger}
}

// Open connects to dsn with the dialect's driver and verifies the connection
func Open(ctx context.Context, dialect Dialect, dsn string, logger *zap.Logger) (*Adapter, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%s: connection url not specified", dialect.Name())
	}
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect.Name(), err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", dialect.Name(), err)
	}

	a := New(db, dialect, logger)
	a.owned = true
	return a, nil
}

// Name implements repository.Adapter
func (a *Adapter) Name() string { return a.dialect.Name() }

// DB returns the underlying connection pool
func (a *Adapter) DB() *sql.DB { return a.db }

// Datasets implements repository.Adapter
func (a *Adapter) Datasets(ctx context.Context) ([]string, error) {
	return a.dialect.Tables(ctx, a.db)
}

// ExtendRelation adds the table's columns the relation does not declare and
// installs the "all" and "where" read methods
func (a *Adapter) ExtendRelation(ctx context.Context, rel *relation.Relation) error {
	columns, err := a.dialect.Columns(ctx, a.db, rel.Dataset())
	if err != nil {
		return fmt.Errorf("introspect %s: %w", rel.Dataset(), err)
	}

	s := rel.Schema()
	for _, col := range columns {
		if !s.HasField(col.Name) {
			s.SetField(col)
		}
	}

	if err := rel.DefineAdapterMethod("all", a.all); err != nil {
		return err
	}
	if err := rel.DefineAdapterMethod("where", a.where); err != nil {
		return err
	}

	a.logger.Debug("extended relation",
		zap.String("relation", rel.Name()),
		zap.String("table", rel.Dataset()),
		zap.Int("columns", len(columns)))
	return nil
}

func (a *Adapter) all(ctx context.Context, rel *relation.Relation, args ...any) (any, error) {
	return a.query(ctx, "SELECT * FROM "+Quote(rel.Dataset()))
}

// where selects the rows equal to every entry of the condition map
func (a *Adapter) where(ctx context.Context, rel *relation.Relation, args ...any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("where expects one condition map, got %d arguments", len(args))
	}
	cond, ok := args[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("where expects map[string]any, got %T", args[0])
	}

	q := "SELECT * FROM " + Quote(rel.Dataset())
	clause, values := a.equalities(cond, 1, " AND ")
	if clause != "" {
		q += " WHERE " + clause
	}
	return a.query(ctx, q, values...)
}

func (a *Adapter) query(ctx context.Context, q string, args ...any) ([]map[string]any, error) {
	a.logger.Debug("query", zap.String("sql", q), zap.Int("args", len(args)))

	rows, err := a.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// equalities renders `"col" = $n` terms for m in column order, numbering
// placeholders from start
func (a *Adapter) equalities(m map[string]any, start int, sep string) (string, []any) {
	cols := make([]string, 0, len(m))
	for col := range m {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	terms := make([]string, len(cols))
	values := make([]any, len(cols))
	for i, col := range cols {
		terms[i] = fmt.Sprintf("%s = %s", Quote(col), a.dialect.Placeholder(start+i))
		values[i] = m[col]
	}
	return strings.Join(terms, sep), values
}

// Command implements repository.Adapter
func (a *Adapter) Command(name string, rel *relation.Relation, def command.Definition) (command.Command, error) {
	switch def.Type {
	case command.Create, command.Update, command.Delete:
	default:
		return nil, fmt.Errorf("%s: unsupported command type %s", a.Name(), def.Type)
	}
	var primaryKey string
	if pk, err := rel.Schema().PrimaryKey(); err == nil {
		primaryKey = pk.Name
	}
	if def.Type != command.Create && def.Key == "" && primaryKey == "" {
		return nil, fmt.Errorf("%s: %s command on %s needs a key or a primary key", a.Name(), def.Type, rel.Name())
	}
	return &sqlCommand{
		adapter:    a,
		name:       name,
		relation:   rel.Name(),
		table:      rel.Dataset(),
		fields:     rel.Schema().FieldNames(),
		primaryKey: primaryKey,
		def:        def,
	}, nil
}

// Close implements repository.Adapter
func (a *Adapter) Close() error {
	if !a.owned {
		return nil
	}
	return a.db.Close()
}

// withTransaction runs fn in a transaction, committing on success and
// rolling back on error or panic
func (a *Adapter) withTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// scanRows scans every row into a column map
func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	results := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		record := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				record[col] = string(b)
				continue
			}
			record[col] = values[i]
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
